package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dnldd/hunter/database"
	"github.com/dnldd/hunter/hunter"
	"github.com/dnldd/hunter/shared"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// HuntConfig represents the configuration struct for the hunt service.
type HuntConfig struct {
	// DataFilePaths are the filepaths to the historic market data, one per
	// hunted market.
	DataFilePaths []string
	// Direction is the hunted breakout direction.
	Direction shared.Direction
	// Strategy is the entry confirmation strategy.
	Strategy hunter.StrategyKind
	// FixedRR is the fixed reward target multiple, zero selects adaptive
	// position management.
	FixedRR float64
	// CloseOnlyBreakout requires breakout closes beyond the level when set.
	CloseOnlyBreakout bool
	// CutoffTime is the session cutoff, formatted HH:MM.
	CutoffTime string
	// GoldenStart is the optional entry window start, formatted HH:MM.
	GoldenStart string
	// GoldenEnd is the optional entry window end, formatted HH:MM.
	GoldenEnd string
	// Storage persists concluded trades. Optional, trades are only logged
	// when unset.
	Storage database.TradeStorer
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config has sane inputs.
func (cfg *HuntConfig) Validate() error {
	var errs error

	if len(cfg.DataFilePaths) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no data filepaths provided for hunt service"))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}

	return errs
}

// marketHunt pairs a market's historic data source with its hunter.
type marketHunt struct {
	data   *shared.HistoricData
	hunter *hunter.Hunter
}

// Hunt represents a breakout hunting service.
type Hunt struct {
	cfg    *HuntConfig
	hunts  []*marketHunt
	logger *zerolog.Logger
}

// NewHunt initializes a new hunt service.
func NewHunt(ctx context.Context, cfg *HuntConfig) (*Hunt, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating hunt service config: %w", err)
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := log.With().Str("service", "hunt").Logger()

	if cfg.CutoffTime == "" {
		cfg.CutoffTime = hunter.DefaultCutoffTime
	}

	service := &Hunt{
		cfg:    cfg,
		logger: &logger,
	}

	for _, path := range cfg.DataFilePaths {
		historicDataLogger := logger.With().Str("component", "historicdata").Logger()
		hunt := &marketHunt{}
		hunt.data, err = shared.NewHistoricData(&shared.HistoricDataConfig{
			FilePath: path,
			SendMarketUpdate: func(candle *shared.Candlestick) error {
				return service.processMarketUpdate(ctx, hunt, candle)
			},
			Logger: &historicDataLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating historic data: %v", err)
		}

		market := hunt.data.FetchMarket()
		hunterLogger := logger.With().Str("component", "hunter").Str("market", market).Logger()
		hunt.hunter, err = hunter.NewHunter(&hunter.HunterConfig{
			Market:            market,
			Direction:         cfg.Direction,
			Strategy:          cfg.Strategy,
			CloseOnlyBreakout: cfg.CloseOnlyBreakout,
			FixedRR:           cfg.FixedRR,
			CutoffTime:        cfg.CutoffTime,
			GoldenStart:       cfg.GoldenStart,
			GoldenEnd:         cfg.GoldenEnd,
			Logger:            hunterLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating hunter for %s: %v", market, err)
		}

		service.hunts = append(service.hunts, hunt)
	}

	return service, nil
}

// processMarketUpdate relays the provided candle to the market's hunter. The
// first candle of the stream establishes the anchor range, every candle after
// it advances the hunt.
func (h *Hunt) processMarketUpdate(ctx context.Context, hunt *marketHunt, candle *shared.Candlestick) error {
	if hunt.hunter.State() == hunter.Ready {
		_, err := hunt.hunter.EstablishRange(candle, hunt.data.FetchReferenceVolume())
		return err
	}

	result, err := hunt.hunter.Update(candle)
	if err != nil {
		return err
	}

	switch res := result.(type) {
	case *hunter.Invalid:
		h.logger.Warn().Msgf("[%s] rejected candle at bar %d: %s",
			res.Market, res.BarIndex, res.Reason)
	case *hunter.Exited:
		if h.cfg.Storage != nil {
			err := h.cfg.Storage.PersistExitedTrade(ctx, res)
			if err != nil {
				return fmt.Errorf("persisting exited trade for %s: %v", res.Market, err)
			}
		}
	default:
		// do nothing.
	}

	return nil
}

// Run handles the lifecycle processes of the hunt service. Each market's
// historic data is replayed to conclusion in turn.
func (h *Hunt) Run(ctx context.Context) {
	for _, hunt := range h.hunts {
		if ctx.Err() != nil {
			break
		}

		err := hunt.data.ProcessHistoricalData()
		if err != nil {
			h.logger.Error().Msgf("processing historic data for %s: %v",
				hunt.data.FetchMarket(), err)
			continue
		}

		h.logger.Info().Msgf("hunt for %s done: final state %s, %d failed breakout attempts",
			hunt.data.FetchMarket(), hunt.hunter.State().String(), hunt.hunter.BreakoutAttempts())
	}

	h.cfg.Cancel()
}
