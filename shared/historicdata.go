package shared

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// HistoricDataConfig represents the historic data source configuration.
type HistoricDataConfig struct {
	// FilePath is the filepath to the historic market data.
	FilePath string
	// SendMarketUpdate relays the provided market update for processing.
	SendMarketUpdate func(candle *Candlestick) error
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// HistoricData represents historic market data for a single market and timeframe.
type HistoricData struct {
	cfg             *HistoricDataConfig
	market          string
	timeframe       Timeframe
	referenceVolume float64
	location        *time.Location
	candles         []Candlestick
}

// loadHistoricData loads the historic data bytes from the provided file path.
func loadHistoricData(filepath string) (*gjson.Result, error) {
	readb, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("reading historic data from file with path '%s': %v", filepath, err)
	}

	b := gjson.ParseBytes(readb)

	return &b, nil
}

// NewHistoricData initializes a new historic data source.
func NewHistoricData(cfg *HistoricDataConfig) (*HistoricData, error) {
	b, err := loadHistoricData(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("loading historic data: %v", err)
	}

	market := b.Get("market").String()
	if market == "" {
		return nil, fmt.Errorf("historic data has no market")
	}

	timeframe, err := ParseTimeframe(b.Get("timeframe").String())
	if err != nil {
		return nil, fmt.Errorf("parsing historic data timeframe: %v", err)
	}

	loc, err := time.LoadLocation(NewYorkLocation)
	if err != nil {
		return nil, fmt.Errorf("loading new york location: %v", err)
	}

	data := b.Get("candles").Array()
	if len(data) == 0 {
		return nil, fmt.Errorf("historic data has no candles for %s", market)
	}

	candles, err := ParseCandlesticks(data, market, timeframe, loc)
	if err != nil {
		return nil, fmt.Errorf("parsing candlesticks: %v", err)
	}

	historicData := HistoricData{
		cfg:             cfg,
		market:          market,
		timeframe:       timeframe,
		referenceVolume: b.Get("referenceVolume").Float(),
		location:        loc,
		candles:         candles,
	}

	return &historicData, nil
}

// ProcessHistoricalData streams historic data for a market.
func (h *HistoricData) ProcessHistoricalData() error {
	first := h.candles[0].Date
	last := h.candles[len(h.candles)-1].Date
	timeDiffInHours := last.Sub(first).Hours()

	h.cfg.Logger.Info().Msgf("processing historic %s [%s] data covering %.2f hours, from %s, to %s",
		h.market, h.timeframe.String(), timeDiffInHours, first.Format(time.RFC1123),
		last.Format(time.RFC1123))

	for idx := range h.candles {
		// Process historic data synchronously.
		err := h.cfg.SendMarketUpdate(&h.candles[idx])
		if err != nil {
			return fmt.Errorf("processing historic data: %v", err)
		}
	}

	return nil
}

// FetchMarket returns the historic data market.
func (h *HistoricData) FetchMarket() string {
	return h.market
}

// FetchReferenceVolume returns the volume baseline supplied with the historic data.
func (h *HistoricData) FetchReferenceVolume() float64 {
	return h.referenceVolume
}

// FetchStartTime returns the start time of the loaded historic data.
func (h *HistoricData) FetchStartTime() time.Time {
	return h.candles[0].Date
}

// FetchEndTime returns the end time of the loaded historic data.
func (h *HistoricData) FetchEndTime() time.Time {
	return h.candles[len(h.candles)-1].Date
}
