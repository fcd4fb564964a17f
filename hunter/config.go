package hunter

import (
	"errors"
	"fmt"
	"time"

	"github.com/dnldd/hunter/shared"
	"github.com/rs/zerolog"
)

const (
	// DefaultSurgeThreshold is the default minimum volume ratio for a
	// breakout to be considered substantive.
	DefaultSurgeThreshold = 1.5
	// DefaultMaxChoppyAttempts is the default number of failed breakout
	// attempts before the market is considered choppy.
	DefaultMaxChoppyAttempts = 3
	// DefaultStopRangeRatio is the default fraction of the anchor range span
	// used for retest stop placement.
	DefaultStopRangeRatio = 0.6
	// DefaultMinZoneSizePct is the default minimum imbalance zone size
	// relative to price.
	DefaultMinZoneSizePct = 0.001
	// DefaultZoneProximityMultiple is the default maximum distance, in anchor
	// range spans, between an imbalance zone midpoint and the broken level.
	DefaultZoneProximityMultiple = 1.5
	// DefaultZoneTimeoutBars is the default number of candles after a
	// breakout within which an imbalance zone must form.
	DefaultZoneTimeoutBars = 15
	// DefaultReversalTimeoutBars is the default number of candles after zone
	// formation within which a reversal must confirm.
	DefaultReversalTimeoutBars = 10
	// DefaultStopBufferRatio is the default fraction of the zone size placed
	// outside the zone for stop placement.
	DefaultStopBufferRatio = 0.1
	// DefaultBreakevenRR is the default risk multiple at which the trailing
	// stop shifts to breakeven.
	DefaultBreakevenRR = 0.3
	// DefaultTrailingStartRR is the default risk multiple at which range
	// scaled trailing begins.
	DefaultTrailingStartRR = 1.0
	// DefaultTrailingRangeMultiple is the default anchor range span multiple
	// used as the trailing distance from peak excursion.
	DefaultTrailingRangeMultiple = 1.2
	// DefaultVolumeDropRatio is the default fraction of recent average volume
	// below which volume divergence fires.
	DefaultVolumeDropRatio = 0.65
	// DefaultWickRatioMin is the default adverse wick size, relative to the
	// candle body bound, above which wick expansion fires.
	DefaultWickRatioMin = 0.003
	// DefaultExhaustionBars is the default exhaustion urgency that forces an
	// immediate exit.
	DefaultExhaustionBars = 2
	// DefaultCutoffTime is the default session cutoff time of day.
	DefaultCutoffTime = "15:00"
)

// StrategyKind represents the entry confirmation strategy of a hunter.
type StrategyKind int

const (
	// Retest confirms entries on a pullback to the broken level.
	Retest StrategyKind = iota
	// ImbalanceReversal confirms entries on a reversal inside a three candle
	// liquidity gap near the broken level.
	ImbalanceReversal
)

// String stringifies the provided strategy kind.
func (s StrategyKind) String() string {
	switch s {
	case Retest:
		return "retest"
	case ImbalanceReversal:
		return "imbalance"
	default:
		return "unknown"
	}
}

// ParseStrategyKind parses a strategy kind from the provided string.
func ParseStrategyKind(strategy string) (StrategyKind, error) {
	switch strategy {
	case "retest":
		return Retest, nil
	case "imbalance":
		return ImbalanceReversal, nil
	default:
		return 0, fmt.Errorf("unknown strategy: %s", strategy)
	}
}

// ProfitLockLevel maps a reached risk multiple to the minimum risk multiple
// guaranteed once it is reached.
type ProfitLockLevel struct {
	Threshold float64
	Floor     float64
}

// DefaultProfitLockTable is the default profit lock table.
var DefaultProfitLockTable = []ProfitLockLevel{
	{Threshold: 1.0, Floor: 0.5},
	{Threshold: 1.5, Floor: 0.8},
	{Threshold: 2.0, Floor: 1.2},
	{Threshold: 2.5, Floor: 1.6},
	{Threshold: 3.0, Floor: 2.0},
}

// HunterConfig represents the configuration of a hunter.
type HunterConfig struct {
	// Market is the market being hunted.
	Market string
	// Direction is the hunted direction.
	Direction shared.Direction
	// Strategy selects the entry confirmation strategy.
	Strategy StrategyKind
	// SurgeThreshold is the minimum volume ratio confirming a breakout.
	SurgeThreshold float64
	// CloseOnlyBreakout relaxes the breakout condition to only require the
	// close beyond the level instead of the full candle body.
	CloseOnlyBreakout bool
	// MaxChoppyAttempts is the number of failed breakout attempts that
	// concludes the hunt as choppy.
	MaxChoppyAttempts int
	// StopRangeRatio is the fraction of the anchor range span used for
	// retest stop placement.
	StopRangeRatio float64
	// MinZoneSizePct is the minimum imbalance zone size relative to price.
	MinZoneSizePct float64
	// ZoneProximityMultiple is the maximum distance, in anchor range spans,
	// between an imbalance zone midpoint and the broken level.
	ZoneProximityMultiple float64
	// ZoneTimeoutBars is the number of candles after a breakout within which
	// an imbalance zone must form.
	ZoneTimeoutBars int
	// ReversalTimeoutBars is the number of candles after zone formation
	// within which a reversal must confirm.
	ReversalTimeoutBars int
	// StopBufferRatio is the fraction of the zone size placed outside the
	// zone for stop placement.
	StopBufferRatio float64
	// FixedRR sets a fixed reward multiple target. When zero the hunter
	// manages positions adaptively instead.
	FixedRR float64
	// BreakevenRR is the risk multiple at which the trailing stop shifts to
	// breakeven.
	BreakevenRR float64
	// TrailingStartRR is the risk multiple at which range scaled trailing
	// begins.
	TrailingStartRR float64
	// TrailingRangeMultiple is the anchor range span multiple used as the
	// trailing distance from peak excursion.
	TrailingRangeMultiple float64
	// ProfitLockTable maps reached risk multiples to guaranteed floors.
	ProfitLockTable []ProfitLockLevel
	// VolumeDropRatio is the fraction of recent average volume below which
	// volume divergence fires.
	VolumeDropRatio float64
	// WickRatioMin is the adverse wick size above which wick expansion fires.
	WickRatioMin float64
	// ExhaustionBars is the exhaustion urgency forcing an immediate exit.
	ExhaustionBars int
	// CutoffTime is the session cutoff time of day ("15:04" layout). An
	// empty string disables the cutoff.
	CutoffTime string
	// GoldenStart and GoldenEnd bound the preferred entry window ("15:04"
	// layout). Entries are only taken inside the window when both are set.
	GoldenStart string
	GoldenEnd   string
	// Logger represents the application logger.
	Logger zerolog.Logger
}

// applyDefaults fills unset numeric parameters with their defaults. FixedRR
// is left untouched since zero selects adaptive position management.
func (cfg *HunterConfig) applyDefaults() {
	if cfg.SurgeThreshold == 0 {
		cfg.SurgeThreshold = DefaultSurgeThreshold
	}
	if cfg.MaxChoppyAttempts == 0 {
		cfg.MaxChoppyAttempts = DefaultMaxChoppyAttempts
	}
	if cfg.StopRangeRatio == 0 {
		cfg.StopRangeRatio = DefaultStopRangeRatio
	}
	if cfg.MinZoneSizePct == 0 {
		cfg.MinZoneSizePct = DefaultMinZoneSizePct
	}
	if cfg.ZoneProximityMultiple == 0 {
		cfg.ZoneProximityMultiple = DefaultZoneProximityMultiple
	}
	if cfg.ZoneTimeoutBars == 0 {
		cfg.ZoneTimeoutBars = DefaultZoneTimeoutBars
	}
	if cfg.ReversalTimeoutBars == 0 {
		cfg.ReversalTimeoutBars = DefaultReversalTimeoutBars
	}
	if cfg.StopBufferRatio == 0 {
		cfg.StopBufferRatio = DefaultStopBufferRatio
	}
	if cfg.BreakevenRR == 0 {
		cfg.BreakevenRR = DefaultBreakevenRR
	}
	if cfg.TrailingStartRR == 0 {
		cfg.TrailingStartRR = DefaultTrailingStartRR
	}
	if cfg.TrailingRangeMultiple == 0 {
		cfg.TrailingRangeMultiple = DefaultTrailingRangeMultiple
	}
	if cfg.ProfitLockTable == nil {
		cfg.ProfitLockTable = DefaultProfitLockTable
	}
	if cfg.VolumeDropRatio == 0 {
		cfg.VolumeDropRatio = DefaultVolumeDropRatio
	}
	if cfg.WickRatioMin == 0 {
		cfg.WickRatioMin = DefaultWickRatioMin
	}
	if cfg.ExhaustionBars == 0 {
		cfg.ExhaustionBars = DefaultExhaustionBars
	}
}

// Validate asserts the config has sane inputs. Invalid parameters are
// rejected outright, never clamped.
func (cfg *HunterConfig) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("market cannot be an empty string"))
	}
	if cfg.Direction != shared.Long && cfg.Direction != shared.Short {
		errs = errors.Join(errs, fmt.Errorf("unknown direction: %d", cfg.Direction))
	}
	if cfg.Strategy != Retest && cfg.Strategy != ImbalanceReversal {
		errs = errors.Join(errs, fmt.Errorf("unknown strategy: %d", cfg.Strategy))
	}
	if cfg.SurgeThreshold <= 0 {
		errs = errors.Join(errs, fmt.Errorf("surge threshold must be positive: %f", cfg.SurgeThreshold))
	}
	if cfg.MaxChoppyAttempts <= 0 {
		errs = errors.Join(errs, fmt.Errorf("max choppy attempts must be positive: %d", cfg.MaxChoppyAttempts))
	}
	if cfg.StopRangeRatio <= 0 || cfg.StopRangeRatio >= 1 {
		errs = errors.Join(errs, fmt.Errorf("stop range ratio must be in (0,1): %f", cfg.StopRangeRatio))
	}
	if cfg.MinZoneSizePct <= 0 {
		errs = errors.Join(errs, fmt.Errorf("minimum zone size must be positive: %f", cfg.MinZoneSizePct))
	}
	if cfg.ZoneProximityMultiple <= 0 {
		errs = errors.Join(errs, fmt.Errorf("zone proximity multiple must be positive: %f", cfg.ZoneProximityMultiple))
	}
	if cfg.ZoneTimeoutBars <= 0 {
		errs = errors.Join(errs, fmt.Errorf("zone timeout bars must be positive: %d", cfg.ZoneTimeoutBars))
	}
	if cfg.ReversalTimeoutBars <= 0 {
		errs = errors.Join(errs, fmt.Errorf("reversal timeout bars must be positive: %d", cfg.ReversalTimeoutBars))
	}
	if cfg.StopBufferRatio < 0 || cfg.StopBufferRatio >= 1 {
		errs = errors.Join(errs, fmt.Errorf("stop buffer ratio must be in [0,1): %f", cfg.StopBufferRatio))
	}
	if cfg.FixedRR < 0 {
		errs = errors.Join(errs, fmt.Errorf("fixed reward multiple cannot be negative: %f", cfg.FixedRR))
	}
	if cfg.BreakevenRR <= 0 {
		errs = errors.Join(errs, fmt.Errorf("breakeven risk multiple must be positive: %f", cfg.BreakevenRR))
	}
	if cfg.TrailingStartRR < cfg.BreakevenRR {
		errs = errors.Join(errs, fmt.Errorf("trailing start risk multiple cannot be below breakeven: %f < %f",
			cfg.TrailingStartRR, cfg.BreakevenRR))
	}
	if cfg.TrailingRangeMultiple <= 0 {
		errs = errors.Join(errs, fmt.Errorf("trailing range multiple must be positive: %f", cfg.TrailingRangeMultiple))
	}
	if cfg.VolumeDropRatio <= 0 || cfg.VolumeDropRatio >= 1 {
		errs = errors.Join(errs, fmt.Errorf("volume drop ratio must be in (0,1): %f", cfg.VolumeDropRatio))
	}
	if cfg.WickRatioMin <= 0 {
		errs = errors.Join(errs, fmt.Errorf("minimum wick ratio must be positive: %f", cfg.WickRatioMin))
	}
	if cfg.ExhaustionBars <= 0 {
		errs = errors.Join(errs, fmt.Errorf("exhaustion bars must be positive: %d", cfg.ExhaustionBars))
	}

	for idx := range cfg.ProfitLockTable {
		level := cfg.ProfitLockTable[idx]
		if level.Floor >= level.Threshold {
			errs = errors.Join(errs, fmt.Errorf("profit lock floor must be below its threshold: %f >= %f",
				level.Floor, level.Threshold))
		}
		if idx == 0 {
			continue
		}
		prev := cfg.ProfitLockTable[idx-1]
		if level.Threshold <= prev.Threshold || level.Floor < prev.Floor {
			errs = errors.Join(errs, fmt.Errorf("profit lock table must be monotonic at entry %d", idx))
		}
	}

	if cfg.CutoffTime != "" {
		_, err := time.Parse(shared.SessionTimeLayout, cfg.CutoffTime)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("parsing cutoff time: %v", err))
		}
	}

	switch {
	case cfg.GoldenStart != "" && cfg.GoldenEnd != "":
		start, startErr := time.Parse(shared.SessionTimeLayout, cfg.GoldenStart)
		if startErr != nil {
			errs = errors.Join(errs, fmt.Errorf("parsing entry window start: %v", startErr))
		}
		end, endErr := time.Parse(shared.SessionTimeLayout, cfg.GoldenEnd)
		if endErr != nil {
			errs = errors.Join(errs, fmt.Errorf("parsing entry window end: %v", endErr))
		}
		if startErr == nil && endErr == nil && !start.Before(end) {
			errs = errors.Join(errs, fmt.Errorf("entry window start must be before its end: %s >= %s",
				cfg.GoldenStart, cfg.GoldenEnd))
		}
	case cfg.GoldenStart != "" || cfg.GoldenEnd != "":
		errs = errors.Join(errs, fmt.Errorf("entry window requires both a start and an end"))
	}

	return errs
}
