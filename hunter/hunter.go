// Package hunter implements a single instrument breakout pattern engine. It
// consumes an ordered stream of candlesticks and decides, candle by candle,
// whether to wait, enter, hold or exit a directional position based on a
// breakout, confirmation and exhaustion sequence anchored to the range of
// the first candle it is given.
package hunter

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dnldd/hunter/shared"
)

// ErrInvalidState is returned when an operation is attempted in a hunter
// state that does not support it. It is distinct from a Wait result so
// callers cannot confuse "not yet" with a protocol violation.
var ErrInvalidState = errors.New("invalid hunter state")

// Hunter hunts a breakout, confirmation and exhaustion pattern for a single
// market. It is synchronous and single threaded, one call per candle. Run
// one hunter per market, hunters share no state.
type Hunter struct {
	cfg      *HunterConfig
	state    State
	anchor   *AnchorRange
	strategy EntryStrategy
	position *Position
	window   *shared.CandlestickSnapshot

	referenceVolume  float64
	breakoutAttempts int
	barIndex         int
	lastCandleTime   time.Time
	degenerate       bool

	cutoffSeconds    int
	cutoffSet        bool
	entryWindowStart int
	entryWindowEnd   int
	entryWindowSet   bool
}

// NewHunter initializes a new hunter. Unset numeric parameters assume their
// defaults before validation, invalid parameters are rejected outright.
func NewHunter(cfg *HunterConfig) (*Hunter, error) {
	cfg.applyDefaults()
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating hunter config: %w", err)
	}

	window, err := shared.NewCandlestickSnapshot(shared.SnapshotSize)
	if err != nil {
		return nil, fmt.Errorf("creating candlestick window: %v", err)
	}

	h := &Hunter{
		cfg:    cfg,
		state:  Ready,
		window: window,
	}

	if cfg.CutoffTime != "" {
		cutoff, err := time.Parse(shared.SessionTimeLayout, cfg.CutoffTime)
		if err != nil {
			return nil, fmt.Errorf("parsing cutoff time: %v", err)
		}

		h.cutoffSeconds = secondsOfDay(cutoff)
		h.cutoffSet = true
	}

	if cfg.GoldenStart != "" && cfg.GoldenEnd != "" {
		start, err := time.Parse(shared.SessionTimeLayout, cfg.GoldenStart)
		if err != nil {
			return nil, fmt.Errorf("parsing entry window start: %v", err)
		}
		end, err := time.Parse(shared.SessionTimeLayout, cfg.GoldenEnd)
		if err != nil {
			return nil, fmt.Errorf("parsing entry window end: %v", err)
		}

		h.entryWindowStart = secondsOfDay(start)
		h.entryWindowEnd = secondsOfDay(end)
		h.entryWindowSet = true
	}

	return h, nil
}

// secondsOfDay returns the time of day of the provided time in seconds.
func secondsOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// State returns the current state of the hunter.
func (h *Hunter) State() State {
	return h.state
}

// BreakoutAttempts returns the number of failed breakout attempts recorded.
func (h *Hunter) BreakoutAttempts() int {
	return h.breakoutAttempts
}

// AnchorRange returns the established anchor range, nil before establishment.
func (h *Hunter) AnchorRange() *AnchorRange {
	return h.anchor
}

// meta generates result metadata for the current candle.
func (h *Hunter) meta() Meta {
	return Meta{
		Market:     h.cfg.Market,
		BarIndex:   h.barIndex,
		Degenerate: h.degenerate,
	}
}

// EstablishRange installs the anchor range from the provided candle and the
// volume baseline used for surge comparisons. It must be called exactly once
// before candles are processed. A reference volume of zero or less falls
// back to the candle's own volume with a floor of 1 and flags the hunt as
// degenerate.
func (h *Hunter) EstablishRange(first *shared.Candlestick, referenceVolume float64) (*AnchorRange, error) {
	if h.state != Ready {
		return nil, fmt.Errorf("%w: anchor range can only be established while ready, currently %s",
			ErrInvalidState, h.state.String())
	}

	anchor, err := NewAnchorRange(first)
	if err != nil {
		return nil, err
	}

	if referenceVolume <= 0 {
		referenceVolume = math.Max(first.Volume, 1)
		h.degenerate = true
	}

	h.anchor = anchor
	h.referenceVolume = referenceVolume
	h.lastCandleTime = first.Date

	switch h.cfg.Strategy {
	case ImbalanceReversal:
		h.strategy = NewImbalanceReversalStrategy(h.cfg, anchor)
	default:
		h.strategy = NewRetestStrategy(h.cfg.Direction, anchor, h.cfg.StopRangeRatio)
	}

	h.state = Watching
	h.cfg.Logger.Info().Msgf("[%s] anchor range established: high=%.2f low=%.2f mid=%.2f",
		h.cfg.Market, anchor.High, anchor.Low, anchor.Mid)

	return anchor, nil
}

// Update processes the provided candle and returns the resulting decision.
// Anomalous candles are rejected with an Invalid result and do not advance
// the state machine.
func (h *Hunter) Update(candle *shared.Candlestick) (Result, error) {
	switch h.state {
	case Ready:
		return nil, fmt.Errorf("%w: anchor range must be established before processing candles",
			ErrInvalidState)
	case Done:
		return &Wait{Meta: h.meta(), Reason: Concluded}, nil
	}

	err := candle.Validate()
	if err != nil {
		return &Invalid{Meta: h.meta(), Reason: err.Error()}, nil
	}
	if !candle.Date.After(h.lastCandleTime) {
		reason := fmt.Sprintf("out of order candle: %s does not advance %s",
			candle.Date.Format(shared.DateLayout), h.lastCandleTime.Format(shared.DateLayout))
		return &Invalid{Meta: h.meta(), Reason: reason}, nil
	}

	h.lastCandleTime = candle.Date
	h.barIndex++

	// Force a session cutoff exit regardless of other conditions.
	if h.cutoffSet && secondsOfDay(candle.Date) >= h.cutoffSeconds {
		if h.state == InPosition {
			h.position.BarsHeld++
			return h.exitPosition(TimeLimit, candle.Close), nil
		}

		h.state = Done
		return &Exited{Meta: h.meta(), Reason: TimeLimit}, nil
	}

	h.window.Update(candle)

	switch h.state {
	case Watching:
		return h.checkBreakout(candle), nil
	case RetestWait, ImbalanceWait, ReversalWait:
		return h.confirmEntry(candle), nil
	case InPosition:
		return h.managePosition(candle), nil
	default:
		return nil, fmt.Errorf("%w: unexpected state %s", ErrInvalidState, h.state.String())
	}
}

// checkBreakout evaluates the provided candle for a decisive move outside
// the anchor range, backed by a volume surge.
func (h *Hunter) checkBreakout(candle *shared.Candlestick) Result {
	level := h.anchor.BreakoutLevel(h.cfg.Direction)
	volumeRatio := candle.Volume / h.referenceVolume
	volumeSurge := volumeRatio >= h.cfg.SurgeThreshold

	var breakout, wickFailed bool
	switch h.cfg.Direction {
	case shared.Short:
		if h.cfg.CloseOnlyBreakout {
			breakout = candle.Close < level
		} else {
			breakout = candle.BodyHigh() < level
		}
		wickFailed = candle.Low < level && candle.Close >= level
	default:
		if h.cfg.CloseOnlyBreakout {
			breakout = candle.Close > level
		} else {
			breakout = candle.BodyLow() > level
		}
		wickFailed = candle.High > level && candle.Close <= level
	}

	// A wick piercing the level without the close confirming is a failed
	// breakout attempt. Repeated failures mean the market is choppy and the
	// level is abandoned.
	if wickFailed {
		h.breakoutAttempts++
		if h.breakoutAttempts >= h.cfg.MaxChoppyAttempts {
			h.state = Done
			h.cfg.Logger.Info().Msgf("[%s] %d failed breakout attempts, abandoning level %.2f",
				h.cfg.Market, h.breakoutAttempts, level)
			return &Exited{Meta: h.meta(), Reason: Choppy}
		}

		return &Wait{Meta: h.meta(), Reason: FailedBreakoutAttempt}
	}

	if breakout {
		if !volumeSurge {
			// A breakout without volume backing it is not a failure, just
			// not substantive yet.
			return &Wait{Meta: h.meta(), Reason: LowVolumeBreakout}
		}

		h.strategy.Arm()
		h.state = h.strategy.WaitState()
		h.cfg.Logger.Info().Msgf("[%s] breakout confirmed: close=%.2f level=%.2f volume ratio=%.2f",
			h.cfg.Market, candle.Close, level, volumeRatio)

		return &Wait{Meta: h.meta(), Reason: BreakoutConfirmed}
	}

	return &Wait{Meta: h.meta(), Reason: AwaitingBreakout}
}

// confirmEntry runs the active entry confirmation strategy on the provided
// candle.
func (h *Hunter) confirmEntry(candle *shared.Candlestick) Result {
	confirmation := h.strategy.ConfirmEntry(h.window.LastN(shared.SnapshotSize))

	switch confirmation.Status {
	case EntryConfirmed:
		if h.entryWindowSet {
			seconds := secondsOfDay(candle.Date)
			if seconds < h.entryWindowStart || seconds > h.entryWindowEnd {
				return &Wait{Meta: h.meta(), Reason: OutsideEntryWindow}
			}
		}

		h.position = NewPosition(h.cfg.Market, h.cfg.Direction, confirmation.EntryPrice,
			confirmation.StopLoss, h.barIndex, candle.Date)
		h.state = InPosition
		h.cfg.Logger.Info().Msgf("[%s] %s entry confirmed: entry=%.2f stop=%.2f",
			h.cfg.Market, h.cfg.Direction.String(), confirmation.EntryPrice, confirmation.StopLoss)

		return &Entered{Meta: h.meta(), Position: *h.position}

	case EntryFailed:
		h.breakoutAttempts++
		if h.breakoutAttempts >= h.cfg.MaxChoppyAttempts {
			h.state = Done
			return &Exited{Meta: h.meta(), Reason: Choppy}
		}

		// Re-arm breakout detection.
		h.state = Watching
		return &Wait{Meta: h.meta(), Reason: confirmation.Reason}

	case EntryAbandoned:
		h.state = Done
		h.cfg.Logger.Info().Msgf("[%s] entry confirmation abandoned: %s",
			h.cfg.Market, confirmation.Abandon.String())
		return &Exited{Meta: h.meta(), Reason: confirmation.Abandon}

	default:
		// Track the strategy's wait phase, the imbalance strategy advances
		// from zone formation to reversal confirmation.
		h.state = h.strategy.WaitState()
		return &Wait{Meta: h.meta(), Reason: confirmation.Reason}
	}
}

// managePosition evaluates stop, target, trailing, exhaustion and profit
// floor conditions for the open position on the provided candle.
func (h *Hunter) managePosition(candle *shared.Candlestick) Result {
	pos := h.position
	pos.BarsHeld++
	riskMultiple := pos.UpdateRiskMultiple(candle.Close)
	if pos.Degenerate {
		h.degenerate = true
	}

	if h.cfg.FixedRR > 0 {
		return h.manageFixedTarget(candle)
	}

	// The stop is checked before it is updated so the candle is only ever
	// tested against the stop that was live when it opened.
	if pos.StopHit(candle) {
		reason := Trailing
		switch {
		case pos.TrailingStop == pos.InitialStop:
			reason = StopLoss
		case pos.ProfitFloor > 0 && pos.TrailingStop == pos.ProfitFloorPrice():
			reason = ProfitLock
		}

		return h.exitPosition(reason, pos.TrailingStop)
	}

	pos.UpdatePeak(candle)
	pos.UpdateProfitFloor(h.cfg.ProfitLockTable)
	h.updateTrailingStop(pos)

	exhaustion := DetectExhaustion(h.window.LastN(shared.SnapshotSize), h.cfg.Direction,
		h.cfg.VolumeDropRatio, h.cfg.WickRatioMin)
	if exhaustion.Urgency >= h.cfg.ExhaustionBars {
		// Exit at the close, but never worse than the locked profit floor.
		exitPrice := candle.Close
		if pos.ProfitFloor > 0 {
			floorPrice := pos.ProfitFloorPrice()
			switch pos.Direction {
			case shared.Short:
				exitPrice = math.Min(exitPrice, floorPrice)
			default:
				exitPrice = math.Max(exitPrice, floorPrice)
			}
		}

		return h.exitPosition(Exhaustion, exitPrice)
	}

	return &Holding{
		Meta:         h.meta(),
		Position:     *pos,
		RiskMultiple: riskMultiple,
		Exhaustion:   exhaustion,
	}
}

// manageFixedTarget runs the fixed target mode for the open position. The
// candle's extremes are checked against both the stop and the target, a
// candle touching both resolves to the stop first.
func (h *Hunter) manageFixedTarget(candle *shared.Candlestick) Result {
	pos := h.position
	risk := pos.Risk()

	var target float64
	var stopHit, targetHit bool
	switch pos.Direction {
	case shared.Short:
		target = pos.EntryPrice - risk*h.cfg.FixedRR
		stopHit = candle.High >= pos.InitialStop
		targetHit = candle.Low <= target
	default:
		target = pos.EntryPrice + risk*h.cfg.FixedRR
		stopHit = candle.Low <= pos.InitialStop
		targetHit = candle.High >= target
	}

	if stopHit {
		return h.exitPosition(StopLoss, pos.InitialStop)
	}
	if targetHit {
		return h.exitPosition(TakeProfit, target)
	}

	return &Holding{
		Meta:         h.meta(),
		Position:     *pos,
		RiskMultiple: pos.RiskMultiple,
	}
}

// updateTrailingStop ratchets the trailing stop through the breakeven shift,
// range scaled trailing and profit floor phases. The most protective stop
// always wins and the stop never loosens.
func (h *Hunter) updateTrailingStop(pos *Position) {
	if pos.RiskMultiple >= h.cfg.BreakevenRR {
		pos.RaiseTrailingStop(pos.EntryPrice)
	}

	if pos.RiskMultiple >= h.cfg.TrailingStartRR {
		distance := h.anchor.Span * h.cfg.TrailingRangeMultiple
		switch pos.Direction {
		case shared.Short:
			pos.RaiseTrailingStop(pos.PeakPrice + distance)
		default:
			pos.RaiseTrailingStop(pos.PeakPrice - distance)
		}
	}

	if pos.ProfitFloor > 0 {
		pos.RaiseTrailingStop(pos.ProfitFloorPrice())
	}
}

// exitPosition finalizes the open position into an exited result.
func (h *Hunter) exitPosition(reason ExitReason, exitPrice float64) Result {
	pos := h.position
	realized := pos.RealizedRR(exitPrice)
	if pos.Degenerate {
		h.degenerate = true
	}

	h.state = Done
	h.position = nil

	h.cfg.Logger.Info().Msgf("[%s] exited %s position [%s]: entry=%.2f exit=%.2f rr=%+.2f bars=%d",
		h.cfg.Market, pos.Direction.String(), reason.String(), pos.EntryPrice, exitPrice,
		realized, pos.BarsHeld)

	return &Exited{
		Meta:       h.meta(),
		Reason:     reason,
		ExitPrice:  exitPrice,
		RealizedRR: realized,
		BarsHeld:   pos.BarsHeld,
		Position:   pos,
	}
}
