package hunter

// WaitReason describes why a candle produced no actionable transition.
type WaitReason int

const (
	// AwaitingBreakout means price has not decisively left the anchor range.
	AwaitingBreakout WaitReason = iota
	// FailedBreakoutAttempt means the candle pierced the breakout level
	// intrabar but its close did not confirm.
	FailedBreakoutAttempt
	// LowVolumeBreakout means price cleared the level without the required
	// volume surge.
	LowVolumeBreakout
	// BreakoutConfirmed means a breakout confirmed and confirmation begins.
	BreakoutConfirmed
	// AwaitingRetest means the retest strategy is waiting on a pullback.
	AwaitingRetest
	// RetestFailed means the pullback reversed through the range midpoint,
	// re-arming breakout detection.
	RetestFailed
	// AwaitingImbalance means the imbalance strategy has no zone yet.
	AwaitingImbalance
	// ImbalanceFormed means a valid imbalance zone formed.
	ImbalanceFormed
	// AwaitingReversal means the strategy is waiting on a reversal inside
	// the imbalance zone.
	AwaitingReversal
	// OutsideEntryWindow means entry criteria were met outside the
	// configured entry window.
	OutsideEntryWindow
	// Concluded means the hunter has reached its terminal state.
	Concluded
)

// String stringifies the provided wait reason.
func (r WaitReason) String() string {
	switch r {
	case AwaitingBreakout:
		return "awaiting breakout"
	case FailedBreakoutAttempt:
		return "failed breakout attempt"
	case LowVolumeBreakout:
		return "low volume breakout"
	case BreakoutConfirmed:
		return "breakout confirmed"
	case AwaitingRetest:
		return "awaiting retest"
	case RetestFailed:
		return "retest failed"
	case AwaitingImbalance:
		return "awaiting imbalance"
	case ImbalanceFormed:
		return "imbalance formed"
	case AwaitingReversal:
		return "awaiting reversal"
	case OutsideEntryWindow:
		return "outside entry window"
	case Concluded:
		return "concluded"
	default:
		return "unknown"
	}
}

// ExitReason represents the reason a hunt concluded.
type ExitReason int

const (
	StopLoss ExitReason = iota
	TakeProfit
	Trailing
	ProfitLock
	Exhaustion
	TimeLimit
	Choppy
	NoImbalance
	ZoneInvalidated
	ReversalTimeout
)

// String stringifies the provided exit reason.
func (r ExitReason) String() string {
	switch r {
	case StopLoss:
		return "stop loss"
	case TakeProfit:
		return "take profit"
	case Trailing:
		return "trailing stop"
	case ProfitLock:
		return "profit lock"
	case Exhaustion:
		return "exhaustion"
	case TimeLimit:
		return "time limit"
	case Choppy:
		return "choppy"
	case NoImbalance:
		return "no imbalance formed"
	case ZoneInvalidated:
		return "imbalance zone invalidated"
	case ReversalTimeout:
		return "reversal not found"
	default:
		return "unknown"
	}
}

// ResultKind represents the kind of a hunter result.
type ResultKind int

const (
	WaitResult ResultKind = iota
	EnteredResult
	HoldingResult
	ExitedResult
	InvalidResult
)

// Meta carries metadata common to all hunter results.
type Meta struct {
	// Market is the market being hunted.
	Market string
	// BarIndex is the index of the candle that produced the result, counted
	// from the first candle after the anchor candle.
	BarIndex int
	// Degenerate flags that a zero denominator guard substituted a floor
	// value at some point during the hunt.
	Degenerate bool
}

// Result is the discriminated outcome of processing a single candle. Callers
// switch on the concrete type (or Kind) to handle each case exhaustively.
type Result interface {
	// Kind returns the result kind.
	Kind() ResultKind
}

// Wait reports that the candle produced no actionable transition.
type Wait struct {
	Meta
	Reason WaitReason
}

// Kind returns the result kind.
func (w *Wait) Kind() ResultKind { return WaitResult }

// Entered reports a confirmed entry and the newly opened position.
type Entered struct {
	Meta
	Position Position
}

// Kind returns the result kind.
func (e *Entered) Kind() ResultKind { return EnteredResult }

// Holding reports an open position surviving the candle.
type Holding struct {
	Meta
	Position     Position
	RiskMultiple float64
	// Exhaustion holds the composite exhaustion score for the candle. It is
	// nil in fixed-target mode.
	Exhaustion *ExhaustionSignal
}

// Kind returns the result kind.
func (h *Holding) Kind() ResultKind { return HoldingResult }

// Exited reports the hunt concluding. Position is nil when the hunt
// concluded without a position ever opening.
type Exited struct {
	Meta
	Reason     ExitReason
	ExitPrice  float64
	RealizedRR float64
	BarsHeld   int
	Position   *Position
}

// Kind returns the result kind.
func (e *Exited) Kind() ResultKind { return ExitedResult }

// Invalid reports a rejected candle. The state machine does not advance on
// an invalid candle.
type Invalid struct {
	Meta
	Reason string
}

// Kind returns the result kind.
func (i *Invalid) Kind() ResultKind { return InvalidResult }
