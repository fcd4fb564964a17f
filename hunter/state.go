package hunter

// State represents the lifecycle state of a hunter.
type State int

const (
	// Ready is the initial state, no anchor range has been established yet.
	Ready State = iota
	// Watching means the hunter is waiting on a breakout of the anchor range.
	Watching
	// RetestWait means a breakout confirmed and the retest strategy is
	// waiting on a pullback to the broken level.
	RetestWait
	// ImbalanceWait means a breakout confirmed and the imbalance strategy is
	// waiting on a liquidity gap to form.
	ImbalanceWait
	// ReversalWait means an imbalance zone formed and the strategy is waiting
	// on a reversal inside it.
	ReversalWait
	// InPosition means an entry confirmed and a position is being managed.
	InPosition
	// Done is the terminal state, no transitions leave it.
	Done
)

// String stringifies the provided state.
func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Watching:
		return "watching"
	case RetestWait:
		return "retest wait"
	case ImbalanceWait:
		return "imbalance wait"
	case ReversalWait:
		return "reversal wait"
	case InPosition:
		return "in position"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}
