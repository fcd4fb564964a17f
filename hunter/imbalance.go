package hunter

import (
	"math"

	"github.com/dnldd/hunter/shared"
)

// ImbalanceZone represents a three candle liquidity gap left behind by
// displacement near the broken level. It acts as a high probability reaction
// zone for price.
type ImbalanceZone struct {
	Top    float64
	Bottom float64
	// FormedAt is the number of candles after the breakout at which the
	// zone formed.
	FormedAt int
}

// Size returns the size of the imbalance zone.
func (z *ImbalanceZone) Size() float64 {
	return z.Top - z.Bottom
}

// Mid returns the midpoint of the imbalance zone.
func (z *ImbalanceZone) Mid() float64 {
	return (z.Top + z.Bottom) / 2
}

// ImbalanceReversalStrategy confirms a breakout by waiting for an imbalance
// zone to form near the broken level and a reversal candle inside it.
type ImbalanceReversalStrategy struct {
	direction           shared.Direction
	anchor              *AnchorRange
	minZoneSizePct      float64
	proximityMultiple   float64
	zoneTimeoutBars     int
	reversalTimeoutBars int
	stopBufferRatio     float64

	zone              *ImbalanceZone
	barsSinceBreakout int
	barsSinceZone     int
}

// Ensure the imbalance reversal strategy implements the EntryStrategy interface.
var _ EntryStrategy = (*ImbalanceReversalStrategy)(nil)

// NewImbalanceReversalStrategy initializes a new imbalance reversal strategy.
func NewImbalanceReversalStrategy(cfg *HunterConfig, anchor *AnchorRange) *ImbalanceReversalStrategy {
	return &ImbalanceReversalStrategy{
		direction:           cfg.Direction,
		anchor:              anchor,
		minZoneSizePct:      cfg.MinZoneSizePct,
		proximityMultiple:   cfg.ZoneProximityMultiple,
		zoneTimeoutBars:     cfg.ZoneTimeoutBars,
		reversalTimeoutBars: cfg.ReversalTimeoutBars,
		stopBufferRatio:     cfg.StopBufferRatio,
	}
}

// WaitState returns the hunter state representing the strategy's current
// wait phase.
func (s *ImbalanceReversalStrategy) WaitState() State {
	if s.zone == nil {
		return ImbalanceWait
	}

	return ReversalWait
}

// Arm readies the strategy for a freshly confirmed breakout.
func (s *ImbalanceReversalStrategy) Arm() {
	s.zone = nil
	s.barsSinceBreakout = 0
	s.barsSinceZone = 0
}

// ConfirmEntry evaluates the latest candle of the provided window, first for
// imbalance zone formation and then for a reversal inside the formed zone.
func (s *ImbalanceReversalStrategy) ConfirmEntry(window []*shared.Candlestick) *EntryConfirmation {
	if s.zone == nil {
		return s.scanZone(window)
	}

	return s.checkReversal(window)
}

// scanZone inspects the last three candles of the window for a liquidity gap
// near the broken level.
func (s *ImbalanceReversalStrategy) scanZone(window []*shared.Candlestick) *EntryConfirmation {
	s.barsSinceBreakout++
	if s.barsSinceBreakout > s.zoneTimeoutBars {
		return &EntryConfirmation{Status: EntryAbandoned, Abandon: NoImbalance}
	}

	if len(window) < 3 {
		return &EntryConfirmation{Status: EntryWaiting, Reason: AwaitingImbalance}
	}

	first := window[len(window)-3]
	third := window[len(window)-1]

	span := s.anchor.Span
	if span <= 0 {
		span = 1
	}

	var top, bottom, sizePct, levelDistance float64
	var gap bool
	switch s.direction {
	case shared.Long:
		// A bullish imbalance requires the first candle's high to sit below
		// the third candle's low.
		gap = first.High < third.Low
		if gap {
			bottom, top = first.High, third.Low
			sizePct = (top - bottom) / bottom
			levelDistance = math.Abs((top+bottom)/2-s.anchor.High) / span
		}
	case shared.Short:
		// A bearish imbalance requires the first candle's low to sit above
		// the third candle's high.
		gap = first.Low > third.High
		if gap {
			bottom, top = third.High, first.Low
			sizePct = (top - bottom) / top
			levelDistance = math.Abs((top+bottom)/2-s.anchor.Low) / span
		}
	}

	// Reject noise sized gaps and gaps that have drifted too far from the
	// broken level to matter.
	if gap && sizePct >= s.minZoneSizePct && levelDistance <= s.proximityMultiple {
		s.zone = &ImbalanceZone{
			Top:      top,
			Bottom:   bottom,
			FormedAt: s.barsSinceBreakout,
		}
		s.barsSinceZone = 0

		return &EntryConfirmation{Status: EntryWaiting, Reason: ImbalanceFormed}
	}

	return &EntryConfirmation{Status: EntryWaiting, Reason: AwaitingImbalance}
}

// checkReversal inspects the latest candle of the window for an engulfing
// reversal inside the formed zone.
func (s *ImbalanceReversalStrategy) checkReversal(window []*shared.Candlestick) *EntryConfirmation {
	s.barsSinceZone++
	if s.barsSinceZone > s.reversalTimeoutBars {
		return &EntryConfirmation{Status: EntryAbandoned, Abandon: ReversalTimeout}
	}

	if len(window) < 2 {
		return &EntryConfirmation{Status: EntryWaiting, Reason: AwaitingReversal}
	}

	prev := window[len(window)-2]
	current := window[len(window)-1]

	switch s.direction {
	case shared.Long:
		tradedIntoZone := current.Low <= s.zone.Top
		if tradedIntoZone && current.Engulfs(prev, shared.Long) {
			return &EntryConfirmation{
				Status:     EntryConfirmed,
				EntryPrice: current.Close,
				StopLoss:   s.zone.Bottom - s.zone.Size()*s.stopBufferRatio,
			}
		}

		// A close fully through the far side of the zone invalidates it.
		if current.Close < s.zone.Bottom {
			return &EntryConfirmation{Status: EntryAbandoned, Abandon: ZoneInvalidated}
		}

	case shared.Short:
		tradedIntoZone := current.High >= s.zone.Bottom
		if tradedIntoZone && current.Engulfs(prev, shared.Short) {
			return &EntryConfirmation{
				Status:     EntryConfirmed,
				EntryPrice: current.Close,
				StopLoss:   s.zone.Top + s.zone.Size()*s.stopBufferRatio,
			}
		}

		if current.Close > s.zone.Top {
			return &EntryConfirmation{Status: EntryAbandoned, Abandon: ZoneInvalidated}
		}
	}

	return &EntryConfirmation{Status: EntryWaiting, Reason: AwaitingReversal}
}

// Zone returns the currently formed imbalance zone, if any.
func (s *ImbalanceReversalStrategy) Zone() *ImbalanceZone {
	return s.zone
}
