package hunter

import (
	"github.com/dnldd/hunter/shared"
)

// RetestStrategy confirms a breakout by waiting for price to pull back to
// the broken level and close beyond it again.
type RetestStrategy struct {
	direction      shared.Direction
	anchor         *AnchorRange
	stopRangeRatio float64
}

// Ensure the retest strategy implements the EntryStrategy interface.
var _ EntryStrategy = (*RetestStrategy)(nil)

// NewRetestStrategy initializes a new retest strategy.
func NewRetestStrategy(direction shared.Direction, anchor *AnchorRange, stopRangeRatio float64) *RetestStrategy {
	return &RetestStrategy{
		direction:      direction,
		anchor:         anchor,
		stopRangeRatio: stopRangeRatio,
	}
}

// WaitState returns the hunter state representing the strategy's current
// wait phase.
func (s *RetestStrategy) WaitState() State {
	return RetestWait
}

// Arm readies the strategy for a freshly confirmed breakout.
func (s *RetestStrategy) Arm() {}

// ConfirmEntry evaluates the latest candle of the provided window for a
// retest of the broken level. A close back through the range midpoint is a
// genuine reversal and fails the confirmation, re-arming breakout detection.
func (s *RetestStrategy) ConfirmEntry(window []*shared.Candlestick) *EntryConfirmation {
	candle := window[len(window)-1]

	switch s.direction {
	case shared.Long:
		touched := candle.Low <= s.anchor.High
		validClose := candle.Close > s.anchor.High

		switch {
		case touched && validClose:
			return &EntryConfirmation{
				Status:     EntryConfirmed,
				EntryPrice: candle.Close,
				StopLoss:   s.anchor.High - s.anchor.Span*s.stopRangeRatio,
			}
		case candle.Close < s.anchor.Mid:
			return &EntryConfirmation{Status: EntryFailed, Reason: RetestFailed}
		}

	case shared.Short:
		touched := candle.High >= s.anchor.Low
		validClose := candle.Close < s.anchor.Low

		switch {
		case touched && validClose:
			return &EntryConfirmation{
				Status:     EntryConfirmed,
				EntryPrice: candle.Close,
				StopLoss:   s.anchor.Low + s.anchor.Span*s.stopRangeRatio,
			}
		case candle.Close > s.anchor.Mid:
			return &EntryConfirmation{Status: EntryFailed, Reason: RetestFailed}
		}
	}

	return &EntryConfirmation{Status: EntryWaiting, Reason: AwaitingRetest}
}
