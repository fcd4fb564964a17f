package hunter

import (
	"github.com/dnldd/hunter/shared"
)

// EntryStatus represents the status of an entry confirmation check.
type EntryStatus int

const (
	// EntryWaiting means the confirmation criteria have not been met yet.
	EntryWaiting EntryStatus = iota
	// EntryConfirmed means the confirmation criteria have been met.
	EntryConfirmed
	// EntryFailed means confirmation failed and breakout detection re-arms.
	EntryFailed
	// EntryAbandoned means confirmation can no longer occur and the hunt
	// concludes.
	EntryAbandoned
)

// EntryConfirmation is the outcome of a single entry confirmation check.
type EntryConfirmation struct {
	Status EntryStatus
	// EntryPrice and StopLoss are set when the status is EntryConfirmed.
	EntryPrice float64
	StopLoss   float64
	// Reason is set when the status is EntryWaiting or EntryFailed.
	Reason WaitReason
	// Abandon is set when the status is EntryAbandoned.
	Abandon ExitReason
}

// EntryStrategy defines the second stage filter applied after a confirmed
// breakout, before committing to a position.
type EntryStrategy interface {
	// ConfirmEntry evaluates the latest candle of the provided window
	// against the strategy's confirmation criteria.
	ConfirmEntry(window []*shared.Candlestick) *EntryConfirmation
	// WaitState returns the hunter state representing the strategy's
	// current wait phase.
	WaitState() State
	// Arm readies the strategy for a freshly confirmed breakout.
	Arm()
}
