package hunter

import (
	"math"
	"time"

	"github.com/dnldd/hunter/shared"
)

// Position represents an open position created by a confirmed entry. A fresh
// position is constructed for every entry, no fields survive an exit.
type Position struct {
	Market    string
	Direction shared.Direction
	// EntryPrice is the confirmed entry price.
	EntryPrice float64
	// InitialStop is fixed at entry and never changes.
	InitialStop float64
	// TrailingStop only ever moves in the favorable direction.
	TrailingStop float64
	// PeakPrice is the best price seen since entry.
	PeakPrice float64
	// EntryBarIndex is the candle index at which the position was opened.
	EntryBarIndex int
	// EntryTime is the timestamp of the entry candle.
	EntryTime time.Time
	// BarsHeld is the number of candles the position has been held for.
	BarsHeld int
	// RiskMultiple is the current unrealized profit or loss expressed as a
	// multiple of the initial stop distance.
	RiskMultiple float64
	// ProfitFloor is the minimum risk multiple guaranteed by the profit lock
	// table. Negative until a floor is locked.
	ProfitFloor float64
	// Degenerate flags a zero stop distance substituted with a floor of 1.
	Degenerate bool
}

// NewPosition initializes a new position.
func NewPosition(market string, direction shared.Direction, entryPrice float64, stopLoss float64,
	barIndex int, entryTime time.Time) *Position {
	return &Position{
		Market:        market,
		Direction:     direction,
		EntryPrice:    entryPrice,
		InitialStop:   stopLoss,
		TrailingStop:  stopLoss,
		PeakPrice:     entryPrice,
		EntryBarIndex: barIndex,
		EntryTime:     entryTime,
		ProfitFloor:   -1,
	}
}

// Risk returns the initial stop distance of the position. A zero distance is
// substituted with a floor of 1 and flagged as degenerate so a single
// pathological entry does not kill the hunt.
func (p *Position) Risk() float64 {
	risk := math.Abs(p.EntryPrice - p.InitialStop)
	if risk <= 0 {
		p.Degenerate = true
		return 1
	}

	return risk
}

// UpdateRiskMultiple recomputes the position's current risk multiple from
// the provided close price.
func (p *Position) UpdateRiskMultiple(closePrice float64) float64 {
	risk := p.Risk()

	switch p.Direction {
	case shared.Short:
		p.RiskMultiple = (p.EntryPrice - closePrice) / risk
	default:
		p.RiskMultiple = (closePrice - p.EntryPrice) / risk
	}

	return p.RiskMultiple
}

// RealizedRR returns the realized risk multiple for the provided exit price.
func (p *Position) RealizedRR(exitPrice float64) float64 {
	risk := p.Risk()

	switch p.Direction {
	case shared.Short:
		return (p.EntryPrice - exitPrice) / risk
	default:
		return (exitPrice - p.EntryPrice) / risk
	}
}

// UpdatePeak updates the best price seen since entry using the provided
// candle's favorable extreme.
func (p *Position) UpdatePeak(candle *shared.Candlestick) {
	switch p.Direction {
	case shared.Short:
		if candle.Low < p.PeakPrice {
			p.PeakPrice = candle.Low
		}
	default:
		if candle.High > p.PeakPrice {
			p.PeakPrice = candle.High
		}
	}
}

// UpdateProfitFloor raises the guaranteed floor to the highest table entry
// whose threshold has been reached. The floor is never lowered.
func (p *Position) UpdateProfitFloor(table []ProfitLockLevel) {
	for idx := range table {
		level := table[idx]
		if p.RiskMultiple >= level.Threshold && level.Floor > p.ProfitFloor {
			p.ProfitFloor = level.Floor
		}
	}
}

// ProfitFloorPrice returns the exit price guaranteeing the locked floor.
func (p *Position) ProfitFloorPrice() float64 {
	risk := p.Risk()

	switch p.Direction {
	case shared.Short:
		return p.EntryPrice - risk*p.ProfitFloor
	default:
		return p.EntryPrice + risk*p.ProfitFloor
	}
}

// RaiseTrailingStop ratchets the trailing stop to the provided price if it
// is more protective than the current one. The stop never loosens.
func (p *Position) RaiseTrailingStop(price float64) {
	switch p.Direction {
	case shared.Short:
		if price < p.TrailingStop {
			p.TrailingStop = price
		}
	default:
		if price > p.TrailingStop {
			p.TrailingStop = price
		}
	}
}

// StopHit checks whether the provided candle touched the trailing stop.
func (p *Position) StopHit(candle *shared.Candlestick) bool {
	switch p.Direction {
	case shared.Short:
		return candle.High >= p.TrailingStop
	default:
		return candle.Low <= p.TrailingStop
	}
}
