package hunter

import (
	"fmt"

	"github.com/dnldd/hunter/shared"
)

// AnchorRange represents the reference price range established from the
// anchor candle. It is immutable once created.
type AnchorRange struct {
	High float64
	Low  float64
	Mid  float64
	Span float64
}

// NewAnchorRange initializes a new anchor range from the provided candle.
func NewAnchorRange(candle *shared.Candlestick) (*AnchorRange, error) {
	err := candle.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating anchor candle: %v", err)
	}

	anchor := &AnchorRange{
		High: candle.High,
		Low:  candle.Low,
		Mid:  (candle.High + candle.Low) / 2,
		Span: candle.High - candle.Low,
	}

	return anchor, nil
}

// BreakoutLevel returns the range bound acting as the breakout trigger for
// the provided direction.
func (r *AnchorRange) BreakoutLevel(direction shared.Direction) float64 {
	switch direction {
	case shared.Short:
		return r.Low
	default:
		return r.High
	}
}
