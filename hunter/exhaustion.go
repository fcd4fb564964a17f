package hunter

import (
	"github.com/dnldd/hunter/shared"
)

const (
	// momentumDecayRatio is the fraction of the previous candle body below
	// which momentum decay fires.
	momentumDecayRatio = 0.45
	// volumeLookback is the number of recent candles averaged for volume
	// divergence checks.
	volumeLookback = 3
)

// ExhaustionCause identifies a single exhaustion signal.
type ExhaustionCause int

const (
	// VolumeDivergence fires when price keeps moving favorably on shrinking
	// volume.
	VolumeDivergence ExhaustionCause = iota
	// WickExpansion fires when the adverse wick grows beyond the configured
	// minimum, signalling opposing pressure.
	WickExpansion
	// MomentumDecay fires when the candle body shrinks sharply against the
	// previous one.
	MomentumDecay
	// ConsecutiveReversal fires on two consecutive closes against the trade
	// direction.
	ConsecutiveReversal
)

// String stringifies the provided exhaustion cause.
func (c ExhaustionCause) String() string {
	switch c {
	case VolumeDivergence:
		return "volume divergence"
	case WickExpansion:
		return "wick expansion"
	case MomentumDecay:
		return "momentum decay"
	case ConsecutiveReversal:
		return "consecutive reversal"
	default:
		return "unknown"
	}
}

// ExhaustionSignal represents the composite exhaustion score of a candle. It
// is recomputed fresh every candle and never persisted.
type ExhaustionSignal struct {
	Causes  []ExhaustionCause
	Urgency int
}

// DetectExhaustion scores the latest candle of the provided window for signs
// that the favorable move is running out of participation.
func DetectExhaustion(window []*shared.Candlestick, direction shared.Direction,
	volumeDropRatio float64, wickRatioMin float64) *ExhaustionSignal {
	signal := &ExhaustionSignal{}
	if len(window) < volumeLookback {
		return signal
	}

	current := window[len(window)-1]
	prev := window[len(window)-2]

	var priceContinuing, reversal, prevReversal bool
	var adverseWick float64
	switch direction {
	case shared.Short:
		priceContinuing = current.Close < prev.Close
		adverseWick = current.LowerWickRatio()
		reversal = current.Close > current.Open
		prevReversal = prev.Close > prev.Open
	default:
		priceContinuing = current.Close > prev.Close
		adverseWick = current.UpperWickRatio()
		reversal = current.Close < current.Open
		prevReversal = prev.Close < prev.Open
	}

	recent := window[len(window)-volumeLookback:]
	var volumeSum float64
	for idx := range recent {
		volumeSum += recent[idx].Volume
	}
	averageVolume := volumeSum / float64(len(recent))

	if priceContinuing && current.Volume < averageVolume*volumeDropRatio {
		signal.Causes = append(signal.Causes, VolumeDivergence)
	}

	if adverseWick > wickRatioMin {
		signal.Causes = append(signal.Causes, WickExpansion)
	}

	if prev.Body() > 0 && current.Body() < prev.Body()*momentumDecayRatio {
		signal.Causes = append(signal.Causes, MomentumDecay)
	}

	if reversal && prevReversal {
		signal.Causes = append(signal.Causes, ConsecutiveReversal)
	}

	signal.Urgency = len(signal.Causes)
	return signal
}
