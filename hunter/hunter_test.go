package hunter

import (
	"errors"
	"testing"
	"time"

	"github.com/dnldd/hunter/shared"
	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

var testBase = time.Date(2024, time.June, 3, 9, 30, 0, 0, time.UTC)

// candleAt creates a five minute test candle at the provided bar offset from
// the test base time.
func candleAt(bar int, open, high, low, closePrice, volume float64) *shared.Candlestick {
	return &shared.Candlestick{
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
		Date:      testBase.Add(time.Duration(bar) * time.Minute * 5),
		Market:    "^GSPC",
		Timeframe: shared.FiveMinute,
	}
}

// setupHunter creates a hunter from the provided config with test defaults
// applied.
func setupHunter(t *testing.T, cfg *HunterConfig) *Hunter {
	t.Helper()

	if cfg.Market == "" {
		cfg.Market = "^GSPC"
	}
	cfg.Logger = log.Logger

	h, err := NewHunter(cfg)
	assert.NoError(t, err)

	return h
}

func TestHunterProtocol(t *testing.T) {
	h := setupHunter(t, &HunterConfig{Direction: shared.Long})

	// Ensure candles cannot be processed before the anchor range exists.
	_, err := h.Update(candleAt(1, 103, 104.5, 102, 104, 800))
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidState))

	// Ensure a malformed anchor candle is rejected.
	_, err = h.EstablishRange(candleAt(0, 100.5, 99, 100, 104, 1000), 1000)
	assert.Error(t, err)
	assert.Equal(t, h.State(), Ready)

	// Ensure the anchor range can be established exactly once.
	anchor, err := h.EstablishRange(candleAt(0, 100.5, 105, 100, 104, 1000), 1000)
	assert.NoError(t, err)
	assert.Equal(t, anchor.High, float64(105))
	assert.Equal(t, anchor.Low, float64(100))
	assert.Equal(t, anchor.Mid, 102.5)
	assert.Equal(t, anchor.Span, float64(5))
	assert.Equal(t, h.State(), Watching)

	_, err = h.EstablishRange(candleAt(0, 100.5, 105, 100, 104, 1000), 1000)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidState))

	// Ensure anomalous candles are rejected without advancing the state machine.
	result, err := h.Update(candleAt(1, 103, 102, 104.5, 104, 800))
	assert.NoError(t, err)
	invalid, ok := result.(*Invalid)
	assert.True(t, ok)
	assert.Equal(t, invalid.BarIndex, 0)
	assert.Equal(t, h.State(), Watching)

	// Ensure out of order candles are rejected.
	result, err = h.Update(candleAt(0, 103, 104.5, 102, 104, 800))
	assert.NoError(t, err)
	_, ok = result.(*Invalid)
	assert.True(t, ok)
	assert.Equal(t, h.State(), Watching)
}

func TestRetestEntryFlow(t *testing.T) {
	h := setupHunter(t, &HunterConfig{Direction: shared.Long, Strategy: Retest})

	_, err := h.EstablishRange(candleAt(0, 100.5, 105, 100, 104, 1000), 1000)
	assert.NoError(t, err)

	// Ensure a candle inside the range produces no transition.
	result, err := h.Update(candleAt(1, 103, 104.5, 102, 104, 800))
	assert.NoError(t, err)
	wait, ok := result.(*Wait)
	assert.True(t, ok)
	assert.Equal(t, wait.Reason, AwaitingBreakout)
	assert.Equal(t, wait.BarIndex, 1)

	// Ensure a breakout with a volume surge confirms and transitions to the
	// retest wait.
	result, err = h.Update(candleAt(2, 105.5, 107.5, 105.2, 107, 1600))
	assert.NoError(t, err)
	wait, ok = result.(*Wait)
	assert.True(t, ok)
	assert.Equal(t, wait.Reason, BreakoutConfirmed)
	assert.Equal(t, h.State(), RetestWait)

	// Ensure a pullback touching the broken level and closing beyond it
	// confirms the entry.
	result, err = h.Update(candleAt(3, 105.5, 108.2, 104, 108, 1400))
	assert.NoError(t, err)
	entered, ok := result.(*Entered)
	assert.True(t, ok)
	assert.Equal(t, entered.Position.EntryPrice, float64(108))
	assert.Equal(t, entered.Position.InitialStop, float64(102))
	assert.Equal(t, h.State(), InPosition)

	// Ensure a favorable candle holds and shifts the stop to breakeven once
	// the breakeven risk multiple is reached.
	result, err = h.Update(candleAt(4, 108.3, 110.2, 108.2, 110, 1200))
	assert.NoError(t, err)
	holding, ok := result.(*Holding)
	assert.True(t, ok)
	assert.Equal(t, holding.RiskMultiple, (110.0-108.0)/6.0)
	assert.Equal(t, holding.Position.TrailingStop, float64(108))
	assert.Equal(t, holding.Exhaustion.Urgency, 0)

	// Ensure reaching a profit lock threshold raises the guaranteed floor.
	result, err = h.Update(candleAt(5, 110.2, 114.2, 109.8, 114, 1800))
	assert.NoError(t, err)
	holding, ok = result.(*Holding)
	assert.True(t, ok)
	assert.Equal(t, holding.RiskMultiple, 1.0)
	assert.Equal(t, holding.Position.ProfitFloor, 0.5)
	assert.Equal(t, holding.Position.TrailingStop, float64(111))

	// Ensure touching the locked floor exits at it.
	result, err = h.Update(candleAt(6, 112.5, 113, 110.5, 112, 900))
	assert.NoError(t, err)
	exited, ok := result.(*Exited)
	assert.True(t, ok)
	assert.Equal(t, exited.Reason, ProfitLock)
	assert.Equal(t, exited.ExitPrice, float64(111))
	assert.Equal(t, exited.RealizedRR, 0.5)
	assert.Equal(t, exited.BarsHeld, 3)
	assert.Equal(t, h.State(), Done)

	// Ensure candles after conclusion produce no transitions.
	result, err = h.Update(candleAt(7, 111, 112, 110, 111.5, 700))
	assert.NoError(t, err)
	wait, ok = result.(*Wait)
	assert.True(t, ok)
	assert.Equal(t, wait.Reason, Concluded)
}

func TestShortRetestFlow(t *testing.T) {
	h := setupHunter(t, &HunterConfig{Direction: shared.Short, Strategy: Retest})

	_, err := h.EstablishRange(candleAt(0, 104.5, 105, 100, 100.6, 1000), 1000)
	assert.NoError(t, err)

	// Ensure a downside breakout confirms against the range low.
	result, err := h.Update(candleAt(1, 99.5, 99.8, 98, 98.2, 1600))
	assert.NoError(t, err)
	wait, ok := result.(*Wait)
	assert.True(t, ok)
	assert.Equal(t, wait.Reason, BreakoutConfirmed)
	assert.Equal(t, h.State(), RetestWait)

	// Ensure a retest of the range low confirms a short entry.
	result, err = h.Update(candleAt(2, 99.5, 100.2, 97.8, 98, 1400))
	assert.NoError(t, err)
	entered, ok := result.(*Entered)
	assert.True(t, ok)
	assert.Equal(t, entered.Position.EntryPrice, float64(98))
	assert.Equal(t, entered.Position.InitialStop, float64(103))

	// Ensure favorable downside movement shifts the stop to breakeven.
	result, err = h.Update(candleAt(3, 97.8, 97.9, 95.5, 96, 1300))
	assert.NoError(t, err)
	holding, ok := result.(*Holding)
	assert.True(t, ok)
	assert.Equal(t, holding.Position.TrailingStop, float64(98))

	// Ensure an adverse candle through the trailing stop exits at it.
	result, err = h.Update(candleAt(4, 96.5, 98.5, 96.4, 98.2, 1000))
	assert.NoError(t, err)
	exited, ok := result.(*Exited)
	assert.True(t, ok)
	assert.Equal(t, exited.Reason, Trailing)
	assert.Equal(t, exited.ExitPrice, float64(98))
	assert.Equal(t, exited.RealizedRR, float64(0))
}

func TestChoppyAbandon(t *testing.T) {
	h := setupHunter(t, &HunterConfig{Direction: shared.Long, Strategy: Retest})

	_, err := h.EstablishRange(candleAt(0, 100.5, 105, 100, 104, 1000), 1000)
	assert.NoError(t, err)

	// Ensure wick pierces without closing confirmation count as failed
	// breakout attempts.
	for bar := 1; bar <= 2; bar++ {
		result, err := h.Update(candleAt(bar, 103, 106, 102.5, 104, 1600))
		assert.NoError(t, err)
		wait, ok := result.(*Wait)
		assert.True(t, ok)
		assert.Equal(t, wait.Reason, FailedBreakoutAttempt)
	}
	assert.Equal(t, h.BreakoutAttempts(), 2)

	// Ensure the third failed attempt abandons the hunt without a position.
	result, err := h.Update(candleAt(3, 103, 106, 102.5, 104, 1600))
	assert.NoError(t, err)
	exited, ok := result.(*Exited)
	assert.True(t, ok)
	assert.Equal(t, exited.Reason, Choppy)
	assert.Nil(t, exited.Position)
	assert.Equal(t, h.State(), Done)
}

func TestLowVolumeBreakout(t *testing.T) {
	h := setupHunter(t, &HunterConfig{Direction: shared.Long, Strategy: Retest})

	_, err := h.EstablishRange(candleAt(0, 100.5, 105, 100, 104, 1000), 1000)
	assert.NoError(t, err)

	// Ensure a clean breakout without the required volume surge neither
	// confirms nor counts as a failed attempt.
	result, err := h.Update(candleAt(1, 105.5, 107, 105.2, 106.5, 1000))
	assert.NoError(t, err)
	wait, ok := result.(*Wait)
	assert.True(t, ok)
	assert.Equal(t, wait.Reason, LowVolumeBreakout)
	assert.Equal(t, h.State(), Watching)
	assert.Equal(t, h.BreakoutAttempts(), 0)
}

func TestRetestFailureRearms(t *testing.T) {
	h := setupHunter(t, &HunterConfig{Direction: shared.Long, Strategy: Retest})

	_, err := h.EstablishRange(candleAt(0, 100.5, 105, 100, 104, 1000), 1000)
	assert.NoError(t, err)

	_, err = h.Update(candleAt(1, 105.5, 107.5, 105.2, 107, 1600))
	assert.NoError(t, err)
	assert.Equal(t, h.State(), RetestWait)

	// Ensure a pullback closing through the range midpoint fails the retest
	// and re-arms breakout detection.
	result, err := h.Update(candleAt(2, 105, 105.5, 101, 102, 1000))
	assert.NoError(t, err)
	wait, ok := result.(*Wait)
	assert.True(t, ok)
	assert.Equal(t, wait.Reason, RetestFailed)
	assert.Equal(t, h.State(), Watching)
	assert.Equal(t, h.BreakoutAttempts(), 1)
}

func TestFixedTargetMode(t *testing.T) {
	// Ensure a candle spanning both the stop and the target resolves to the
	// stop.
	h := setupHunter(t, &HunterConfig{Direction: shared.Long, Strategy: Retest, FixedRR: 2})

	_, err := h.EstablishRange(candleAt(0, 100.5, 105, 100, 104, 1000), 1000)
	assert.NoError(t, err)
	_, err = h.Update(candleAt(1, 105.5, 107.5, 105.2, 107, 1600))
	assert.NoError(t, err)
	result, err := h.Update(candleAt(2, 105.5, 108.2, 104, 108, 1400))
	assert.NoError(t, err)
	_, ok := result.(*Entered)
	assert.True(t, ok)

	result, err = h.Update(candleAt(3, 108, 121, 101, 119, 2000))
	assert.NoError(t, err)
	exited, ok := result.(*Exited)
	assert.True(t, ok)
	assert.Equal(t, exited.Reason, StopLoss)
	assert.Equal(t, exited.ExitPrice, float64(102))
	assert.Equal(t, exited.RealizedRR, float64(-1))

	// Ensure a candle reaching only the target takes profit at it.
	h = setupHunter(t, &HunterConfig{Direction: shared.Long, Strategy: Retest, FixedRR: 2})

	_, err = h.EstablishRange(candleAt(0, 100.5, 105, 100, 104, 1000), 1000)
	assert.NoError(t, err)
	_, err = h.Update(candleAt(1, 105.5, 107.5, 105.2, 107, 1600))
	assert.NoError(t, err)
	_, err = h.Update(candleAt(2, 105.5, 108.2, 104, 108, 1400))
	assert.NoError(t, err)

	result, err = h.Update(candleAt(3, 108, 120.5, 107, 119, 2000))
	assert.NoError(t, err)
	exited, ok = result.(*Exited)
	assert.True(t, ok)
	assert.Equal(t, exited.Reason, TakeProfit)
	assert.Equal(t, exited.ExitPrice, float64(120))
	assert.Equal(t, exited.RealizedRR, float64(2))
}

func TestExhaustionExit(t *testing.T) {
	h := setupHunter(t, &HunterConfig{Direction: shared.Long, Strategy: Retest})

	_, err := h.EstablishRange(candleAt(0, 100.5, 105, 100, 104, 1000), 1000)
	assert.NoError(t, err)
	_, err = h.Update(candleAt(1, 103, 104.5, 102, 104, 800))
	assert.NoError(t, err)
	_, err = h.Update(candleAt(2, 105.5, 107.5, 105.2, 107, 1600))
	assert.NoError(t, err)
	result, err := h.Update(candleAt(3, 105.5, 108.2, 104, 108, 1400))
	assert.NoError(t, err)
	_, ok := result.(*Entered)
	assert.True(t, ok)

	result, err = h.Update(candleAt(4, 108.3, 110.2, 108.2, 110, 1200))
	assert.NoError(t, err)
	_, ok = result.(*Holding)
	assert.True(t, ok)

	// Ensure a candle stacking volume divergence, wick expansion and
	// momentum decay forces an exit at its close while the trade is still
	// profitable.
	result, err = h.Update(candleAt(5, 110.2, 111.5, 109, 110.1, 500))
	assert.NoError(t, err)
	exited, ok := result.(*Exited)
	assert.True(t, ok)
	assert.Equal(t, exited.Reason, Exhaustion)
	assert.Equal(t, exited.ExitPrice, 110.1)
	assert.True(t, exited.RealizedRR > 0)
	assert.Equal(t, h.State(), Done)
}

func TestSessionCutoff(t *testing.T) {
	// Ensure the cutoff concludes a positionless hunt.
	h := setupHunter(t, &HunterConfig{Direction: shared.Long, Strategy: Retest, CutoffTime: "10:00"})

	_, err := h.EstablishRange(candleAt(0, 100.5, 105, 100, 104, 1000), 1000)
	assert.NoError(t, err)
	_, err = h.Update(candleAt(1, 103, 104.5, 102, 104, 800))
	assert.NoError(t, err)

	result, err := h.Update(candleAt(6, 103, 104.5, 102, 104, 800))
	assert.NoError(t, err)
	exited, ok := result.(*Exited)
	assert.True(t, ok)
	assert.Equal(t, exited.Reason, TimeLimit)
	assert.Nil(t, exited.Position)
	assert.Equal(t, h.State(), Done)

	// Ensure the cutoff closes an open position at the candle close.
	h = setupHunter(t, &HunterConfig{Direction: shared.Long, Strategy: Retest, CutoffTime: "10:30"})

	_, err = h.EstablishRange(candleAt(0, 100.5, 105, 100, 104, 1000), 1000)
	assert.NoError(t, err)
	_, err = h.Update(candleAt(1, 105.5, 107.5, 105.2, 107, 1600))
	assert.NoError(t, err)
	result, err = h.Update(candleAt(2, 105.5, 108.2, 104, 108, 1400))
	assert.NoError(t, err)
	_, ok = result.(*Entered)
	assert.True(t, ok)

	result, err = h.Update(candleAt(12, 110, 111, 109.5, 110.5, 900))
	assert.NoError(t, err)
	exited, ok = result.(*Exited)
	assert.True(t, ok)
	assert.Equal(t, exited.Reason, TimeLimit)
	assert.Equal(t, exited.ExitPrice, 110.5)
	assert.Equal(t, exited.Position.BarsHeld, 1)
}

func TestDegenerateReferenceVolume(t *testing.T) {
	h := setupHunter(t, &HunterConfig{Direction: shared.Long, Strategy: Retest})

	// Ensure a non-positive reference volume falls back to the anchor
	// candle's volume and flags the hunt.
	_, err := h.EstablishRange(candleAt(0, 100.5, 105, 100, 104, 1000), 0)
	assert.NoError(t, err)

	result, err := h.Update(candleAt(1, 103, 104.5, 102, 104, 800))
	assert.NoError(t, err)
	wait, ok := result.(*Wait)
	assert.True(t, ok)
	assert.True(t, wait.Degenerate)
}

func TestEntryWindow(t *testing.T) {
	h := setupHunter(t, &HunterConfig{
		Direction:   shared.Long,
		Strategy:    Retest,
		GoldenStart: "09:00",
		GoldenEnd:   "09:40",
	})

	_, err := h.EstablishRange(candleAt(0, 100.5, 105, 100, 104, 1000), 1000)
	assert.NoError(t, err)
	_, err = h.Update(candleAt(1, 105.5, 107.5, 105.2, 107, 1600))
	assert.NoError(t, err)

	// Ensure a confirmed entry outside the entry window is held back.
	result, err := h.Update(candleAt(3, 105.5, 108.2, 104, 108, 1400))
	assert.NoError(t, err)
	wait, ok := result.(*Wait)
	assert.True(t, ok)
	assert.Equal(t, wait.Reason, OutsideEntryWindow)
	assert.Equal(t, h.State(), RetestWait)
}

func TestDeterminism(t *testing.T) {
	candles := []*shared.Candlestick{
		candleAt(1, 103, 104.5, 102, 104, 800),
		candleAt(2, 105.5, 107.5, 105.2, 107, 1600),
		candleAt(3, 105.5, 108.2, 104, 108, 1400),
		candleAt(4, 108.3, 110.2, 108.2, 110, 1200),
		candleAt(5, 110.2, 114.2, 109.8, 114, 1800),
		candleAt(6, 112.5, 113, 110.5, 112, 900),
		candleAt(7, 111, 112, 110, 111.5, 700),
	}

	run := func() []Result {
		h := setupHunter(t, &HunterConfig{Direction: shared.Long, Strategy: Retest})
		_, err := h.EstablishRange(candleAt(0, 100.5, 105, 100, 104, 1000), 1000)
		assert.NoError(t, err)

		results := make([]Result, 0, len(candles))
		for idx := range candles {
			result, err := h.Update(candles[idx])
			assert.NoError(t, err)
			results = append(results, result)
		}

		return results
	}

	// Ensure two hunters fed the same candle sequence produce identical
	// result sequences.
	first := run()
	second := run()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("result sequences diverge (-first +second):\n%s", diff)
	}
}

func TestImbalanceReversalFlow(t *testing.T) {
	h := setupHunter(t, &HunterConfig{Direction: shared.Long, Strategy: ImbalanceReversal})

	_, err := h.EstablishRange(candleAt(0, 100.5, 105, 100, 104, 1000), 1000)
	assert.NoError(t, err)

	// Ensure a confirmed breakout transitions to the imbalance wait.
	result, err := h.Update(candleAt(1, 105.5, 107.5, 105.2, 107, 1600))
	assert.NoError(t, err)
	wait, ok := result.(*Wait)
	assert.True(t, ok)
	assert.Equal(t, wait.Reason, BreakoutConfirmed)
	assert.Equal(t, h.State(), ImbalanceWait)

	// Ensure no zone forms before three post-breakout candles exist.
	result, err = h.Update(candleAt(2, 107, 108.5, 106.8, 108.2, 900))
	assert.NoError(t, err)
	wait, ok = result.(*Wait)
	assert.True(t, ok)
	assert.Equal(t, wait.Reason, AwaitingImbalance)
	assert.Equal(t, h.State(), ImbalanceWait)

	// Ensure a three candle gap near the broken level forms a zone.
	result, err = h.Update(candleAt(3, 108.4, 109.5, 107.8, 109, 950))
	assert.NoError(t, err)
	wait, ok = result.(*Wait)
	assert.True(t, ok)
	assert.Equal(t, wait.Reason, ImbalanceFormed)
	assert.Equal(t, h.State(), ReversalWait)

	// Ensure a pullback into the zone without an engulfing reversal waits.
	result, err = h.Update(candleAt(4, 109, 109.2, 107.6, 107.9, 700))
	assert.NoError(t, err)
	wait, ok = result.(*Wait)
	assert.True(t, ok)
	assert.Equal(t, wait.Reason, AwaitingReversal)

	// Ensure an engulfing reversal inside the zone confirms the entry with
	// the stop buffered beyond the zone.
	result, err = h.Update(candleAt(5, 107.9, 109.6, 107.7, 109.4, 1200))
	assert.NoError(t, err)
	entered, ok := result.(*Entered)
	assert.True(t, ok)
	assert.Equal(t, entered.Position.EntryPrice, 109.4)
	assert.Equal(t, entered.Position.InitialStop, 107.5-(107.8-107.5)*0.1)
	assert.Equal(t, h.State(), InPosition)
}
