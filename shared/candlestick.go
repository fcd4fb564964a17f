package shared

import (
	"fmt"
	"math"
	"time"

	"github.com/tidwall/gjson"
)

// Sentiment represents the candlestick sentiment.
type Sentiment int

const (
	Neutral Sentiment = iota
	Bullish
	Bearish
)

// String stringifies the provided sentiment.
func (s Sentiment) String() string {
	switch s {
	case Neutral:
		return "neutral"
	case Bullish:
		return "bullish"
	case Bearish:
		return "bearish"
	default:
		return "unknown"
	}
}

// Candlestick represents a unit candlestick for a market.
type Candlestick struct {
	Open   float64
	Low    float64
	High   float64
	Close  float64
	Volume float64
	Date   time.Time

	// Metadata fields.
	Market    string
	Timeframe Timeframe
}

// FetchSentiment returns the provided candlestick's sentiment.
func (c *Candlestick) FetchSentiment() Sentiment {
	sentiment := c.Close - c.Open
	switch {
	case sentiment < 0:
		return Bearish
	case sentiment > 0:
		return Bullish
	default:
		return Neutral
	}
}

// Body returns the absolute size of the candlestick body.
func (c *Candlestick) Body() float64 {
	return math.Abs(c.Close - c.Open)
}

// BodyHigh returns the higher bound of the candlestick body.
func (c *Candlestick) BodyHigh() float64 {
	return math.Max(c.Open, c.Close)
}

// BodyLow returns the lower bound of the candlestick body.
func (c *Candlestick) BodyLow() float64 {
	return math.Min(c.Open, c.Close)
}

// UpperWickRatio returns the upper wick of the candlestick relative to the
// higher bound of its body.
func (c *Candlestick) UpperWickRatio() float64 {
	bodyHigh := c.BodyHigh()
	if bodyHigh <= 0 {
		return 0
	}

	return (c.High - bodyHigh) / bodyHigh
}

// LowerWickRatio returns the lower wick of the candlestick relative to the
// lower bound of its body.
func (c *Candlestick) LowerWickRatio() float64 {
	bodyLow := c.BodyLow()
	if bodyLow <= 0 {
		return 0
	}

	return (bodyLow - c.Low) / bodyLow
}

// Engulfs checks whether the provided candlestick is an engulfing reversal of
// the previous candlestick in the provided direction. An engulfing bar closes
// beyond the previous bar's open while opening at or inside the previous
// bar's close, against the previous bar's direction.
func (c *Candlestick) Engulfs(prev *Candlestick, direction Direction) bool {
	switch direction {
	case Long:
		prevBearish := prev.Close < prev.Open
		currentBullish := c.Close > c.Open

		return prevBearish && currentBullish && c.Close > prev.Open && c.Open <= prev.Close
	case Short:
		prevBullish := prev.Close > prev.Open
		currentBearish := c.Close < c.Open

		return prevBullish && currentBearish && c.Close < prev.Open && c.Open >= prev.Close
	default:
		return false
	}
}

// Validate asserts the candlestick describes sane market data.
func (c *Candlestick) Validate() error {
	if c.High < c.Low {
		return fmt.Errorf("candlestick high (%f) cannot be below its low (%f)", c.High, c.Low)
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return fmt.Errorf("candlestick prices must be positive: o=%f h=%f l=%f c=%f",
			c.Open, c.High, c.Low, c.Close)
	}
	if c.Volume < 0 {
		return fmt.Errorf("candlestick volume cannot be negative: %f", c.Volume)
	}

	return nil
}

// ParseCandlesticks parses candlesticks from the provided json results.
func ParseCandlesticks(data []gjson.Result, market string, timeframe Timeframe, loc *time.Location) ([]Candlestick, error) {
	candles := make([]Candlestick, 0, len(data))
	for idx := range data {
		result := data[idx]

		date, err := time.ParseInLocation(DateLayout, result.Get("date").String(), loc)
		if err != nil {
			return nil, fmt.Errorf("parsing candlestick date: %v", err)
		}

		candle := Candlestick{
			Open:      result.Get("open").Float(),
			High:      result.Get("high").Float(),
			Low:       result.Get("low").Float(),
			Close:     result.Get("close").Float(),
			Volume:    result.Get("volume").Float(),
			Date:      date,
			Market:    market,
			Timeframe: timeframe,
		}

		candles = append(candles, candle)
	}

	return candles, nil
}
