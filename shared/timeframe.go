package shared

import (
	"fmt"
	"time"
)

const (
	// SessionTimeLayout is the format layout for parsing session times in a day.
	SessionTimeLayout = "15:04"
	// DateLayout is the format layout for parsing dates.
	DateLayout = "2006-01-02 15:04:05"
	// NewYorkLocation is the locale used for fetching time.
	NewYorkLocation = "America/New_York"
)

// Timeframe represents the market data time period.
type Timeframe int

const (
	OneMinute Timeframe = iota
	FiveMinute
	OneHour
)

// String stringifies the provided timeframe.
func (t Timeframe) String() string {
	switch t {
	case OneMinute:
		return "1m"
	case FiveMinute:
		return "5m"
	case OneHour:
		return "1H"
	default:
		return "unknown"
	}
}

// ParseTimeframe parses a timeframe from the provided string.
func ParseTimeframe(timeframe string) (Timeframe, error) {
	switch timeframe {
	case "1m":
		return OneMinute, nil
	case "5m":
		return FiveMinute, nil
	case "1H":
		return OneHour, nil
	default:
		return 0, fmt.Errorf("unknown timeframe: %s", timeframe)
	}
}

// NewYorkTime returns the current time in new york (EST/EDT adjusted automatically).
func NewYorkTime() (time.Time, *time.Location, error) {
	loc, err := time.LoadLocation(NewYorkLocation)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("loading new york timezone: %w", err)
	}

	now := time.Now().In(loc)
	return now, loc, nil
}
