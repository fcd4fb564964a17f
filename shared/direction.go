package shared

import "fmt"

// Direction represents market direction.
type Direction int

const (
	Long Direction = iota
	Short
)

// String stringifies the provided direction.
func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "unknown"
	}
}

// ParseDirection parses a direction from the provided string.
func ParseDirection(direction string) (Direction, error) {
	switch direction {
	case "long":
		return Long, nil
	case "short":
		return Short, nil
	default:
		return 0, fmt.Errorf("unknown direction: %s", direction)
	}
}
