package codec

import (
	"fmt"
	"math"
)

// Position is a point in a sample stream. Seconds is derived from Samples
// and the sample rate when the position is captured.
type Position struct {
	Samples int
	Seconds float64
}

// PositionAt returns the position of sample n at the given sample rate.
func PositionAt(n, sampleRate int) Position {
	return Position{
		Samples: n,
		Seconds: float64(n) / float64(sampleRate),
	}
}

// String formats the position as "HH:MM:SS.ssss sample 000000000".
func (p Position) String() string {
	total := p.Seconds
	hours := math.Floor(total / 3600)
	total -= hours * 3600
	minutes := math.Floor(total / 60)
	total -= minutes * 60
	return fmt.Sprintf("%02d:%02d:%07.4f sample %09d", int(hours), int(minutes), total, p.Samples)
}
