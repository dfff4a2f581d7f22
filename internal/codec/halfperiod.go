package codec

import (
	"errors"
	"io"

	"github.com/linuxmatters/tapedeck/internal/audio"
)

// HalfPeriodProvider delivers the half periods of a signal as frequencies.
type HalfPeriodProvider interface {
	// Next returns the next half period in Hz, or false at end of input
	Next() (float64, bool)

	// RewindOne makes the next call to Next return the last value again.
	// Calling it twice without a Next in between is a programming error.
	RewindOne()

	// Position returns the position after the last value returned
	Position() Position
}

// hysteresis8 is the dead band around the midpoint for 8-bit samples
const hysteresis8 = 10

// replay is the single look-back slot of a HalfPeriodConverter.
type replay struct {
	value float64
	start int // position before the value
}

// HalfPeriodConverter turns a SampleSource into half periods by measuring
// the distance between polarity changes around the midpoint of the sample
// range. A sample only flips the polarity once it is further than the
// hysteresis away from the midpoint on the other side.
type HalfPeriodConverter struct {
	src        audio.SampleSource
	rate       int
	offset     float64
	hysteresis float64

	positive bool
	position int // samples consumed after the first
	eof      bool
	err      error

	last    *replay // last value delivered
	pending bool    // last should be delivered again
}

// NewHalfPeriodConverter creates a converter reading from src. The first
// sample is read immediately to establish the initial polarity.
func NewHalfPeriodConverter(src audio.SampleSource) *HalfPeriodConverter {
	bits := src.BitsPerSample()
	c := &HalfPeriodConverter{
		src:        src,
		rate:       src.SampleRate(),
		offset:     float64(int64(1) << (bits - 1)),
		hysteresis: hysteresis8,
	}
	if bits > 8 {
		c.hysteresis = float64(int64(hysteresis8) << (bits - 8))
	}

	v, err := src.ReadSample()
	if err != nil {
		c.setErr(err)
		c.eof = true
		return c
	}
	c.positive = v > c.offset
	return c
}

// Next returns the next half period.
func (c *HalfPeriodConverter) Next() (float64, bool) {
	if c.pending {
		c.pending = false
		return c.last.value, true
	}
	if c.eof {
		return 0, false
	}

	start := c.position
	length := 1
	for c.nextHasSamePolarity() {
		length++
	}

	// a run cut off by the end of input still counts as a half period
	c.positive = !c.positive
	f := float64(c.rate) / float64(length*2)
	c.last = &replay{value: f, start: start}
	return f, true
}

func (c *HalfPeriodConverter) nextHasSamePolarity() bool {
	c.position++
	v, err := c.src.ReadSample()
	if err != nil {
		c.setErr(err)
		c.eof = true
		return false
	}
	if c.positive {
		return v > c.offset-c.hysteresis
	}
	return v < c.offset+c.hysteresis
}

func (c *HalfPeriodConverter) setErr(err error) {
	if !errors.Is(err, io.EOF) {
		c.err = err
	}
}

// RewindOne re-delivers the last half period on the next call to Next.
func (c *HalfPeriodConverter) RewindOne() {
	if c.pending {
		panic("half period provider can only rewind once")
	}
	if c.last == nil {
		panic("half period provider has nothing to rewind")
	}
	c.pending = true
}

// Position returns the position after the last delivered half period.
func (c *HalfPeriodConverter) Position() Position {
	samples := c.position
	if c.pending {
		samples = c.last.start
	}
	return PositionAt(samples, c.rate)
}

// Err returns the first read error other than io.EOF that ended the stream.
func (c *HalfPeriodConverter) Err() error {
	return c.err
}
