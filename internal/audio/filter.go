package audio

import "math"

// movingAverage keeps a running sum over a fixed window of samples.
type movingAverage struct {
	window []float64
	next   int
	filled int
	sum    float64
}

func newMovingAverage(length int) *movingAverage {
	if length < 1 {
		length = 1
	}
	return &movingAverage{window: make([]float64, length)}
}

// push adds a sample and returns the average over the samples seen so far,
// up to the window length.
func (m *movingAverage) push(v float64) float64 {
	if m.filled == len(m.window) {
		m.sum -= m.window[m.next]
	} else {
		m.filled++
	}
	m.window[m.next] = v
	m.sum += v
	m.next = (m.next + 1) % len(m.window)
	return m.sum / float64(m.filled)
}

// windowLength returns the number of samples averaged for a cut-off.
func windowLength(sampleRate int, cutoff float64) int {
	return int(math.Round(float64(sampleRate) / cutoff))
}

// LowPassFilter smooths a source with a moving average over
// round(sampleRate/cutoff) samples.
type LowPassFilter struct {
	src SampleSource
	avg *movingAverage
}

// NewLowPassFilter wraps src. A cut-off at or above the sample rate leaves
// the signal untouched.
func NewLowPassFilter(src SampleSource, cutoff float64) *LowPassFilter {
	if cutoff <= 0 {
		panic("low-pass cut-off must be positive")
	}
	return &LowPassFilter{
		src: src,
		avg: newMovingAverage(windowLength(src.SampleRate(), cutoff)),
	}
}

// SampleRate returns the sample rate of the wrapped source
func (f *LowPassFilter) SampleRate() int {
	return f.src.SampleRate()
}

// BitsPerSample returns the resolution of the wrapped source
func (f *LowPassFilter) BitsPerSample() int {
	return f.src.BitsPerSample()
}

// ReadSample returns the next smoothed sample
func (f *LowPassFilter) ReadSample() (float64, error) {
	v, err := f.src.ReadSample()
	if err != nil {
		return 0, err
	}
	return f.avg.push(v), nil
}

// WindowLength returns the number of samples averaged
func (f *LowPassFilter) WindowLength() int {
	return len(f.avg.window)
}

// HighPassFilter removes slow drift from a source by subtracting the moving
// average and re-centring on the midpoint of the sample range. It is meant
// for recordings with a wandering DC level.
type HighPassFilter struct {
	src    SampleSource
	avg    *movingAverage
	offset float64
}

// NewHighPassFilter wraps src.
func NewHighPassFilter(src SampleSource, cutoff float64) *HighPassFilter {
	if cutoff <= 0 {
		panic("high-pass cut-off must be positive")
	}
	return &HighPassFilter{
		src:    src,
		avg:    newMovingAverage(windowLength(src.SampleRate(), cutoff)),
		offset: unsignedOffset(src.BitsPerSample()),
	}
}

// SampleRate returns the sample rate of the wrapped source
func (f *HighPassFilter) SampleRate() int {
	return f.src.SampleRate()
}

// BitsPerSample returns the resolution of the wrapped source
func (f *HighPassFilter) BitsPerSample() int {
	return f.src.BitsPerSample()
}

// ReadSample returns the next filtered sample
func (f *HighPassFilter) ReadSample() (float64, error) {
	v, err := f.src.ReadSample()
	if err != nil {
		return 0, err
	}
	return v - f.avg.push(v) + f.offset, nil
}
