package audio

import (
	"fmt"
	"math"
	"sort"

	"github.com/argusdusty/gofft"
)

// ApplyHanning applies a Hanning window to the input data
func ApplyHanning(data []float64) []float64 {
	windowed := make([]float64, len(data))
	n := len(data)
	if n < 2 {
		copy(windowed, data)
		return windowed
	}
	for i := range data {
		window := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		windowed[i] = data[i] * window
	}
	return windowed
}

// Spectrum holds the magnitudes of the positive frequency bins of an FFT
type Spectrum struct {
	SampleRate int
	Size       int       // FFT size the magnitudes were computed with
	Magnitudes []float64 // Size/2 bins
}

// BinWidth returns the width of one bin in Hz
func (s Spectrum) BinWidth() float64 {
	return float64(s.SampleRate) / float64(s.Size)
}

// Frequency returns the centre frequency of bin i
func (s Spectrum) Frequency(i int) float64 {
	return float64(i) * s.BinWidth()
}

// ComputeSpectrum windows samples and computes their magnitude spectrum.
// The input is zero padded up to the next power of two. Samples are expected
// to be centred on zero.
func ComputeSpectrum(samples []float64, sampleRate int) (Spectrum, error) {
	if len(samples) == 0 {
		return Spectrum{}, fmt.Errorf("no samples to analyse")
	}

	size := nextPowerOfTwo(len(samples))
	windowed := ApplyHanning(samples)
	padded := make([]float64, size)
	copy(padded, windowed)

	fftInput := gofft.Float64ToComplex128Array(padded)
	if err := gofft.FFT(fftInput); err != nil {
		return Spectrum{}, fmt.Errorf("FFT computation failed: %w", err)
	}

	mags := make([]float64, size/2)
	for i := range mags {
		c := fftInput[i]
		mags[i] = math.Sqrt(real(c)*real(c) + imag(c)*imag(c))
	}

	return Spectrum{
		SampleRate: sampleRate,
		Size:       size,
		Magnitudes: mags,
	}, nil
}

// Accumulate adds the magnitudes of other to s. Both spectra must have been
// computed with the same size.
func (s *Spectrum) Accumulate(other Spectrum) {
	if s.Magnitudes == nil {
		s.SampleRate = other.SampleRate
		s.Size = other.Size
		s.Magnitudes = make([]float64, len(other.Magnitudes))
	}
	for i := range s.Magnitudes {
		if i < len(other.Magnitudes) {
			s.Magnitudes[i] += other.Magnitudes[i]
		}
	}
}

// Peak is a local maximum of a spectrum
type Peak struct {
	Frequency float64
	Magnitude float64
}

// Peaks returns up to n local maxima at or above minFreq, strongest first.
// Neighbouring bins of a reported peak are not reported again.
func (s Spectrum) Peaks(n int, minFreq float64) []Peak {
	var peaks []Peak
	for i := 1; i < len(s.Magnitudes)-1; i++ {
		if s.Frequency(i) < minFreq {
			continue
		}
		m := s.Magnitudes[i]
		if m > s.Magnitudes[i-1] && m >= s.Magnitudes[i+1] && m > 0 {
			peaks = append(peaks, Peak{Frequency: s.interpolate(i), Magnitude: m})
		}
	}

	sort.Slice(peaks, func(a, b int) bool {
		return peaks[a].Magnitude > peaks[b].Magnitude
	})
	if len(peaks) > n {
		peaks = peaks[:n]
	}
	return peaks
}

// interpolate refines the frequency of bin i with a parabolic fit over its
// neighbours.
func (s Spectrum) interpolate(i int) float64 {
	a, b, c := s.Magnitudes[i-1], s.Magnitudes[i], s.Magnitudes[i+1]
	denom := a - 2*b + c
	if denom == 0 {
		return s.Frequency(i)
	}
	p := 0.5 * (a - c) / denom
	return (float64(i) + p) * s.BinWidth()
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
