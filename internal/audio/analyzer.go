package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/linuxmatters/tapedeck/internal/config"
)

// AudioProfile holds complete audio analysis results
type AudioProfile struct {
	// Audio metadata
	SampleRate    int
	BitsPerSample int
	NumFrames     int64
	Duration      float64 // Seconds

	// Level statistics, normalised to the full scale of the input
	Peak     float64 // Largest distance from the midpoint
	RMS      float64 // Root mean square around the midpoint
	DCOffset float64 // Mean signed distance from the midpoint

	// Spectrum summed over all analysis windows
	Spectrum Spectrum

	// Strongest carriers found in the spectrum
	Carriers []Peak
}

// PeakDB returns the peak level in dBFS
func (p *AudioProfile) PeakDB() float64 {
	return toDB(p.Peak)
}

// RMSDB returns the RMS level in dBFS
func (p *AudioProfile) RMSDB() float64 {
	return toDB(p.RMS)
}

func toDB(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v)
}

// ProgressCallback is called with progress updates during analysis
type ProgressCallback func(frames int64, elapsed time.Duration)

// minCarrierFreq keeps mains hum and DC out of the carrier list
const minCarrierFreq = 200

// Analyze streams through src and collects level statistics and a summed
// spectrum. The source is consumed.
func Analyze(src SampleSource, progressCb ProgressCallback) (*AudioProfile, error) {
	profile := &AudioProfile{
		SampleRate:    src.SampleRate(),
		BitsPerSample: src.BitsPerSample(),
	}

	mid := unsignedOffset(src.BitsPerSample())
	window := make([]float64, 0, config.FFTSize)

	var sum, sumSquares float64
	startTime := time.Now()

	for {
		v, err := src.ReadSample()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("error reading audio at frame %d: %w", profile.NumFrames, err)
		}

		// Normalise to [-1, 1] around the midpoint
		s := (v - mid) / mid
		sum += s
		sumSquares += s * s
		if a := math.Abs(s); a > profile.Peak {
			profile.Peak = a
		}

		window = append(window, s)
		if len(window) == config.FFTSize {
			if err := profile.addWindow(window); err != nil {
				return nil, err
			}
			window = window[:0]
		}

		profile.NumFrames++
		if progressCb != nil && profile.NumFrames%config.ProgressInterval == 0 {
			progressCb(profile.NumFrames, time.Since(startTime))
		}
	}

	if profile.NumFrames == 0 {
		return nil, fmt.Errorf("no audio data in input")
	}

	// a short input still gets one spectrum
	if profile.Spectrum.Magnitudes == nil && len(window) > 1 {
		if err := profile.addWindow(window); err != nil {
			return nil, err
		}
	}

	n := float64(profile.NumFrames)
	profile.Duration = n / float64(profile.SampleRate)
	profile.RMS = math.Sqrt(sumSquares / n)
	profile.DCOffset = sum / n
	if profile.Spectrum.Magnitudes != nil {
		profile.Carriers = profile.Spectrum.Peaks(3, minCarrierFreq)
	}

	if progressCb != nil {
		progressCb(profile.NumFrames, time.Since(startTime))
	}

	return profile, nil
}

func (p *AudioProfile) addWindow(window []float64) error {
	spectrum, err := ComputeSpectrum(window, p.SampleRate)
	if err != nil {
		return err
	}
	p.Spectrum.Accumulate(spectrum)
	return nil
}
