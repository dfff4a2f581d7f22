package audio

import (
	"math"
	"testing"
)

func sineWave(freq float64, sampleRate, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return s
}

// TestComputeSpectrum_KnownSineWave verifies that a single tone shows up as
// the strongest peak at its own frequency. This catches bin-to-frequency
// mapping errors and broken interpolation.
//
// With 4096 samples at 44.1 kHz the bin width is ~10.8 Hz, so the
// interpolated peak should land within one bin of the tone.
func TestComputeSpectrum_KnownSineWave(t *testing.T) {
	const (
		sampleRate = 44100
		fftSize    = 4096
	)

	for _, freq := range []float64{1200, 2400, 770} {
		spectrum, err := ComputeSpectrum(sineWave(freq, sampleRate, fftSize), sampleRate)
		if err != nil {
			t.Fatalf("FFT computation failed: %v", err)
		}

		if spectrum.Size != fftSize {
			t.Errorf("Expected FFT size %d, got %d", fftSize, spectrum.Size)
		}

		peaks := spectrum.Peaks(1, 0)
		if len(peaks) != 1 {
			t.Fatalf("Expected one peak for %.0f Hz, got %d", freq, len(peaks))
		}

		t.Logf("%.0f Hz tone: peak at %.1f Hz (bin width %.2f Hz)", freq, peaks[0].Frequency, spectrum.BinWidth())

		if math.Abs(peaks[0].Frequency-freq) > spectrum.BinWidth() {
			t.Errorf("Peak at %.1f Hz, expected %.0f Hz", peaks[0].Frequency, freq)
		}
	}
}

// TestComputeSpectrum_TwoTones verifies peak ordering for an FSK-like mix
// where one tone is twice as loud as the other.
func TestComputeSpectrum_TwoTones(t *testing.T) {
	const sampleRate = 44100
	low := sineWave(1200, sampleRate, 4096)
	high := sineWave(2400, sampleRate, 4096)
	mix := make([]float64, len(low))
	for i := range mix {
		mix[i] = low[i] + 0.5*high[i]
	}

	spectrum, err := ComputeSpectrum(mix, sampleRate)
	if err != nil {
		t.Fatalf("FFT computation failed: %v", err)
	}

	peaks := spectrum.Peaks(2, 0)
	if len(peaks) != 2 {
		t.Fatalf("Expected two peaks, got %d", len(peaks))
	}
	if math.Abs(peaks[0].Frequency-1200) > spectrum.BinWidth() {
		t.Errorf("Strongest peak at %.1f Hz, expected 1200 Hz", peaks[0].Frequency)
	}
	if math.Abs(peaks[1].Frequency-2400) > spectrum.BinWidth() {
		t.Errorf("Second peak at %.1f Hz, expected 2400 Hz", peaks[1].Frequency)
	}
}

// TestComputeSpectrum_Padding verifies that odd-sized input is zero padded
// to the next power of two.
func TestComputeSpectrum_Padding(t *testing.T) {
	spectrum, err := ComputeSpectrum(make([]float64, 1000), 44100)
	if err != nil {
		t.Fatalf("FFT computation failed: %v", err)
	}
	if spectrum.Size != 1024 {
		t.Errorf("Expected padded size 1024, got %d", spectrum.Size)
	}
	if len(spectrum.Magnitudes) != 512 {
		t.Errorf("Expected 512 bins, got %d", len(spectrum.Magnitudes))
	}

	// silence has no peaks
	if peaks := spectrum.Peaks(3, 0); len(peaks) != 0 {
		t.Errorf("Expected no peaks in silence, got %v", peaks)
	}
}

// TestComputeSpectrum_Empty verifies that an empty window is an error.
func TestComputeSpectrum_Empty(t *testing.T) {
	if _, err := ComputeSpectrum(nil, 44100); err == nil {
		t.Error("Expected error for empty input, got nil")
	}
}

// TestApplyHanning verifies that the window is zero at the edges and one in
// the centre.
func TestApplyHanning(t *testing.T) {
	data := []float64{1, 1, 1, 1, 1}
	windowed := ApplyHanning(data)

	if windowed[0] != 0 || math.Abs(windowed[4]) > 1e-12 {
		t.Errorf("Window edges should be zero, got %.6f and %.6f", windowed[0], windowed[4])
	}
	if math.Abs(windowed[2]-1) > 1e-12 {
		t.Errorf("Window centre should be one, got %.6f", windowed[2])
	}
	if data[2] != 1 {
		t.Error("Input slice must not be modified")
	}
}
