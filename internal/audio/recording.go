package audio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// SampleValue is one of the three levels a tape signal is built from.
type SampleValue uint8

// List of valid SampleValue values.
const (
	Zero SampleValue = iota
	High
	Low
)

// 8-bit PCM levels for each SampleValue
const (
	PCMHigh byte = 0xfe
	PCMLow  byte = 0x02
	PCMZero byte = 0x80
)

// PCM8 returns the unsigned 8-bit PCM level of v.
func (v SampleValue) PCM8() byte {
	switch v {
	case High:
		return PCMHigh
	case Low:
		return PCMLow
	}
	return PCMZero
}

// Sink consumes the samples produced by an oscillator.
type Sink interface {
	SampleRate() int
	PushSample(v SampleValue)
}

// Recording is an in-memory Sink. It can be written as a WAV file, played
// back, or read again as a SampleSource.
type Recording struct {
	sampleRate int
	data       []byte
}

// NewRecording creates an empty recording.
func NewRecording(sampleRate int) *Recording {
	return &Recording{sampleRate: sampleRate}
}

// SampleRate returns the sample rate
func (r *Recording) SampleRate() int {
	return r.sampleRate
}

// PushSample appends a sample
func (r *Recording) PushSample(v SampleValue) {
	r.data = append(r.data, v.PCM8())
}

// Len returns the number of samples recorded
func (r *Recording) Len() int {
	return len(r.data)
}

// Duration returns the playing time of the recording
func (r *Recording) Duration() time.Duration {
	if r.sampleRate == 0 {
		return 0
	}
	return time.Duration(float64(len(r.data)) / float64(r.sampleRate) * float64(time.Second))
}

// PCM8 returns the recording as unsigned 8-bit mono PCM. The slice is
// shared with the recording.
func (r *Recording) PCM8() []byte {
	return r.data
}

// Source returns a SampleSource reading the recording from the start.
func (r *Recording) Source() SampleSource {
	samples := make([]float64, len(r.data))
	for i, b := range r.data {
		samples[i] = float64(b)
	}
	return NewSliceSource(r.sampleRate, 8, samples)
}

// WriteWAV writes the recording as an 8-bit mono PCM WAV file.
func (r *Recording) WriteWAV(w io.WriteSeeker) error {
	enc := wav.NewEncoder(w, r.sampleRate, 8, 1, 1)

	data := make([]int, len(r.data))
	for i, b := range r.data {
		data[i] = int(b)
	}

	buf := &audio.IntBuffer{
		Data: data,
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  r.sampleRate,
		},
		SourceBitDepth: 8,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalise WAV file: %w", err)
	}
	return nil
}

// SaveWAV writes the recording to a WAV file at path.
func (r *Recording) SaveWAV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.WriteWAV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// SaveRaw writes the recording as headerless 8-bit PCM to path.
func (r *Recording) SaveRaw(path string) error {
	return os.WriteFile(path, r.data, 0o644)
}

// Reader returns an io.Reader over the 8-bit PCM data.
func (r *Recording) Reader() io.Reader {
	return bytes.NewReader(r.data)
}
