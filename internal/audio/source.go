package audio

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/linuxmatters/tapedeck/internal/config"
	"github.com/linuxmatters/tapedeck/internal/logger"
)

// ErrUnsupportedFormat is returned for inputs no source can read.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// SampleSource delivers mono samples one at a time. Raw sources deliver
// unsigned integers in [0, 2^bits-1]; filtered sources may deliver
// fractional values in the same range.
type SampleSource interface {
	// SampleRate returns the sample rate in Hz
	SampleRate() int

	// BitsPerSample returns the resolution of the delivered samples
	BitsPerSample() int

	// ReadSample returns the next sample or io.EOF when exhausted
	ReadSample() (float64, error)
}

// FileSource is a SampleSource backed by an open file.
type FileSource interface {
	SampleSource
	io.Closer

	// NumFrames returns the number of frames in the file, 0 if unknown
	NumFrames() int64

	// NumChannels returns the channel count of the file
	NumChannels() int
}

// SliceSource is a SampleSource over samples held in memory.
type SliceSource struct {
	rate    int
	bits    int
	samples []float64
	pos     int
}

// NewSliceSource creates a source delivering samples in order.
func NewSliceSource(sampleRate, bitsPerSample int, samples []float64) *SliceSource {
	return &SliceSource{
		rate:    sampleRate,
		bits:    bitsPerSample,
		samples: samples,
	}
}

// SampleRate returns the sample rate
func (s *SliceSource) SampleRate() int {
	return s.rate
}

// BitsPerSample returns the sample resolution
func (s *SliceSource) BitsPerSample() int {
	return s.bits
}

// ReadSample returns the next sample
func (s *SliceSource) ReadSample() (float64, error) {
	if s.pos >= len(s.samples) {
		return 0, io.EOF
	}
	v := s.samples[s.pos]
	s.pos++
	return v, nil
}

// NumFrames returns the number of samples in the slice
func (s *SliceSource) NumFrames() int64 {
	return int64(len(s.samples))
}

// Open opens an audio file for decoding, choosing the reader by file
// extension. The channel and skip settings are applied by the reader.
func Open(filename string, settings config.DecoderSettings) (FileSource, error) {
	var src FileSource
	var err error

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".wav", ".wave":
		src, err = NewWAVSource(filename, settings.Channel)
	case ".mp3":
		src, err = NewMP3Source(filename, settings.Channel)
	case ".flac":
		src, err = NewFLACSource(filename, settings.Channel)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	if src.NumChannels() > 1 && settings.Channel < 0 {
		logger.Logf(logger.Info, "audio", "%d channels in input, using channel 0 (use --channel to select another)", src.NumChannels())
	}

	if err := Skip(src, settings.Skip); err != nil {
		src.Close()
		return nil, err
	}

	return src, nil
}

// Skip discards n samples from src.
func Skip(src SampleSource, n int) error {
	for i := 0; i < n; i++ {
		if _, err := src.ReadSample(); err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("cannot skip %d samples: input has only %d", n, i)
			}
			return err
		}
	}
	return nil
}

// selectChannel validates a channel setting against a channel count.
func selectChannel(channel, numChannels int) (int, error) {
	if channel < 0 {
		return 0, nil
	}
	if channel >= numChannels {
		return 0, fmt.Errorf("channel %d requested but input has %d channel(s)", channel, numChannels)
	}
	return channel, nil
}

// unsignedOffset converts a signed sample into the unsigned range used by
// the decoder.
func unsignedOffset(bits int) float64 {
	return float64(int64(1) << (bits - 1))
}
