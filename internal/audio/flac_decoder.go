package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"
)

// FLACSource implements FileSource for FLAC files
type FLACSource struct {
	stream      *flac.Stream
	file        *os.File
	sampleRate  int
	bitDepth    int
	numChannels int
	numFrames   int64
	channel     int

	samples []int32 // samples of the selected channel in the current frame
	pos     int
	eof     bool
}

// NewFLACSource opens a FLAC file and prepares to stream one channel of it
func NewFLACSource(filename string, channel int) (*FLACSource, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	// Parse FLAC stream - reads signature and StreamInfo block
	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create FLAC decoder: %w", err)
	}

	numChannels := int(stream.Info.NChannels)
	ch, err := selectChannel(channel, numChannels)
	if err != nil {
		stream.Close()
		f.Close()
		return nil, err
	}

	return &FLACSource{
		stream:      stream,
		file:        f,
		sampleRate:  int(stream.Info.SampleRate),
		bitDepth:    int(stream.Info.BitsPerSample),
		numChannels: numChannels,
		numFrames:   int64(stream.Info.NSamples),
		channel:     ch,
	}, nil
}

// ReadSample returns the next sample of the selected channel
func (s *FLACSource) ReadSample() (float64, error) {
	for s.pos >= len(s.samples) {
		if s.eof {
			return 0, io.EOF
		}

		// Parse next frame including audio samples
		frame, err := s.stream.ParseNext()
		if err != nil {
			if err == io.EOF {
				s.eof = true
				return 0, io.EOF
			}
			return 0, fmt.Errorf("failed to parse FLAC frame: %w", err)
		}

		// FLAC frames contain one subframe per channel
		s.samples = frame.Subframes[s.channel].Samples
		s.pos = 0
	}

	// FLAC samples are signed at every bit depth
	v := float64(s.samples[s.pos]) + unsignedOffset(s.bitDepth)
	s.pos++
	return v, nil
}

// SampleRate returns the sample rate
func (s *FLACSource) SampleRate() int {
	return s.sampleRate
}

// BitsPerSample returns the bit depth from the stream info
func (s *FLACSource) BitsPerSample() int {
	return s.bitDepth
}

// NumChannels returns the number of audio channels
func (s *FLACSource) NumChannels() int {
	return s.numChannels
}

// NumFrames returns the total number of frames, 0 if unknown
func (s *FLACSource) NumFrames() int64 {
	return s.numFrames
}

// Close closes the decoder and releases resources
func (s *FLACSource) Close() error {
	if s.stream != nil {
		s.stream.Close()
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
