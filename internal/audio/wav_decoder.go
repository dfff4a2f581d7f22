package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavChunkFrames is the number of frames read from disk at a time
const wavChunkFrames = 4096

// WAVSource implements FileSource for PCM WAV files
type WAVSource struct {
	decoder    *wav.Decoder
	file       *os.File
	sampleRate int
	bitDepth   int
	numChans   int
	channel    int
	numFrames  int64
	offset     float64

	buf *audio.IntBuffer
	n   int // valid samples in buf
	pos int // next frame in buf
	eof bool
}

// NewWAVSource opens a WAV file and prepares to stream one channel of it
func NewWAVSource(filename string, channel int) (*WAVSource, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	src, err := newWAVSource(f, channel)
	if err != nil {
		f.Close()
		return nil, err
	}
	src.file = f
	return src, nil
}

func newWAVSource(r io.ReadSeeker, channel int) (*WAVSource, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}

	if decoder.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: WAV encoding 0x%04x (only PCM is supported)", ErrUnsupportedFormat, decoder.WavAudioFormat)
	}

	bitDepth := int(decoder.BitDepth)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d bits per sample", ErrUnsupportedFormat, bitDepth)
	}

	numChans := int(decoder.NumChans)
	ch, err := selectChannel(channel, numChans)
	if err != nil {
		return nil, err
	}

	// Get format info without reading all samples
	if err := decoder.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to seek to PCM data: %w", err)
	}

	// PCMLen gives us the length of PCM data in bytes
	bytesPerFrame := int64(bitDepth/8) * int64(numChans)
	numFrames := decoder.PCMLen() / bytesPerFrame

	// 8-bit WAV data is unsigned, wider depths are signed
	offset := 0.0
	if bitDepth > 8 {
		offset = unsignedOffset(bitDepth)
	}

	return &WAVSource{
		decoder:    decoder,
		sampleRate: int(decoder.SampleRate),
		bitDepth:   bitDepth,
		numChans:   numChans,
		channel:    ch,
		numFrames:  numFrames,
		offset:     offset,
		buf: &audio.IntBuffer{
			Data: make([]int, wavChunkFrames*numChans),
			Format: &audio.Format{
				NumChannels: numChans,
				SampleRate:  int(decoder.SampleRate),
			},
			SourceBitDepth: bitDepth,
		},
	}, nil
}

// ReadSample returns the next sample of the selected channel
func (s *WAVSource) ReadSample() (float64, error) {
	if s.pos*s.numChans+s.channel >= s.n {
		if err := s.fill(); err != nil {
			return 0, err
		}
	}

	v := float64(s.buf.Data[s.pos*s.numChans+s.channel]) + s.offset
	s.pos++
	return v, nil
}

func (s *WAVSource) fill() error {
	if s.eof {
		return io.EOF
	}

	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read PCM buffer: %w", err)
	}

	// drop a trailing incomplete frame
	n -= n % s.numChans
	if n == 0 {
		s.eof = true
		return io.EOF
	}

	s.n = n
	s.pos = 0
	return nil
}

// SampleRate returns the sample rate
func (s *WAVSource) SampleRate() int {
	return s.sampleRate
}

// BitsPerSample returns the bit depth of the file
func (s *WAVSource) BitsPerSample() int {
	return s.bitDepth
}

// NumChannels returns the number of audio channels
func (s *WAVSource) NumChannels() int {
	return s.numChans
}

// NumFrames returns the number of frames in the file
func (s *WAVSource) NumFrames() int64 {
	return s.numFrames
}

// Close closes the decoder and releases resources
func (s *WAVSource) Close() error {
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
