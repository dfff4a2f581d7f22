package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// MP3Source implements FileSource for MP3 files
type MP3Source struct {
	decoder    *mp3.Decoder
	file       *os.File
	sampleRate int
	channel    int

	buf []byte
	n   int
	pos int
	eof bool
}

// go-mp3 always outputs interleaved 16-bit stereo: L0 R0 L1 R1 ...
const (
	mp3Channels      = 2
	mp3BytesPerFrame = 4
	mp3ChunkFrames   = 4096
)

// NewMP3Source opens an MP3 file and prepares to stream one channel of it
func NewMP3Source(filename string, channel int) (*MP3Source, error) {
	ch, err := selectChannel(channel, mp3Channels)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create MP3 decoder: %w", err)
	}

	return &MP3Source{
		decoder:    decoder,
		file:       f,
		sampleRate: decoder.SampleRate(),
		channel:    ch,
		buf:        make([]byte, mp3ChunkFrames*mp3BytesPerFrame),
	}, nil
}

// ReadSample returns the next sample of the selected channel
func (s *MP3Source) ReadSample() (float64, error) {
	if s.pos+mp3BytesPerFrame > s.n {
		if err := s.fill(); err != nil {
			return 0, err
		}
	}

	off := s.pos + s.channel*2
	v := int16(binary.LittleEndian.Uint16(s.buf[off : off+2]))
	s.pos += mp3BytesPerFrame
	return float64(v) + unsignedOffset(16), nil
}

func (s *MP3Source) fill() error {
	if s.eof {
		return io.EOF
	}

	n, err := io.ReadFull(s.decoder, s.buf)
	if err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("failed to read MP3 data: %w", err)
		}
		s.eof = true
	}

	n -= n % mp3BytesPerFrame
	if n == 0 {
		s.eof = true
		return io.EOF
	}

	s.n = n
	s.pos = 0
	return nil
}

// SampleRate returns the sample rate
func (s *MP3Source) SampleRate() int {
	return s.sampleRate
}

// BitsPerSample returns 16, the resolution go-mp3 decodes to
func (s *MP3Source) BitsPerSample() int {
	return 16
}

// NumChannels returns 2, go-mp3 always decodes to stereo
func (s *MP3Source) NumChannels() int {
	return mp3Channels
}

// NumFrames returns the decoded length in frames
func (s *MP3Source) NumFrames() int64 {
	if l := s.decoder.Length(); l > 0 {
		return l / mp3BytesPerFrame
	}
	return 0
}

// Close closes the underlying file
func (s *MP3Source) Close() error {
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
