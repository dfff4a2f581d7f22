package encoder

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/linuxmatters/tapedeck/internal/audio"
	"github.com/linuxmatters/tapedeck/internal/codec"
	"github.com/linuxmatters/tapedeck/internal/config"
	"github.com/linuxmatters/tapedeck/internal/formats"
	"github.com/linuxmatters/tapedeck/internal/logger"
)

// ErrNotEncoded is returned when output is requested before Encode ran.
var ErrNotEncoded = errors.New("nothing encoded yet")

// Config holds the encoder configuration
type Config struct {
	OutputPath string // Path to output WAV or raw file, empty to keep in memory
	Format     formats.Format
	Settings   config.EncoderSettings
	Raw        bool // Write headerless 8-bit PCM instead of WAV
}

// Stats summarises an encode run
type Stats struct {
	Input      int // Bytes of input data
	Samples    int
	Duration   time.Duration
	Blocks     int // Annotated spans, one per block or record
	FileSize   int64
	EncodeTime time.Duration
	WriteTime  time.Duration
}

// Encoder turns binary data into a tape recording of one format
type Encoder struct {
	config      Config
	recording   *audio.Recording
	annotations []codec.Annotation
	stats       Stats
}

// New creates a new encoder instance
func New(cfg Config) (*Encoder, error) {
	if cfg.Format.Encode == nil {
		return nil, fmt.Errorf("format %q cannot encode", cfg.Format.Name)
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}

	return &Encoder{config: cfg}, nil
}

// Encode synthesises data into a new recording, replacing any previous one.
func (e *Encoder) Encode(data []byte) error {
	start := time.Now()

	rec := audio.NewRecording(e.config.Settings.SampleRate)
	osc := codec.NewOscillator(rec)
	if err := e.config.Format.Encode(osc, data, e.config.Settings); err != nil {
		return fmt.Errorf("failed to encode %s: %w", e.config.Format.Name, err)
	}

	e.recording = rec
	e.annotations = osc.Annotations()
	e.stats = Stats{
		Input:      len(data),
		Samples:    rec.Len(),
		Duration:   rec.Duration(),
		Blocks:     len(e.annotations),
		EncodeTime: time.Since(start),
	}

	for _, a := range e.annotations {
		logger.Logf(logger.Debug, "encode", "%s - %s %s", a.Begin, a.End, a.Label)
	}
	logger.Logf(logger.Info, "encode", "%d bytes as %s: %d samples, %s", len(data), e.config.Format.Name, rec.Len(), rec.Duration())
	return nil
}

// Recording returns the last encoded recording, nil before Encode.
func (e *Encoder) Recording() *audio.Recording {
	return e.recording
}

// Annotations returns the labelled spans of the last recording.
func (e *Encoder) Annotations() []codec.Annotation {
	return e.annotations
}

// Stats returns the statistics of the last run.
func (e *Encoder) Stats() Stats {
	return e.stats
}

// Close writes the recording to the output path, if one is configured.
func (e *Encoder) Close() error {
	if e.config.OutputPath == "" {
		return nil
	}
	if e.recording == nil {
		return ErrNotEncoded
	}

	start := time.Now()
	var err error
	if e.config.Raw {
		err = e.recording.SaveRaw(e.config.OutputPath)
	} else {
		err = e.recording.SaveWAV(e.config.OutputPath)
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", e.config.OutputPath, err)
	}
	e.stats.WriteTime = time.Since(start)

	if info, err := os.Stat(e.config.OutputPath); err == nil {
		e.stats.FileSize = info.Size()
	}
	return nil
}
