// Package decoder runs the decode pipeline on audio files and writes the
// files found on tape.
package decoder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/linuxmatters/tapedeck/internal/audio"
	"github.com/linuxmatters/tapedeck/internal/codec"
	"github.com/linuxmatters/tapedeck/internal/config"
	"github.com/linuxmatters/tapedeck/internal/formats"
	"github.com/linuxmatters/tapedeck/internal/logger"
	"github.com/linuxmatters/tapedeck/internal/renderer"
)

// Config holds the decoder configuration
type Config struct {
	Format   formats.Format
	Settings config.DecoderSettings

	// LowPass is the cut-off of the moving average stage: 0 selects the
	// format default, a negative value disables the stage
	LowPass float64

	// HighPass is the cut-off of the optional high-pass stage, 0 disables it
	HighPass float64

	// OutDir receives the decoded files, empty for the working directory
	OutDir string

	// DryRun decodes without writing files
	DryRun bool

	// TapeMap writes a PNG timeline of the blocks next to the decoded files
	TapeMap bool
}

// Progress is reported while an input is decoded
type Progress struct {
	Input    string
	Position codec.Position
	Duration float64 // Seconds of input, 0 if unknown
	Files    int
	Errors   int // Files with defective blocks
}

// ProgressFunc receives progress updates. It may be called from several
// goroutines when inputs are decoded concurrently.
type ProgressFunc func(Progress)

// Written is a decoded file and where it went
type Written struct {
	Path string
	File formats.OutputFile
}

// Result summarises the decoding of one input
type Result struct {
	Input    string
	Files    []Written
	Duration float64 // Seconds of input read
	Elapsed  time.Duration
	MapPath  string
}

// Errors returns the number of files with defective blocks.
func (r Result) Errors() int {
	n := 0
	for _, w := range r.Files {
		if w.File.Status == codec.Error {
			n++
		}
	}
	return n
}

// Decoder decodes inputs of one format into one output directory
type Decoder struct {
	config Config

	mu    sync.Mutex
	namer *formats.Namer
}

// New creates a new decoder instance
func New(cfg Config) (*Decoder, error) {
	if cfg.Format.Decode == nil {
		return nil, fmt.Errorf("format %q cannot decode", cfg.Format.Name)
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}
	if cfg.HighPass < 0 {
		return nil, fmt.Errorf("invalid high-pass cut-off %.0f", cfg.HighPass)
	}

	return &Decoder{
		config: cfg,
		namer:  formats.NewNamer(),
	}, nil
}

// lowPass returns the effective low-pass cut-off, 0 for none.
func (d *Decoder) lowPass() float64 {
	switch {
	case d.config.LowPass < 0:
		return 0
	case d.config.LowPass > 0:
		return d.config.LowPass
	}
	return d.config.Format.LowPass
}

// Source builds the filter chain in front of the half-period converter.
func (d *Decoder) Source(src audio.SampleSource) audio.SampleSource {
	if d.config.HighPass > 0 {
		src = audio.NewHighPassFilter(src, d.config.HighPass)
	}
	if cutoff := d.lowPass(); cutoff > 0 {
		src = audio.NewLowPassFilter(src, cutoff)
	}
	return src
}

// DecodeFile opens and decodes one audio file.
func (d *Decoder) DecodeFile(ctx context.Context, input string, progress ProgressFunc) (Result, error) {
	src, err := audio.Open(input, d.config.Settings)
	if err != nil {
		return Result{Input: input}, fmt.Errorf("failed to open %s: %w", input, err)
	}
	defer src.Close()

	duration := 0.0
	if n := src.NumFrames(); n > 0 {
		duration = float64(n) / float64(src.SampleRate())
	}
	return d.DecodeSource(ctx, input, src, duration, progress)
}

// DecodeSource decodes src, which is labelled input in progress updates and
// tape map names. duration is the expected length in seconds, 0 if unknown.
func (d *Decoder) DecodeSource(ctx context.Context, input string, src audio.SampleSource, duration float64, progress ProgressFunc) (Result, error) {
	start := time.Now()
	result := Result{Input: input}

	conv := codec.NewHalfPeriodConverter(d.Source(src))
	hpp := newTrackingProvider(ctx, conv)
	report := func() {
		if progress == nil {
			return
		}
		progress(Progress{
			Input:    input,
			Position: hpp.Position(),
			Duration: duration,
			Files:    len(result.Files),
			Errors:   result.Errors(),
		})
	}
	hpp.onProgress = report

	logger.Logf(logger.Info, "decode", "decoding %s as %s", input, d.config.Format.Name)

	for file, err := range d.config.Format.Decode(hpp, d.config.Settings.OnError) {
		if hpp.cancelled {
			// the file was cut short by the cancellation
			return result, ctx.Err()
		}
		if err != nil {
			return result, fmt.Errorf("%s: %w", input, err)
		}
		w, err := d.write(file)
		if err != nil {
			return result, err
		}
		result.Files = append(result.Files, w)
		report()
	}

	if hpp.cancelled {
		return result, ctx.Err()
	}
	if err := conv.Err(); err != nil {
		return result, fmt.Errorf("error reading %s: %w", input, err)
	}

	result.Duration = hpp.Position().Seconds
	result.Elapsed = time.Since(start)
	report()

	if d.config.TapeMap && !d.config.DryRun {
		path, err := d.writeMap(input, result)
		if err != nil {
			return result, err
		}
		result.MapPath = path
	}
	return result, nil
}

// DecodeAll decodes inputs with at most jobs running at once. Results are
// in input order; the first error cancels the inputs not yet finished.
func (d *Decoder) DecodeAll(ctx context.Context, inputs []string, jobs int, progress ProgressFunc) ([]Result, error) {
	results := make([]Result, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))

	for i, input := range inputs {
		g.Go(func() error {
			r, err := d.DecodeFile(ctx, input, progress)
			results[i] = r
			return err
		})
	}

	err := g.Wait()
	return results, err
}

// write stores a decoded file under a unique name.
func (d *Decoder) write(file formats.OutputFile) (Written, error) {
	d.mu.Lock()
	name := d.namer.Next(file)
	d.mu.Unlock()

	path := filepath.Join(d.config.OutDir, name)
	w := Written{Path: path, File: file}
	if d.config.DryRun {
		return w, nil
	}

	if d.config.OutDir != "" {
		if err := os.MkdirAll(d.config.OutDir, 0o755); err != nil {
			return w, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, file.Data, 0o644); err != nil {
		return w, fmt.Errorf("failed to write %s: %w", path, err)
	}
	logger.Logf(logger.Info, "decode", "wrote %s (%d bytes)", path, len(file.Data))
	return w, nil
}

func (d *Decoder) writeMap(input string, result Result) (string, error) {
	var blocks []codec.Block
	for _, w := range result.Files {
		blocks = append(blocks, w.File.Blocks...)
	}

	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	path := filepath.Join(d.config.OutDir, base+".map.png")
	if d.config.OutDir != "" {
		if err := os.MkdirAll(d.config.OutDir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	spans := renderer.SpansFromBlocks(blocks)
	if err := renderer.RenderTapeMap(path, spans, result.Duration); err != nil {
		return "", fmt.Errorf("failed to render tape map: %w", err)
	}
	return path, nil
}
