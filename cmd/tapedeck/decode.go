package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/linuxmatters/tapedeck/internal/cli"
	"github.com/linuxmatters/tapedeck/internal/codec"
	"github.com/linuxmatters/tapedeck/internal/config"
	"github.com/linuxmatters/tapedeck/internal/decoder"
	"github.com/linuxmatters/tapedeck/internal/formats"
	"github.com/linuxmatters/tapedeck/internal/logger"
	"github.com/linuxmatters/tapedeck/internal/ui"
)

type decodeCmd struct {
	Inputs []string `arg:"" name:"inputs" help:"Tape recordings (WAV, MP3 or FLAC)"`

	Format   string  `short:"f" required:"" enum:"${formats}" help:"Tape format (${formats})"`
	Out      string  `short:"o" help:"Directory for decoded files" default:"." type:"path"`
	OnError  string  `help:"What to do with defective blocks (stop, skipfile, ignore)" enum:"stop,skipfile,ignore" default:"ignore"`
	Skip     int     `help:"Samples to skip at the start of each input"`
	Channel  int     `help:"Channel to decode from multi-channel input" default:"-1"`
	LowPass  float64 `help:"Low-pass cut-off in Hz, 0 for the format default, negative to disable"`
	HighPass float64 `help:"High-pass cut-off in Hz, 0 to disable"`
	Map      bool    `help:"Draw a PNG tape map of each input next to the decoded files"`
	Jobs     int     `short:"j" help:"Inputs decoded at once" default:"1"`

	NoProgress bool `help:"Disable the progress display"`
	DryRun     bool `help:"Decode without writing any files"`
}

func (c *decodeCmd) newDecoder() (*decoder.Decoder, error) {
	format, err := formats.Lookup(c.Format)
	if err != nil {
		return nil, err
	}

	settings := config.DefaultDecoderSettings()
	if settings.OnError, err = config.ParseErrorPolicy(c.OnError); err != nil {
		return nil, err
	}
	settings.Skip = c.Skip
	settings.Channel = c.Channel

	return decoder.New(decoder.Config{
		Format:   format,
		Settings: settings,
		LowPass:  c.LowPass,
		HighPass: c.HighPass,
		OutDir:   c.Out,
		DryRun:   c.DryRun,
		TapeMap:  c.Map,
	})
}

func (c *decodeCmd) run() error {
	dec, err := c.newDecoder()
	if err != nil {
		return err
	}
	logger.Clear()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if c.NoProgress {
		if !CLI.Verbose {
			logger.SetEcho(os.Stderr, logger.Warn, true)
		}
		start := time.Now()
		results, err := dec.DecodeAll(ctx, c.Inputs, c.Jobs, nil)
		c.printResults(results, time.Since(start))
		return err
	}

	model := ui.NewDecodeModel(c.Format, c.Inputs)
	p := tea.NewProgram(model)

	var decodeErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		start := time.Now()
		var results []decoder.Result
		results, decodeErr = dec.DecodeAll(ctx, c.Inputs, c.Jobs, func(pr decoder.Progress) {
			p.Send(ui.DecodeProgress{
				Input:    pr.Input,
				Seconds:  pr.Position.Seconds,
				Duration: pr.Duration,
				Files:    pr.Files,
				Errors:   pr.Errors,
			})
		})
		p.Send(ui.DecodeComplete{
			Format:    c.Format,
			Inputs:    summaries(results),
			Warnings:  len(logger.Warnings()),
			TotalTime: time.Since(start),
			Err:       decodeErr,
		})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return fmt.Errorf("running UI: %w", err)
	}

	// the user may have quit before decoding finished
	cancel()
	<-done

	if model.Interrupted() {
		cli.PrintWarning("Decoding interrupted")
		return nil
	}
	return decodeErr
}

func summaries(results []decoder.Result) []ui.DecodeSummary {
	out := make([]ui.DecodeSummary, 0, len(results))
	for _, r := range results {
		if r.Input == "" {
			continue
		}
		s := ui.DecodeSummary{
			Input:    r.Input,
			Errors:   r.Errors(),
			Duration: r.Duration,
			MapPath:  r.MapPath,
		}
		for _, w := range r.Files {
			s.Files = append(s.Files, fmt.Sprintf("%s  %s", w.Path, w.File))
		}
		out = append(out, s)
	}
	return out
}

func (c *decodeCmd) printResults(results []decoder.Result, elapsed time.Duration) {
	var inputs []cli.DecodeSummary
	for _, r := range results {
		if r.Input == "" {
			continue
		}
		in := cli.DecodeSummary{Input: r.Input, Duration: r.Duration, MapPath: r.MapPath}
		for _, w := range r.Files {
			in.Files = append(in.Files, cli.DecodedFile{
				Path:      w.Path,
				Detail:    w.File.String(),
				Defective: w.File.Status == codec.Error,
			})
		}
		inputs = append(inputs, in)
	}
	cli.PrintDecodeSummary(inputs, elapsed, c.DryRun)
}
