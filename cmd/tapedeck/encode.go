package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/linuxmatters/tapedeck/internal/audio"
	"github.com/linuxmatters/tapedeck/internal/cli"
	"github.com/linuxmatters/tapedeck/internal/codec"
	"github.com/linuxmatters/tapedeck/internal/config"
	"github.com/linuxmatters/tapedeck/internal/encoder"
	"github.com/linuxmatters/tapedeck/internal/formats"
	"github.com/linuxmatters/tapedeck/internal/renderer"
	"github.com/linuxmatters/tapedeck/internal/ui"
)

// encodeOptions are shared by encode and play
type encodeOptions struct {
	Format     string `short:"f" required:"" enum:"${formats}" help:"Tape format (${formats})"`
	Name       string `short:"n" help:"File name stored on tape (kc: NAME.TYP, lc80: hex file number)"`
	Load       string `help:"Load address in hex"`
	Entry      string `help:"Entry or exec address in hex"`
	FirstBlock int    `help:"Number of the first block (kc)" default:"-1"`
	ShortPilot bool   `help:"Shorten leader tones (lc80, apple2, electron, pc)"`
	SampleRate int    `help:"Output sample rate in Hz" default:"44100"`
}

func (o encodeOptions) settings() (config.EncoderSettings, error) {
	s := config.DefaultEncoderSettings()
	s.Name = o.Name
	s.ShortPilot = o.ShortPilot
	s.SampleRate = o.SampleRate
	s.FirstBlock = o.FirstBlock

	var err error
	if s.Load, err = config.ParseAddress(o.Load); err != nil {
		return s, fmt.Errorf("--load: %w", err)
	}
	if s.Entry, err = config.ParseAddress(o.Entry); err != nil {
		return s, fmt.Errorf("--entry: %w", err)
	}
	return s, s.Validate()
}

// encode reads input and encodes it in memory
func (o encodeOptions) encode(input, output string, raw bool) (*encoder.Encoder, error) {
	format, err := formats.Lookup(o.Format)
	if err != nil {
		return nil, err
	}
	settings, err := o.settings()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	enc, err := encoder.New(encoder.Config{
		OutputPath: output,
		Format:     format,
		Settings:   settings,
		Raw:        raw,
	})
	if err != nil {
		return nil, err
	}
	if err := enc.Encode(data); err != nil {
		return nil, err
	}
	return enc, nil
}

type encodeCmd struct {
	Input  string `arg:"" name:"input" help:"Binary file to encode" type:"existingfile"`
	Output string `arg:"" name:"output" help:"Output WAV file"`

	encodeOptions `embed:""`

	Raw bool   `help:"Write headerless unsigned 8-bit PCM instead of WAV"`
	Map string `help:"Also draw the block layout to this PNG file" type:"path"`
}

func (c *encodeCmd) run() error {
	start := time.Now()

	enc, err := c.encode(c.Input, c.Output, c.Raw)
	if err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	if c.Map != "" {
		rec := enc.Recording()
		spans := renderer.SpansFromAnnotations(enc.Annotations())
		if err := renderer.RenderTapeMap(c.Map, spans, rec.Duration().Seconds()); err != nil {
			return fmt.Errorf("failed to render tape map: %w", err)
		}
	}

	stats := enc.Stats()
	cli.PrintEncodeSummary(cli.EncodeSummary{
		Output:   c.Output,
		Format:   c.Format,
		Input:    int64(stats.Input),
		Duration: stats.Duration,
		FileSize: stats.FileSize,
		Blocks:   stats.Blocks,
		Elapsed:  time.Since(start),
	})
	return nil
}

type playCmd struct {
	Input string `arg:"" name:"input" help:"Binary file to play" type:"existingfile"`

	encodeOptions `embed:""`

	NoProgress bool `help:"Disable the progress display"`
}

func (c *playCmd) run() error {
	enc, err := c.encode(c.Input, "", false)
	if err != nil {
		return err
	}
	rec := enc.Recording()
	annotations := enc.Annotations()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if c.NoProgress {
		cli.PrintInfo("Playing", fmt.Sprintf("%s as %s, %s", c.Input, c.Format, rec.Duration().Round(time.Second)))
		return audio.Play(ctx, rec, nil)
	}

	model := ui.NewPlayModel(fmt.Sprintf("Playing %s as %s", c.Input, c.Format), rec.Duration())
	p := tea.NewProgram(model)

	var playErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		playErr = audio.Play(ctx, rec, func(played, total time.Duration) {
			p.Send(ui.PlayProgress{
				Played: played,
				Total:  total,
				Label:  labelAt(annotations, played.Seconds()),
			})
		})
		p.Send(ui.PlayComplete{Err: playErr})
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running UI: %w", err)
	}

	// stop playback if the user quit early
	cancel()
	<-done

	if model.Interrupted() {
		return nil
	}
	return playErr
}

// labelAt returns the label of the annotation covering seconds
func labelAt(annotations []codec.Annotation, seconds float64) string {
	for _, a := range annotations {
		if seconds >= a.Begin.Seconds && seconds < a.End.Seconds {
			return a.Label
		}
	}
	return ""
}
