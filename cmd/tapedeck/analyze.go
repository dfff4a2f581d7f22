package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/linuxmatters/tapedeck/internal/audio"
	"github.com/linuxmatters/tapedeck/internal/cli"
	"github.com/linuxmatters/tapedeck/internal/codec"
	"github.com/linuxmatters/tapedeck/internal/config"
	"github.com/linuxmatters/tapedeck/internal/ui"
)

type analyzeCmd struct {
	Input string `arg:"" name:"input" help:"Tape recording (WAV, MP3 or FLAC)" type:"existingfile"`

	Skip    int     `help:"Samples to skip at the start of the input"`
	Channel int     `help:"Channel to analyse from multi-channel input" default:"-1"`
	LowPass float64 `help:"Low-pass cut-off in Hz applied before the half-period histogram, 0 for none"`
	Modes   int     `help:"Number of histogram peaks to list" default:"3"`
	Width   int     `help:"Histogram width in columns" default:"60"`
}

func (c *analyzeCmd) settings() config.DecoderSettings {
	s := config.DefaultDecoderSettings()
	s.Skip = c.Skip
	s.Channel = c.Channel
	return s
}

func (c *analyzeCmd) run() error {
	settings := c.settings()
	if err := settings.Validate(); err != nil {
		return err
	}

	src, err := audio.Open(c.Input, settings)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", c.Input, err)
	}
	profile, err := audio.Analyze(src, nil)
	src.Close()
	if err != nil {
		return err
	}

	// second pass for the half periods
	src, err = audio.Open(c.Input, settings)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", c.Input, err)
	}
	defer src.Close()

	var filtered audio.SampleSource = src
	if c.LowPass > 0 {
		filtered = audio.NewLowPassFilter(src, c.LowPass)
	}
	conv := codec.NewHalfPeriodConverter(filtered)
	hist := codec.HalfPeriodHistogram(conv, config.HistogramBinSize, config.HistogramMaxFreq)
	if err := conv.Err(); err != nil {
		return fmt.Errorf("error reading %s: %w", c.Input, err)
	}

	cli.PrintBanner()
	cli.PrintSection(c.Input)
	cli.PrintInfo("Duration", formatSecondsLong(profile.Duration))
	cli.PrintInfo("Format", fmt.Sprintf("%d Hz, %d bit", profile.SampleRate, profile.BitsPerSample))
	cli.PrintInfo("Peak", formatDB(profile.PeakDB()))
	cli.PrintInfo("RMS", formatDB(profile.RMSDB()))
	cli.PrintInfo("DC offset", fmt.Sprintf("%+.2f%%", profile.DCOffset*100))

	if len(profile.Carriers) > 0 {
		var carriers []string
		for _, p := range profile.Carriers {
			carriers = append(carriers, fmt.Sprintf("%.0f Hz", p.Frequency))
		}
		cli.PrintInfo("Carriers", strings.Join(carriers, ", "))
	}

	cli.PrintSection("Half periods")
	cli.PrintInfo("Count", fmt.Sprintf("%d", hist.Total))
	if hist.Total == 0 {
		cli.PrintWarning("no zero crossings found")
		return nil
	}

	var modes []string
	for _, f := range hist.Modes(c.Modes) {
		modes = append(modes, fmt.Sprintf("%.0f Hz", f))
	}
	cli.PrintInfo("Peaks", strings.Join(modes, ", "))
	fmt.Println()
	fmt.Println(ui.RenderHistogram(hist.Counts, max(c.Width, 10)))
	fmt.Printf("0 Hz%*s\n", max(c.Width, 10)-4, fmt.Sprintf("%.0f Hz", float64(config.HistogramMaxFreq)))
	fmt.Println()
	return nil
}

func formatDB(db float64) string {
	if math.IsInf(db, -1) {
		return "-inf dBFS"
	}
	return fmt.Sprintf("%.1f dBFS", db)
}

func formatSecondsLong(s float64) string {
	m := int(s) / 60
	return fmt.Sprintf("%d:%04.1f", m, s-float64(m*60))
}
