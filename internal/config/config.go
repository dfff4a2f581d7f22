package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Audio settings
const (
	SampleRate    = 44100 // Default output sample rate in Hz
	BitsPerSample = 8     // Output recordings are 8-bit unsigned PCM

	// Lead-in and lead-out silence written around every recording,
	// expressed as fractions of a second of samples
	LeadInDivisor  = 2 // sampleRate / 2
	LeadOutDivisor = 1 // sampleRate / 1
)

// Decoder settings
const (
	// LowPassCutoff is the default cut-off of the moving-average stage that
	// precedes half-period detection
	LowPassCutoff = 11025

	// FileGapSeconds is the largest silence allowed between two blocks of
	// the same file before a new file is started
	FileGapSeconds = 1.0

	// DefaultSyncDeviation is the relative deviation tolerated by the
	// dynamic sync finder while following a carrier
	DefaultSyncDeviation = 0.1

	// ProgressInterval is the number of samples between progress updates
	ProgressInterval = 44100 / 4
)

// Analysis settings
const (
	FFTSize          = 4096 // Window used for the carrier estimate
	HistogramBinSize = 100  // Width of a half-period histogram bucket in Hz
	HistogramMaxFreq = 5000 // Frequencies above this land in the last bucket
)

// Tape map settings
const (
	MapWidth      = 1280
	MapHeight     = 200
	MapMargin     = 20
	MapFontSize   = 12.0
	MapFontDPI    = 72.0
	MapBlockColor = "#4A9B4A"
	MapErrorColor = "#DC143C"
)

// ErrorPolicy decides what a decode run does with defective blocks.
type ErrorPolicy string

const (
	// PolicyStop aborts decoding at the first defective block
	PolicyStop ErrorPolicy = "stop"
	// PolicySkipFile drops files that contain defective blocks
	PolicySkipFile ErrorPolicy = "skipfile"
	// PolicyIgnore emits every file and leaves it to the caller
	PolicyIgnore ErrorPolicy = "ignore"
)

// ParseErrorPolicy converts a flag value into an ErrorPolicy.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch p := ErrorPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyStop, PolicySkipFile, PolicyIgnore:
		return p, nil
	case "":
		return PolicyIgnore, nil
	default:
		return "", fmt.Errorf("invalid error policy %q (must be stop, skipfile or ignore)", s)
	}
}

// DecoderSettings are the user supplied options of a decode run.
type DecoderSettings struct {
	OnError ErrorPolicy
	Skip    int // Frames to skip at the start of the input
	Channel int // Channel to read from multi-channel input, -1 selects the first
}

// DefaultDecoderSettings returns the settings used when no flags are given.
func DefaultDecoderSettings() DecoderSettings {
	return DecoderSettings{
		OnError: PolicyIgnore,
		Skip:    0,
		Channel: -1,
	}
}

// Validate checks the settings for values the decoder cannot honour.
func (s DecoderSettings) Validate() error {
	if _, err := ParseErrorPolicy(string(s.OnError)); err != nil {
		return err
	}
	if s.Skip < 0 {
		return fmt.Errorf("invalid skip value %d (must not be negative)", s.Skip)
	}
	if s.Channel < -1 {
		return fmt.Errorf("invalid channel %d", s.Channel)
	}
	return nil
}

// EncoderSettings are the user supplied options of an encode run.
type EncoderSettings struct {
	SampleRate int
	ShortPilot bool   // Shorten leader tones where the format allows it
	Name       string // File name stored in the tape header
	Load       int    // Load address, -1 selects the format default
	Entry      int    // Entry/exec address, -1 selects the format default
	FirstBlock int    // First block number, -1 selects the format default
	FileNumber int    // File number for formats that number files
}

// DefaultEncoderSettings returns the settings used when no flags are given.
func DefaultEncoderSettings() EncoderSettings {
	return EncoderSettings{
		SampleRate: SampleRate,
		Load:       -1,
		Entry:      -1,
		FirstBlock: -1,
	}
}

// Validate checks the settings for values the encoder cannot honour.
func (s EncoderSettings) Validate() error {
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		return fmt.Errorf("invalid sample rate %d (must be between 8000 and 192000)", s.SampleRate)
	}
	if s.Load < -1 || s.Load > 0xffff {
		return fmt.Errorf("invalid load address %d", s.Load)
	}
	if s.Entry < -1 || s.Entry > 0xffff {
		return fmt.Errorf("invalid entry address %d", s.Entry)
	}
	if s.FirstBlock < -1 || s.FirstBlock > 0xff {
		return fmt.Errorf("invalid first block %d", s.FirstBlock)
	}
	if s.FileNumber < 0 || s.FileNumber > 0xffff {
		return fmt.Errorf("invalid file number %d", s.FileNumber)
	}
	return nil
}

// ParseAddress parses a 16-bit address given in hex (0x prefix or $ prefix
// or bare) as used on the command line. An empty string yields -1.
func ParseAddress(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return -1, nil
	}
	digits := strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(s), "0x"), "$")
	if digits == "" || len(digits) > 4 {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	v, err := strconv.ParseUint(digits, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return int(v), nil
}
