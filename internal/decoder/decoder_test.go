package decoder

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxmatters/tapedeck/internal/audio"
	"github.com/linuxmatters/tapedeck/internal/codec"
	"github.com/linuxmatters/tapedeck/internal/config"
	"github.com/linuxmatters/tapedeck/internal/encoder"
	"github.com/linuxmatters/tapedeck/internal/formats"
)

func lookup(t *testing.T, name string) formats.Format {
	t.Helper()
	f, err := formats.Lookup(name)
	require.NoError(t, err)
	return f
}

// writeTape encodes data as format into a WAV file under dir.
func writeTape(t *testing.T, dir, name, format string, settings config.EncoderSettings, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	enc, err := encoder.New(encoder.Config{
		OutputPath: path,
		Format:     lookup(t, format),
		Settings:   settings,
	})
	require.NoError(t, err)
	require.NoError(t, enc.Encode(data))
	require.NoError(t, enc.Close())
	return path
}

func shortSettings() config.EncoderSettings {
	s := config.DefaultEncoderSettings()
	s.ShortPilot = true
	return s
}

// TestNew_Validation verifies that formats without a decoder and bad
// settings are refused up front.
func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Format: formats.Format{Name: "none"}, Settings: config.DefaultDecoderSettings()})
	assert.Error(t, err)

	settings := config.DefaultDecoderSettings()
	settings.Skip = -1
	_, err = New(Config{Format: lookup(t, "kc"), Settings: settings})
	assert.Error(t, err)

	_, err = New(Config{Format: lookup(t, "kc"), Settings: config.DefaultDecoderSettings(), HighPass: -5})
	assert.Error(t, err)
}

// TestLowPassSelection verifies that the flag overrides the format default
// and a negative value disables the filter.
func TestLowPassSelection(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		lowPass float64
		want    float64
	}{
		{"format default", "kc", 0, config.LowPassCutoff},
		{"format without filter", "apple2", 0, 0},
		{"explicit", "apple2", 5000, 5000},
		{"disabled", "kc", -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(Config{Format: lookup(t, tt.format), Settings: config.DefaultDecoderSettings(), LowPass: tt.lowPass})
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.lowPass())
		})
	}
}

// TestSourceChain verifies which filter stages wrap the input, and that
// with none the input is used as is.
func TestSourceChain(t *testing.T) {
	src := audio.NewSliceSource(44100, 8, nil)

	d, err := New(Config{Format: lookup(t, "apple2"), Settings: config.DefaultDecoderSettings(), HighPass: 100, LowPass: -1})
	require.NoError(t, err)
	assert.IsType(t, &audio.HighPassFilter{}, d.Source(src))

	d, err = New(Config{Format: lookup(t, "kc"), Settings: config.DefaultDecoderSettings(), HighPass: 100})
	require.NoError(t, err)
	assert.IsType(t, &audio.LowPassFilter{}, d.Source(src))

	d, err = New(Config{Format: lookup(t, "apple2"), Settings: config.DefaultDecoderSettings()})
	require.NoError(t, err)
	assert.Same(t, src, d.Source(src))
}

// TestDecodeFile verifies that a decoded file is written with the payload
// that was encoded.
func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()
	data := []byte("tapedeck apple II record")
	input := writeTape(t, dir, "in.wav", "apple2", shortSettings(), data)

	outDir := filepath.Join(dir, "out")
	d, err := New(Config{
		Format:   lookup(t, "apple2"),
		Settings: config.DefaultDecoderSettings(),
		OutDir:   outDir,
		TapeMap:  true,
	})
	require.NoError(t, err)

	var mu sync.Mutex
	var updates []Progress
	result, err := d.DecodeFile(context.Background(), input, func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		updates = append(updates, p)
	})
	require.NoError(t, err)

	require.Len(t, result.Files, 1)
	assert.Equal(t, filepath.Join(outDir, "file001.bin"), result.Files[0].Path)
	assert.Equal(t, codec.Success, result.Files[0].File.Status)
	assert.Zero(t, result.Errors())
	assert.Positive(t, result.Duration)

	written, err := os.ReadFile(result.Files[0].Path)
	require.NoError(t, err)
	assert.Equal(t, data, written)

	require.NotEmpty(t, result.MapPath)
	assert.FileExists(t, result.MapPath)

	require.NotEmpty(t, updates)
	last := updates[len(updates)-1]
	assert.Equal(t, 1, last.Files)
	assert.Equal(t, input, last.Input)
	assert.InDelta(t, last.Duration, last.Position.Seconds, 0.01)
}

// A dry run must not create the output directory.
func TestDecodeFile_DryRun(t *testing.T) {
	dir := t.TempDir()
	input := writeTape(t, dir, "in.wav", "apple2", shortSettings(), []byte{1, 2, 3})

	outDir := filepath.Join(dir, "out")
	d, err := New(Config{
		Format:   lookup(t, "apple2"),
		Settings: config.DefaultDecoderSettings(),
		OutDir:   outDir,
		DryRun:   true,
		TapeMap:  true,
	})
	require.NoError(t, err)

	result, err := d.DecodeFile(context.Background(), input, nil)
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.Empty(t, result.MapPath)
	assert.NoDirExists(t, outDir)
}

// Unsupported and missing inputs are reported before decoding starts.
func TestDecodeFile_Errors(t *testing.T) {
	d, err := New(Config{Format: lookup(t, "kc"), Settings: config.DefaultDecoderSettings(), DryRun: true})
	require.NoError(t, err)

	_, err = d.DecodeFile(context.Background(), filepath.Join(t.TempDir(), "tape.ogg"), nil)
	assert.ErrorIs(t, err, audio.ErrUnsupportedFormat)

	_, err = d.DecodeFile(context.Background(), filepath.Join(t.TempDir(), "missing.wav"), nil)
	assert.Error(t, err)
}

// TestDecodeSource_Cancelled verifies that a cancelled context ends
// decoding with context.Canceled.
func TestDecodeSource_Cancelled(t *testing.T) {
	rec := audio.NewRecording(44100)
	for range 44100 {
		rec.PushSample(audio.High)
	}

	d, err := New(Config{Format: lookup(t, "kc"), Settings: config.DefaultDecoderSettings(), DryRun: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.DecodeSource(ctx, "memory", rec.Source(), rec.Duration().Seconds(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

// A cancellation in the middle of a file must not write the blocks read so
// far as a complete file.
func TestDecodeSource_CancelledMidFile(t *testing.T) {
	settings := config.DefaultEncoderSettings()
	settings.Name = "GAME"
	enc, err := encoder.New(encoder.Config{Format: lookup(t, "kc"), Settings: settings})
	require.NoError(t, err)
	require.NoError(t, enc.Encode(make([]byte, 6*128)))

	annotations := enc.Annotations()
	require.Len(t, annotations, 7)
	cutAt := annotations[2].End.Samples

	outDir := filepath.Join(t.TempDir(), "out")
	d, err := New(Config{Format: lookup(t, "kc"), Settings: config.DefaultDecoderSettings(), OutDir: outDir})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := enc.Recording()
	result, err := d.DecodeSource(ctx, "memory", rec.Source(), rec.Duration().Seconds(), func(p Progress) {
		if p.Position.Samples > cutAt {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, result.Files)
	assert.NoDirExists(t, outDir)
}

// The stop policy must end the run at the defective file and keep the
// files before it.
func TestDecodeSource_StopPolicy(t *testing.T) {
	rec := audio.NewRecording(44100)
	osc := codec.NewOscillator(rec)
	require.NoError(t, lookup(t, "z1013").Encode(osc, make([]byte, 96), config.DefaultEncoderSettings()))

	// silence the middle of the second block
	pcm := rec.PCM8()
	a := osc.Annotations()[1]
	mid := (a.Begin.Samples + a.End.Samples) / 2
	for i := mid; i < mid+200; i++ {
		pcm[i] = audio.PCMZero
	}

	settings := config.DefaultDecoderSettings()
	settings.OnError = config.PolicyStop
	d, err := New(Config{Format: lookup(t, "z1013"), Settings: settings, DryRun: true})
	require.NoError(t, err)

	_, err = d.DecodeSource(context.Background(), "memory", rec.Source(), 0, nil)
	assert.ErrorIs(t, err, formats.ErrStopped)
}

// TestDecodeAll verifies that concurrent decoding keeps the input order and
// unique output names.
func TestDecodeAll(t *testing.T) {
	dir := t.TempDir()
	settings := shortSettings()
	settings.Name = "HELLO"

	inputs := []string{
		writeTape(t, dir, "a.wav", "electron", settings, []byte("first")),
		writeTape(t, dir, "b.wav", "electron", settings, []byte("second")),
		writeTape(t, dir, "c.wav", "electron", settings, []byte("third")),
	}

	outDir := filepath.Join(dir, "out")
	d, err := New(Config{Format: lookup(t, "electron"), Settings: config.DefaultDecoderSettings(), OutDir: outDir})
	require.NoError(t, err)

	results, err := d.DecodeAll(context.Background(), inputs, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	var names []string
	for i, r := range results {
		assert.Equal(t, inputs[i], r.Input)
		require.Len(t, r.Files, 1)
		names = append(names, filepath.Base(r.Files[0].Path))
	}
	sort.Strings(names)
	assert.Equal(t, []string{"HELLO.bin", "HELLO_1.bin", "HELLO_2.bin"}, names)

	assert.Equal(t, []byte("first"), results[0].Files[0].File.Data)
	assert.Equal(t, []byte("third"), results[2].Files[0].File.Data)
}

// One failing input must not lose the results of the others.
func TestDecodeAll_Error(t *testing.T) {
	dir := t.TempDir()
	inputs := []string{
		writeTape(t, dir, "a.wav", "apple2", shortSettings(), []byte{1}),
		filepath.Join(dir, "missing.wav"),
	}

	d, err := New(Config{Format: lookup(t, "apple2"), Settings: config.DefaultDecoderSettings(), DryRun: true})
	require.NoError(t, err)

	results, err := d.DecodeAll(context.Background(), inputs, 1, nil)
	assert.Error(t, err)
	assert.Len(t, results, 2)
}
