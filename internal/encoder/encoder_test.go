package encoder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxmatters/tapedeck/internal/audio"
	"github.com/linuxmatters/tapedeck/internal/codec"
	"github.com/linuxmatters/tapedeck/internal/config"
	"github.com/linuxmatters/tapedeck/internal/formats"
)

func lookup(t *testing.T, name string) formats.Format {
	t.Helper()
	f, err := formats.Lookup(name)
	require.NoError(t, err)
	return f
}

// TestNew_Validation verifies that formats without an encoder and bad
// settings are refused up front.
func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Format: formats.Format{Name: "none"}, Settings: config.DefaultEncoderSettings()})
	assert.Error(t, err)

	settings := config.DefaultEncoderSettings()
	settings.SampleRate = 100
	_, err = New(Config{Format: lookup(t, "kc"), Settings: settings})
	assert.Error(t, err)

	_, err = New(Config{Format: lookup(t, "kc"), Settings: config.DefaultEncoderSettings()})
	assert.NoError(t, err)
}

// TestEncodeWAV verifies the encode stats and that the written WAV decodes
// back to the input.
func TestEncodeWAV(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "out.wav")

	enc, err := New(Config{
		OutputPath: outputPath,
		Format:     lookup(t, "z1013"),
		Settings:   config.DefaultEncoderSettings(),
	})
	require.NoError(t, err)

	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, enc.Encode(data))
	require.NoError(t, enc.Close())

	stats := enc.Stats()
	assert.Equal(t, 100, stats.Input)
	assert.Equal(t, enc.Recording().Len(), stats.Samples)
	assert.Equal(t, 4, stats.Blocks, "100 bytes are four 32 byte blocks")
	assert.Len(t, enc.Annotations(), 4)

	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), stats.FileSize)
	assert.Greater(t, stats.FileSize, int64(stats.Samples), "WAV adds a header")

	// the written file decodes to the original data
	src, err := audio.Open(outputPath, config.DefaultDecoderSettings())
	require.NoError(t, err)
	defer src.Close()

	var files []formats.OutputFile
	for f, err := range lookup(t, "z1013").Decode(codec.NewHalfPeriodConverter(src), config.PolicyIgnore) {
		require.NoError(t, err)
		files = append(files, f)
	}
	require.Len(t, files, 1)
	assert.Equal(t, data, files[0].Data[:100])
}

// TestEncodeRaw verifies that raw output is the bare 8-bit samples.
func TestEncodeRaw(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "out.raw")

	enc, err := New(Config{
		OutputPath: outputPath,
		Format:     lookup(t, "apple2"),
		Settings:   config.DefaultEncoderSettings(),
		Raw:        true,
	})
	require.NoError(t, err)
	require.NoError(t, enc.Encode([]byte{1, 2, 3}))
	require.NoError(t, enc.Close())

	raw, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, enc.Recording().PCM8(), raw)
	assert.Equal(t, int64(len(raw)), enc.Stats().FileSize)
}

// Closing without encoding must not write an empty file.
func TestClose_BeforeEncode(t *testing.T) {
	enc, err := New(Config{
		OutputPath: filepath.Join(t.TempDir(), "out.wav"),
		Format:     lookup(t, "kc"),
		Settings:   config.DefaultEncoderSettings(),
	})
	require.NoError(t, err)
	assert.ErrorIs(t, enc.Close(), ErrNotEncoded)
}

// Without an output path the recording stays in memory for playback.
func TestEncode_InMemory(t *testing.T) {
	enc, err := New(Config{Format: lookup(t, "electron"), Settings: config.DefaultEncoderSettings()})
	require.NoError(t, err)
	require.NoError(t, enc.Encode([]byte("HELLO")))
	require.NoError(t, enc.Close(), "no output path means nothing to write")
	assert.Positive(t, enc.Recording().Duration())
}

// A format error leaves no partial recording behind.
func TestEncode_FormatError(t *testing.T) {
	settings := config.DefaultEncoderSettings()
	enc, err := New(Config{Format: lookup(t, "lc80"), Settings: settings})
	require.NoError(t, err)

	err = enc.Encode([]byte{1})
	assert.ErrorIs(t, err, formats.ErrInvalidOption, "lc80 needs a load address")
	assert.Nil(t, enc.Recording())
}
