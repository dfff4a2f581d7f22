package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxmatters/tapedeck/internal/codec"
	"github.com/linuxmatters/tapedeck/internal/decoder"
	"github.com/linuxmatters/tapedeck/internal/formats"
)

// TestEncodeOptions_Settings verifies that hex addresses in both notations
// reach the encoder settings and that bad flags are reported by name.
func TestEncodeOptions_Settings(t *testing.T) {
	o := encodeOptions{Format: "kc", Load: "0x1000", Entry: "$1003", FirstBlock: -1, SampleRate: 22050}
	s, err := o.settings()
	require.NoError(t, err)
	assert.Equal(t, 0x1000, s.Load)
	assert.Equal(t, 0x1003, s.Entry)
	assert.Equal(t, 22050, s.SampleRate)

	_, err = encodeOptions{Load: "xyz", SampleRate: 44100, FirstBlock: -1}.settings()
	assert.ErrorContains(t, err, "--load")

	_, err = encodeOptions{SampleRate: 100, FirstBlock: -1}.settings()
	assert.Error(t, err)
}

// TestLabelAt verifies that playback shows the block under the play head and
// nothing past the last annotation.
func TestLabelAt(t *testing.T) {
	annotations := []codec.Annotation{
		{Label: "header", Begin: codec.PositionAt(0, 100), End: codec.PositionAt(100, 100)},
		{Label: "data", Begin: codec.PositionAt(100, 100), End: codec.PositionAt(300, 100)},
	}
	assert.Equal(t, "header", labelAt(annotations, 0.5))
	assert.Equal(t, "data", labelAt(annotations, 1))
	assert.Equal(t, "", labelAt(annotations, 5))
}

// Unknown formats and error policies must be rejected before any input is
// opened.
func TestDecodeCmd_NewDecoder(t *testing.T) {
	c := decodeCmd{Format: "z1013", OnError: "skipfile", Channel: -1, Jobs: 1}
	_, err := c.newDecoder()
	require.NoError(t, err)

	c.Format = "zx81"
	_, err = c.newDecoder()
	assert.ErrorIs(t, err, formats.ErrUnknownFormat)

	c = decodeCmd{Format: "kc", OnError: "retry", Channel: -1}
	_, err = c.newDecoder()
	assert.Error(t, err)
}

// TestSummaries verifies that inputs which never started are left out of the
// final view and defective files are counted.
func TestSummaries(t *testing.T) {
	results := []decoder.Result{
		{
			Input: "a.wav",
			Files: []decoder.Written{
				{Path: "out/file001.bin", File: formats.OutputFile{Extension: "bin", Status: codec.Success}},
				{Path: "out/file002.bin", File: formats.OutputFile{Extension: "bin", Status: codec.Error}},
			},
			Duration: 12,
		},
		{}, // not started
	}

	out := summaries(results)
	require.Len(t, out, 1)
	assert.Equal(t, "a.wav", out[0].Input)
	assert.Equal(t, 1, out[0].Errors)
	require.Len(t, out[0].Files, 2)
	assert.Contains(t, out[0].Files[0], "out/file001.bin")
}
