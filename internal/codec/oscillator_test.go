package codec

import (
	"bytes"
	"testing"

	"github.com/linuxmatters/tapedeck/internal/audio"
	"github.com/stretchr/testify/assert"
)

// TestOscillator verifies the sample layout of full and half oscillations,
// including the phase flip after a half oscillation.
func TestOscillator(t *testing.T) {
	rec := audio.NewRecording(44100)
	osc := NewOscillator(rec, WithLeadIn(10), WithLeadOut(5))

	osc.Begin()
	assert.True(t, osc.Phase())

	osc.RecordOscillations(1000, 2)
	assert.True(t, osc.Phase(), "full oscillations keep the phase")

	osc.RecordHalfOscillation(1000)
	assert.False(t, osc.Phase())

	osc.RecordOscillations(1000, 1)
	osc.End()

	assert.Equal(t, 10+88+22+44+5, rec.Len())
	assert.Equal(t, rec.Len(), osc.Position().Samples)

	pcm := rec.PCM8()
	assert.Equal(t, bytes.Repeat([]byte{audio.PCMZero}, 10), pcm[:10])
	assert.Equal(t, bytes.Repeat([]byte{audio.PCMHigh}, 22), pcm[10:32])
	assert.Equal(t, bytes.Repeat([]byte{audio.PCMLow}, 22), pcm[32:54])

	// the half oscillation is high, so the next oscillation starts low
	assert.Equal(t, bytes.Repeat([]byte{audio.PCMHigh}, 22), pcm[98:120])
	assert.Equal(t, bytes.Repeat([]byte{audio.PCMLow}, 22), pcm[120:142])
	assert.Equal(t, bytes.Repeat([]byte{audio.PCMHigh}, 22), pcm[142:164])
	assert.Equal(t, bytes.Repeat([]byte{audio.PCMZero}, 5), pcm[164:])
}

// Without options a recording starts with half a second and ends with a
// second of silence.
func TestOscillator_DefaultLeadInOut(t *testing.T) {
	rec := audio.NewRecording(44100)
	osc := NewOscillator(rec)
	osc.Begin()
	assert.Equal(t, 22050, rec.Len())
	osc.End()
	assert.Equal(t, 22050+44100, rec.Len())
}

// Floating point rounding must not drop the last oscillation of a pilot.
func TestOscillator_RecordSeconds(t *testing.T) {
	rec := audio.NewRecording(44100)
	osc := NewOscillator(rec)

	// 1200 * 0.9 is not exactly 1080 in floating point
	osc.RecordSeconds(1200, 0.9)
	assert.Equal(t, 1080*36, rec.Len())
}

// Short gaps round up to at least one sample.
func TestOscillator_RecordSilenceMs(t *testing.T) {
	rec := audio.NewRecording(44100)
	osc := NewOscillator(rec)
	osc.RecordSilenceMs(1000)
	assert.Equal(t, 44100, rec.Len())
	osc.RecordSilenceMs(0.01)
	assert.Equal(t, 44101, rec.Len())
}

// TestOscillator_InvalidArguments verifies that impossible frequencies and
// counts panic instead of writing a corrupt recording.
func TestOscillator_InvalidArguments(t *testing.T) {
	osc := NewOscillator(audio.NewRecording(44100))
	assert.Panics(t, func() { osc.RecordOscillations(0, 1) })
	assert.Panics(t, func() { osc.RecordOscillations(1000, -1) })
	assert.Panics(t, func() { osc.RecordSilence(-1) })
	assert.Panics(t, func() { osc.RecordHalfOscillationSamples(-3) })
}

// Annotations must cover exactly the samples written inside them.
func TestOscillator_Annotate(t *testing.T) {
	osc := NewOscillator(audio.NewRecording(44100), WithLeadIn(100))
	osc.Begin()
	osc.Annotate("block", func() {
		osc.RecordOscillations(2205, 10)
	})

	ann := osc.Annotations()
	if assert.Len(t, ann, 1) {
		assert.Equal(t, "block", ann[0].Label)
		assert.Equal(t, 100, ann[0].Begin.Samples)
		assert.Equal(t, 300, ann[0].End.Samples)
	}
}

func TestPosition_String(t *testing.T) {
	p := PositionAt(44100*3723+22050, 44100)
	assert.Equal(t, "01:02:03.5000 sample 164206350", p.String())
}
