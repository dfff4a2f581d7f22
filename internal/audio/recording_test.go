package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxmatters/tapedeck/internal/config"
)

// The three levels must map to the 8-bit values other tools expect.
func TestSampleValuePCM8(t *testing.T) {
	assert.Equal(t, byte(0xfe), High.PCM8())
	assert.Equal(t, byte(0x02), Low.PCM8())
	assert.Equal(t, byte(0x80), Zero.PCM8())
}

// TestRecording verifies that samples are stored in order as 8-bit PCM.
func TestRecording(t *testing.T) {
	rec := NewRecording(22050)
	for _, v := range []SampleValue{Zero, High, High, Low, Low, Zero} {
		rec.PushSample(v)
	}

	assert.Equal(t, 22050, rec.SampleRate())
	assert.Equal(t, 6, rec.Len())
	assert.Equal(t, []byte{0x80, 0xfe, 0xfe, 0x02, 0x02, 0x80}, rec.PCM8())

	src := rec.Source()
	assert.Equal(t, 8, src.BitsPerSample())
	assert.Equal(t, []float64{0x80, 0xfe, 0xfe, 0x02, 0x02, 0x80}, readAll(t, src))
}

// TestRecordingDuration verifies the duration is derived from the rate.
func TestRecordingDuration(t *testing.T) {
	rec := NewRecording(100)
	for i := 0; i < 150; i++ {
		rec.PushSample(Zero)
	}
	assert.Equal(t, "1.5s", rec.Duration().String())
}

// TestRecordingWAVRoundTrip writes a recording through the WAV encoder and
// reads it back through WAVSource.
func TestRecordingWAVRoundTrip(t *testing.T) {
	rec := NewRecording(44100)
	pattern := []SampleValue{High, High, Low, Low, Zero}
	for i := 0; i < 1000; i++ {
		rec.PushSample(pattern[i%len(pattern)])
	}

	path := filepath.Join(t.TempDir(), "out.wav")
	require.NoError(t, rec.SaveWAV(path))

	src, err := NewWAVSource(path, -1)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 44100, src.SampleRate())
	assert.Equal(t, 8, src.BitsPerSample())
	assert.Equal(t, 1, src.NumChannels())
	assert.Equal(t, int64(1000), src.NumFrames())

	got := readAll(t, src)
	require.Len(t, got, 1000)
	for i, v := range got {
		if v != float64(rec.PCM8()[i]) {
			t.Fatalf("sample %d: got %v, want %v", i, v, rec.PCM8()[i])
		}
	}
}

// TestRecordingSaveRaw verifies that raw output carries no header.
func TestRecordingSaveRaw(t *testing.T) {
	rec := NewRecording(44100)
	rec.PushSample(High)
	rec.PushSample(Low)

	path := filepath.Join(t.TempDir(), "out.raw")
	require.NoError(t, rec.SaveRaw(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xfe, 0x02}, data)
}

// writeWAV16 writes interleaved signed 16-bit frames to a new WAV file.
func writeWAV16(t *testing.T, path string, channels int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, 44100, 16, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: channels, SampleRate: 44100},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

// TestWAVSource16BitChannels checks signed-to-unsigned normalisation and
// channel selection on a stereo 16-bit file.
func TestWAVSource16BitChannels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	writeWAV16(t, path, 2, []int{
		-32768, 100,
		0, -100,
		32767, 0,
	})

	left, err := NewWAVSource(path, -1)
	require.NoError(t, err)
	defer left.Close()
	assert.Equal(t, 16, left.BitsPerSample())
	assert.Equal(t, 2, left.NumChannels())
	assert.Equal(t, []float64{0, 32768, 65535}, readAll(t, left))

	right, err := NewWAVSource(path, 1)
	require.NoError(t, err)
	defer right.Close()
	assert.Equal(t, []float64{32868, 32668, 32768}, readAll(t, right))

	_, err = NewWAVSource(path, 2)
	assert.Error(t, err, "channel beyond the file's channel count")
}

// TestOpen verifies that skip is applied and that unknown extensions and
// missing files are refused.
func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mono.wav")
	writeWAV16(t, path, 1, []int{1, 2, 3, 4})

	settings := config.DefaultDecoderSettings()
	settings.Skip = 2
	src, err := Open(path, settings)
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, []float64{32771, 32772}, readAll(t, src))

	_, err = Open(filepath.Join(dir, "tape.ogg"), config.DefaultDecoderSettings())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Open(filepath.Join(dir, "missing.wav"), config.DefaultDecoderSettings())
	assert.Error(t, err)
}

// A file that is not a WAV must fail on open, not on the first read.
func TestNewWAVSourceInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a wave file at all"), 0o644))

	_, err := NewWAVSource(path, -1)
	assert.Error(t, err)
}
