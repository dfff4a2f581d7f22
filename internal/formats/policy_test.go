package formats

import (
	"iter"
	"testing"

	"github.com/linuxmatters/tapedeck/internal/audio"
	"github.com/linuxmatters/tapedeck/internal/codec"
	"github.com/linuxmatters/tapedeck/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileWith(statuses ...codec.BlockStatus) codec.File {
	var blocks []codec.Block
	for i, s := range statuses {
		blocks = append(blocks, codec.Block{Status: s, Number: i, Begin: codec.PositionAt(i*100, 44100)})
	}
	return codec.NewFile(blocks)
}

func fileSeq(files ...codec.File) iter.Seq2[codec.File, error] {
	return func(yield func(codec.File, error) bool) {
		for _, f := range files {
			if !yield(f, nil) {
				return
			}
		}
	}
}

// TestApplyPolicy verifies which files each policy lets through and when
// it stops.
func TestApplyPolicy(t *testing.T) {
	good := fileWith(codec.Complete, codec.Complete)
	bad := fileWith(codec.Complete, codec.InvalidChecksum)
	after := fileWith(codec.Complete)

	tests := []struct {
		policy  config.ErrorPolicy
		emitted int
		stopped bool
	}{
		{config.PolicyIgnore, 3, false},
		{config.PolicySkipFile, 2, false},
		{config.PolicyStop, 1, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			emitted := 0
			var stopErr error
			for _, err := range ApplyPolicy(fileSeq(good, bad, after), tt.policy) {
				if err != nil {
					stopErr = err
					continue
				}
				emitted++
			}
			assert.Equal(t, tt.emitted, emitted)
			if tt.stopped {
				require.ErrorIs(t, stopErr, ErrStopped)
				assert.Contains(t, stopErr.Error(), "invalid checksum")
				assert.Contains(t, stopErr.Error(), "sample 000000100")
			} else {
				assert.NoError(t, stopErr)
			}
		})
	}
}

// corruptBlock silences the middle of the annotated block.
func corruptBlock(rec *audio.Recording, ann codec.Annotation) {
	pcm := rec.PCM8()
	mid := (ann.Begin.Samples + ann.End.Samples) / 2
	for i := mid; i < mid+200; i++ {
		pcm[i] = audio.PCMZero
	}
}

// A block damaged on tape must make its file defective while the other
// files of the recording still decode.
func TestPolicyOnDefectiveRecording(t *testing.T) {
	rec := audio.NewRecording(config.SampleRate)
	osc := encodeTo(t, rec, z1013Format, testData(96), config.DefaultEncoderSettings())
	ann := osc.Annotations()
	require.Len(t, ann, 3)
	corruptBlock(rec, ann[1])

	files, err := decodeAll(t, z1013Format, rec, config.PolicyIgnore)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, codec.Error, files[0].Status)

	files, err = decodeAll(t, z1013Format, rec, config.PolicySkipFile)
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = decodeAll(t, z1013Format, rec, config.PolicyStop)
	assert.ErrorIs(t, err, ErrStopped)
}
