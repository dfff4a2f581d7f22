package codec

import (
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = 44100

// testBlock creates a block spanning [begin, end) in samples.
func testBlock(number, begin, end int, status BlockStatus) Block {
	return Block{
		Data:   []byte{byte(number)},
		Status: status,
		Begin:  PositionAt(begin, testRate),
		End:    PositionAt(end, testRate),
		Number: number,
	}
}

func seqOf(blocks ...Block) iter.Seq2[Block, error] {
	return func(yield func(Block, error) bool) {
		for _, b := range blocks {
			if !yield(b, nil) {
				return
			}
		}
	}
}

func collect(t *testing.T, files iter.Seq2[File, error]) []File {
	t.Helper()
	var out []File
	for f, err := range files {
		require.NoError(t, err)
		out = append(out, f)
	}
	return out
}

// TestFileAssembler_SequenceReset verifies that a block number that does
// not increase starts a new file and that defective blocks mark it as error.
func TestFileAssembler_SequenceReset(t *testing.T) {
	asm := NewFileAssembler(BoundaryRule{SequenceReset: true})
	files := collect(t, asm.Files(seqOf(
		testBlock(1, 0, 100, Complete),
		testBlock(2, 100, 200, Complete),
		testBlock(0xff, 200, 300, Complete),
		testBlock(1, 300, 400, Complete),
		testBlock(0xff, 400, 500, InvalidChecksum),
	)))

	require.Len(t, files, 2)
	assert.Equal(t, []byte{1, 2, 0xff}, files[0].Data())
	assert.Equal(t, Success, files[0].Status)
	assert.Equal(t, 0, files[0].Begin.Samples)
	assert.Equal(t, 300, files[0].End.Samples)

	assert.Equal(t, []byte{1, 0xff}, files[1].Data())
	assert.Equal(t, Error, files[1].Status)
	assert.Equal(t, 4, asm.CompleteBlocks())
}

// A gap just under the limit keeps blocks together, one just over splits
// them.
func TestFileAssembler_MaxGap(t *testing.T) {
	asm := NewFileAssembler(BoundaryRule{MaxGap: 1})
	files := collect(t, asm.Files(seqOf(
		testBlock(-1, 0, 1000, Complete),
		testBlock(-1, 1000+testRate-1, 50000+testRate, Complete),      // just under a second
		testBlock(-1, 50000+2*testRate+1, 100000+2*testRate, Complete), // just over
	)))

	require.Len(t, files, 2)
	assert.Len(t, files[0].Blocks, 2)
	assert.Len(t, files[1].Blocks, 1)
}

// TestFileAssembler_EveryBlock verifies one file per block.
func TestFileAssembler_EveryBlock(t *testing.T) {
	asm := NewFileAssembler(BoundaryRule{EveryBlock: true})
	files := collect(t, asm.Files(seqOf(
		testBlock(-1, 0, 10, Complete),
		testBlock(-1, 10, 20, Partial),
	)))
	require.Len(t, files, 2)
	assert.Equal(t, Success, files[0].Status)
	assert.Equal(t, Error, files[1].Status)
}

// The inspect hook must see the decision for every block, with the first
// block of the input always starting a file.
func TestFileAssembler_Inspect(t *testing.T) {
	var decisions []bool
	asm := NewFileAssembler(BoundaryRule{
		StartsFile: func(prev, cur Block) bool { return cur.Number == 5 },
		Inspect: func(prev *Block, cur Block, startsFile bool) {
			decisions = append(decisions, startsFile)
		},
	})
	files := collect(t, asm.Files(seqOf(
		testBlock(3, 0, 10, Complete),
		testBlock(4, 10, 20, Complete),
		testBlock(5, 20, 30, Complete),
	)))
	assert.Len(t, files, 2)
	assert.Equal(t, []bool{true, false, true}, decisions)
}

func TestFileAssembler_Empty(t *testing.T) {
	asm := NewFileAssembler(BoundaryRule{SequenceReset: true})
	assert.Empty(t, collect(t, asm.Files(seqOf())))
}

// Breaking out of the loop must stop the assembler without a panic.
func TestFileAssembler_EarlyStop(t *testing.T) {
	asm := NewFileAssembler(BoundaryRule{EveryBlock: true})
	n := 0
	for range asm.Files(seqOf(testBlock(1, 0, 1, Complete), testBlock(2, 1, 2, Complete))) {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

// TestHalfPeriodHistogram verifies bucketing, the overflow bucket and that
// modes come out most frequent first.
func TestHalfPeriodHistogram(t *testing.T) {
	hpp := newDummyProvider(1050, 1060, 1950, 1040, 9000, 1990, 1500)
	h := HalfPeriodHistogram(hpp, 100, 5000)

	assert.Equal(t, 7, h.Total)
	assert.Len(t, h.Counts, 51)
	assert.Equal(t, 3, h.Counts[10])
	assert.Equal(t, 1, h.Counts[50])
	assert.Equal(t, []float64{1050, 1950}, h.Modes(2))
}

// Equally frequent modes must keep their frequency order so the analyze
// output does not change between runs.
func TestHistogramModes_Ties(t *testing.T) {
	h := Histogram{BinSize: 100, Counts: []int{0, 2, 0, 5, 0, 2, 0, 5, 0}}
	assert.Equal(t, []float64{350, 750, 150, 550}, h.Modes(10))
	assert.Equal(t, []float64{350}, h.Modes(1))
	assert.Empty(t, h.Modes(0))
	assert.Empty(t, h.Modes(-1))
}
