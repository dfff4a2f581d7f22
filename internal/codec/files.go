package codec

import (
	"fmt"
	"iter"
)

// FileStatus is the outcome of reading one file.
type FileStatus int

// List of valid FileStatus values.
const (
	Success FileStatus = iota
	Error
)

func (s FileStatus) String() string {
	if s == Error {
		return "error"
	}
	return "success"
}

// File is a sequence of blocks that belong together.
type File struct {
	Blocks []Block
	Status FileStatus
	Begin  Position
	End    Position
}

// Data concatenates the data of all blocks.
func (f File) Data() []byte {
	var data []byte
	for _, b := range f.Blocks {
		data = append(data, b.Data...)
	}
	return data
}

func (f File) String() string {
	return fmt.Sprintf("%s - %s: %d block(s), %s", f.Begin, f.End, len(f.Blocks), f.Status)
}

// NewFile builds a File from blocks. The file is in error if any block is
// not complete.
func NewFile(blocks []Block) File {
	status := Success
	for _, b := range blocks {
		if b.Status != Complete {
			status = Error
			break
		}
	}
	return File{
		Blocks: blocks,
		Status: status,
		Begin:  blocks[0].Begin,
		End:    blocks[len(blocks)-1].End,
	}
}

// BoundaryRule decides when a block starts a new file.
type BoundaryRule struct {
	// SequenceReset starts a new file when a block number is not greater
	// than the number of the previous block
	SequenceReset bool

	// MaxGap starts a new file when the silence between the end of the
	// previous block and the begin of the current one exceeds it, in
	// seconds. Zero disables the check.
	MaxGap float64

	// EveryBlock makes every block a file of its own
	EveryBlock bool

	// StartsFile is consulted after the other rules
	StartsFile func(prev, cur Block) bool

	// Inspect is called for every block with the previous block (nil for
	// the first) and the decision taken
	Inspect func(prev *Block, cur Block, startsFile bool)
}

func (r BoundaryRule) startsFile(prev, cur Block) bool {
	switch {
	case r.EveryBlock:
		return true
	case r.SequenceReset && cur.Number <= prev.Number:
		return true
	case r.MaxGap > 0 && cur.Begin.Seconds-prev.End.Seconds > r.MaxGap:
		return true
	case r.StartsFile != nil:
		return r.StartsFile(prev, cur)
	}
	return false
}

// FileAssembler groups blocks into files.
type FileAssembler struct {
	rule     BoundaryRule
	complete int
}

// NewFileAssembler creates an assembler using rule.
func NewFileAssembler(rule BoundaryRule) *FileAssembler {
	return &FileAssembler{rule: rule}
}

// CompleteBlocks returns the number of complete blocks seen so far.
func (a *FileAssembler) CompleteBlocks() int {
	return a.complete
}

// Files groups blocks into files. Errors from blocks are passed on and end
// the sequence; blocks accumulated before an error are not flushed.
func (a *FileAssembler) Files(blocks iter.Seq2[Block, error]) iter.Seq2[File, error] {
	return func(yield func(File, error) bool) {
		var pending []Block

		for block, err := range blocks {
			if err != nil {
				yield(File{}, err)
				return
			}

			if block.Status == Complete {
				a.complete++
			}

			var prev *Block
			if len(pending) > 0 {
				prev = &pending[len(pending)-1]
			}

			starts := prev != nil && a.rule.startsFile(*prev, block)
			if a.rule.Inspect != nil {
				a.rule.Inspect(prev, block, starts || prev == nil)
			}

			if starts {
				if !yield(NewFile(pending), nil) {
					return
				}
				pending = nil
			}
			pending = append(pending, block)
		}

		if len(pending) > 0 {
			yield(NewFile(pending), nil)
		}
	}
}
