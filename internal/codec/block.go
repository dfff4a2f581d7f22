package codec

import (
	"errors"
	"fmt"
	"iter"

	"github.com/linuxmatters/tapedeck/internal/logger"
)

var (
	// ErrEndOfInput ends a block sequence.
	ErrEndOfInput = errors.New("end of input")

	// ErrBlockStartNotFound means a sync was found but no block followed.
	// The block loop carries on scanning.
	ErrBlockStartNotFound = errors.New("block start not found")
)

// DecodingError describes a signal that could not be demodulated.
type DecodingError struct {
	Position Position
	Reason   string
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("%s %s", e.Position, e.Reason)
}

// NewDecodingError creates a DecodingError at the provider's position.
func NewDecodingError(hpp HalfPeriodProvider, format string, args ...any) *DecodingError {
	return &DecodingError{
		Position: hpp.Position(),
		Reason:   fmt.Sprintf(format, args...),
	}
}

// BlockStatus is the outcome of reading one block.
type BlockStatus int

// List of valid BlockStatus values.
const (
	Complete BlockStatus = iota
	InvalidChecksum
	Partial
)

func (s BlockStatus) String() string {
	switch s {
	case Complete:
		return "complete"
	case InvalidChecksum:
		return "invalid checksum"
	case Partial:
		return "partial"
	}
	return "unknown"
}

// Block is one block read from tape. Data holds the bytes as read,
// including any block number and checksum fields the format defines.
type Block struct {
	Data   []byte
	Status BlockStatus
	Begin  Position
	End    Position

	// Number is the sequence number used for file boundaries, -1 if the
	// format has none
	Number int
}

// BlockDecoder reads one block at a time. It returns ErrEndOfInput when
// there is nothing more to read and ErrBlockStartNotFound when a sync led
// nowhere. Any other error aborts decoding.
type BlockDecoder interface {
	DecodeBlock() (Block, error)
}

// BlockDecoderFunc adapts a function to BlockDecoder.
type BlockDecoderFunc func() (Block, error)

// DecodeBlock calls f()
func (f BlockDecoderFunc) DecodeBlock() (Block, error) {
	return f()
}

// Blocks drives dec until the end of input. Blocks whose start is not found
// are skipped.
func Blocks(dec BlockDecoder) iter.Seq2[Block, error] {
	return func(yield func(Block, error) bool) {
		for {
			block, err := dec.DecodeBlock()
			switch {
			case err == nil:
				if !yield(block, nil) {
					return
				}
			case errors.Is(err, ErrBlockStartNotFound):
				continue
			case errors.Is(err, ErrEndOfInput):
				return
			default:
				yield(Block{}, err)
				return
			}
		}
	}
}

// BitReader reads one bit.
type BitReader func() (bool, error)

// ReadByte assembles eight bits in the given order.
func ReadByte(readBit BitReader, order BitOrder) (byte, error) {
	var b byte
	for i := 0; i < 8; i++ {
		bit, err := readBit()
		if err != nil {
			return 0, err
		}
		if !bit {
			continue
		}
		if order == MSBFirst {
			b |= 1 << (7 - i)
		} else {
			b |= 1 << i
		}
	}
	return b, nil
}

// Framing describes the start and stop bits around a byte.
type Framing struct {
	Order     BitOrder
	StartBits []bool
	StopBits  []bool
}

// ReadFramedByte reads a byte with start and stop bits. A wrong start or
// stop bit is a DecodingError.
func ReadFramedByte(hpp HalfPeriodProvider, readBit BitReader, framing Framing) (byte, error) {
	for _, want := range framing.StartBits {
		bit, err := readBit()
		if err != nil {
			return 0, err
		}
		if bit != want {
			return 0, NewDecodingError(hpp, "expected start bit %d", boolToBit(want))
		}
	}

	b, err := ReadByte(readBit, framing.Order)
	if err != nil {
		return 0, err
	}

	for _, want := range framing.StopBits {
		bit, err := readBit()
		if err != nil {
			return 0, err
		}
		if bit != want {
			return 0, NewDecodingError(hpp, "expected stop bit %d", boolToBit(want))
		}
	}
	return b, nil
}

// RecordFramedByte writes a byte with start and stop bits.
func RecordFramedByte(r BitRecorder, b byte, framing Framing) {
	for _, bit := range framing.StartBits {
		r.RecordBit(bit)
	}
	RecordByte(r, b, framing.Order)
	for _, bit := range framing.StopBits {
		r.RecordBit(bit)
	}
}

func boolToBit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// BitCoding reads FSK bits with one classification per bit: either a single
// half period or a full oscillation averaged from two.
type BitCoding struct {
	Bands          BitBands
	PerOscillation bool
}

// ReadBit reads and classifies one bit from hpp.
func (c BitCoding) ReadBit(hpp HalfPeriodProvider) (bool, error) {
	var f float64
	var ok bool
	if c.PerOscillation {
		f, ok = NextOscillation(hpp)
	} else {
		f, ok = hpp.Next()
	}
	if !ok {
		return false, NewDecodingError(hpp, "end of input while reading bit")
	}

	bit, ok := c.Bands.Classify(f)
	if !ok {
		return false, NewDecodingError(hpp, "unable to detect bit, read %.0f Hz, expected %v or %v", f, c.Bands.One, c.Bands.Zero)
	}
	return bit, nil
}

// Reader returns a BitReader bound to hpp.
func (c BitCoding) Reader(hpp HalfPeriodProvider) BitReader {
	return func() (bool, error) {
		return c.ReadBit(hpp)
	}
}

// FixedBlock describes a block of known size.
type FixedBlock struct {
	Size int

	// ReadByte reads one byte including any per-byte framing
	ReadByte func() (byte, error)

	// Verify checks the checksum of a completely read block
	Verify func(data []byte) bool

	// Number extracts the sequence number of a block, nil if there is none
	Number func(data []byte) int
}

// ReadFixedBlock reads a block of fb.Size bytes starting at the current
// position. A failure on the first byte means there was no block after all
// and returns ErrBlockStartNotFound; a failure later returns a Partial
// block with the bytes read so far.
func ReadFixedBlock(hpp HalfPeriodProvider, fb FixedBlock) (Block, error) {
	begin := hpp.Position()
	data := make([]byte, 0, fb.Size)
	number := func() int {
		if fb.Number == nil || len(data) == 0 {
			return -1
		}
		return fb.Number(data)
	}

	for i := 0; i < fb.Size; i++ {
		b, err := fb.ReadByte()
		if err != nil {
			var decErr *DecodingError
			if !errors.As(err, &decErr) {
				return Block{}, err
			}
			if i == 0 {
				logger.Log(logger.Debug, "block", decErr.Error())
				return Block{}, ErrBlockStartNotFound
			}
			logger.Log(logger.Warn, "block", decErr.Error())
			return Block{
				Data:   data,
				Status: Partial,
				Begin:  begin,
				End:    hpp.Position(),
				Number: number(),
			}, nil
		}
		data = append(data, b)
	}

	end := hpp.Position()
	status := Complete
	if fb.Verify != nil && !fb.Verify(data) {
		status = InvalidChecksum
		logger.Logf(logger.Warn, "block", "%s invalid checksum for block %d", end, number())
	}

	return Block{
		Data:   data,
		Status: status,
		Begin:  begin,
		End:    end,
		Number: number(),
	}, nil
}
