package codec

// BitOrder is the order in which the bits of a byte go on tape.
type BitOrder int

// List of valid BitOrder values.
const (
	LSBFirst BitOrder = iota
	MSBFirst
)

func (b BitOrder) String() string {
	if b == MSBFirst {
		return "MSB first"
	}
	return "LSB first"
}

// BitRecorder writes a single bit to tape.
type BitRecorder interface {
	RecordBit(bit bool)
}

// RecordByteLSBFirst writes the bits of b starting with bit 0.
func RecordByteLSBFirst(r BitRecorder, b byte) {
	for i := 0; i < 8; i++ {
		r.RecordBit(b&(1<<i) != 0)
	}
}

// RecordByteMSBFirst writes the bits of b starting with bit 7.
func RecordByteMSBFirst(r BitRecorder, b byte) {
	for i := 7; i >= 0; i-- {
		r.RecordBit(b&(1<<i) != 0)
	}
}

// RecordByte writes b in the given order.
func RecordByte(r BitRecorder, b byte, order BitOrder) {
	if order == MSBFirst {
		RecordByteMSBFirst(r, b)
		return
	}
	RecordByteLSBFirst(r, b)
}

// ByteRecorder writes whole bytes with whatever framing a format needs.
type ByteRecorder interface {
	RecordByte(b byte)
}

// RecordBytes writes every byte of data.
func RecordBytes(r ByteRecorder, data []byte) {
	for _, b := range data {
		r.RecordByte(b)
	}
}

// BitRecorderFunc adapts a function to BitRecorder.
type BitRecorderFunc func(bit bool)

// RecordBit calls f(bit)
func (f BitRecorderFunc) RecordBit(bit bool) {
	f(bit)
}
