package formats

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"iter"
	"strings"

	"github.com/linuxmatters/tapedeck/internal/codec"
	"github.com/linuxmatters/tapedeck/internal/config"
	"github.com/linuxmatters/tapedeck/internal/logger"
)

// Robotron KC 85/1 to KC 85/4, HC 900 and Z 9001. Every bit is one
// oscillation and every byte is followed by a delimiter oscillation. A file
// is a header block followed by data blocks of 128 bytes; the last block is
// numbered 0xff.
//
// https://hc-ddr.hucki.net/wiki/doku.php/z9001/kassettenformate

const (
	kcFreqZero      = 1950 // manual: 2400
	kcFreqOne       = 1050 // manual: 1200
	kcFreqDelimiter = 557  // manual: 600

	kcBlockDataSize          = 128
	kcBlockSize              = 1 + kcBlockDataSize + 1
	kcIntroOscillations      = 400
	kcBlockIntroOscillations = 200
	kcMinIntroHalfPeriods    = 200

	kcMaxNameLength     = 8
	kcDefaultType       = "COM"
	kcDefaultAddress    = 0x0300
	kcDefaultFirstBlock = 1
	kcLastBlock         = 0xff
	kcAddressEntries    = 0x03

	kcTapSignature = "\xc3KC-TAPE by AF. "
	kcExtension    = "tap"
)

var (
	kcIntroBand     = codec.Band{Lo: 770, Hi: 1300}
	kcDelimiterBand = codec.Band{Lo: 500, Hi: 670}
	kcBits          = codec.BitCoding{
		Bands:          codec.NewBitBands(codec.Band{Lo: 1400, Hi: 2800}, kcIntroBand),
		PerOscillation: true,
	}
)

var kcFormat = Format{
	Name:        "kc",
	Description: "Robotron KC 85 / HC 900 / Z 9001 (KC-TAP output)",
	Extension:   kcExtension,
	LowPass:     config.LowPassCutoff,
	Encode:      encodeKC,
	Decode:      decodeKC,
}

// kcRecorder writes KC bits and bytes.
type kcRecorder struct {
	osc *codec.Oscillator
}

func (r kcRecorder) RecordBit(bit bool) {
	if bit {
		r.osc.RecordOscillations(kcFreqOne, 1)
	} else {
		r.osc.RecordOscillations(kcFreqZero, 1)
	}
}

func (r kcRecorder) RecordByte(b byte) {
	codec.RecordByteLSBFirst(r, b)
	r.recordDelimiter()
}

func (r kcRecorder) recordDelimiter() {
	r.osc.RecordOscillations(kcFreqDelimiter, 1)
}

func (r kcRecorder) recordBlock(number byte, data []byte) {
	r.osc.Annotate(fmt.Sprintf("block %02x", number), func() {
		r.osc.RecordOscillations(kcFreqOne, kcBlockIntroOscillations)
		r.recordDelimiter()

		block := make([]byte, kcBlockSize)
		block[0] = number
		copy(block[1:], data)
		block[kcBlockSize-1] = codec.Checksum8(block[1 : kcBlockSize-1])
		codec.RecordBytes(r, block)
	})
}

// kcName splits NAME.TYP into its parts.
func kcName(name string) (string, string, error) {
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return "", "", fmt.Errorf("%w: file name %q contains too many dots", ErrInvalidOption, name)
	}
	if len(parts[0]) > kcMaxNameLength {
		return "", "", fmt.Errorf("%w: file name %q longer than %d characters", ErrInvalidOption, parts[0], kcMaxNameLength)
	}
	fileType := kcDefaultType
	if len(parts) == 2 {
		if len(parts[1]) != 3 {
			return "", "", fmt.Errorf("%w: file type %q must have 3 characters (COM, DUM, TXT, ASM)", ErrInvalidOption, parts[1])
		}
		fileType = parts[1]
	}
	return parts[0], fileType, nil
}

func encodeKC(osc *codec.Oscillator, data []byte, settings config.EncoderSettings) error {
	name, fileType, err := kcName(settings.Name)
	if err != nil {
		return err
	}

	load := resolve(settings.Load, kcDefaultAddress)
	entry := resolve(settings.Entry, kcDefaultAddress)
	first := resolve(settings.FirstBlock, kcDefaultFirstBlock)
	end := load + len(data) - 1
	if end > 0xffff {
		return fmt.Errorf("%w: %d bytes at %04x exceed the address space", ErrDataTooLarge, len(data), load)
	}

	blocks := chunks(data, kcBlockDataSize)
	if len(blocks) > 0 && first+len(blocks)-1 >= kcLastBlock {
		return fmt.Errorf("%w: %d blocks starting at %d exceed the block numbering", ErrDataTooLarge, len(blocks), first)
	}

	header := make([]byte, kcBlockDataSize)
	copy(header, name)
	copy(header[8:], fileType)
	header[16] = kcAddressEntries
	binary.LittleEndian.PutUint16(header[17:], uint16(load))
	binary.LittleEndian.PutUint16(header[19:], uint16(end))
	binary.LittleEndian.PutUint16(header[21:], uint16(entry))

	r := kcRecorder{osc: osc}
	osc.Begin()
	osc.RecordOscillations(kcFreqOne, kcIntroOscillations)
	r.recordBlock(byte(first), header)
	for i, block := range blocks {
		number := byte(first + 1 + i)
		if i == len(blocks)-1 {
			number = kcLastBlock
		}
		r.recordBlock(number, block)
	}
	osc.End()
	return nil
}

type kcDecoder struct {
	hpp  codec.HalfPeriodProvider
	sync *codec.SyncFinder
}

func newKCDecoder(hpp codec.HalfPeriodProvider) *kcDecoder {
	return &kcDecoder{
		hpp:  hpp,
		sync: codec.NewSyncFinder(hpp, kcIntroBand, kcMinIntroHalfPeriods),
	}
}

func (d *kcDecoder) DecodeBlock() (codec.Block, error) {
	if !d.sync.FindSync() {
		return codec.Block{}, codec.ErrEndOfInput
	}
	logger.Logf(logger.Debug, "kc", "%s reading block", d.hpp.Position())

	return codec.ReadFixedBlock(d.hpp, codec.FixedBlock{
		Size:     kcBlockSize,
		ReadByte: d.readByte,
		Verify: func(data []byte) bool {
			return codec.Checksum8(data[1:kcBlockSize-1]) == data[kcBlockSize-1]
		},
		Number: func(data []byte) int {
			return int(data[0])
		},
	})
}

func (d *kcDecoder) readByte() (byte, error) {
	f, ok := codec.NextOscillation(d.hpp)
	if !ok || !kcDelimiterBand.Is(f) {
		return 0, codec.NewDecodingError(d.hpp, "unable to find delimiter, read %.0f Hz, expected %v", f, kcDelimiterBand)
	}
	return codec.ReadByte(kcBits.Reader(d.hpp), codec.LSBFirst)
}

var kcBoundary = codec.BoundaryRule{
	SequenceReset: true,
	MaxGap:        config.FileGapSeconds,
	Inspect: func(prev *codec.Block, cur codec.Block, startsFile bool) {
		switch {
		case startsFile:
			if cur.Number != 0 && cur.Number != 1 {
				logger.Logf(logger.Info, "kc", "%s first block has number %02x", cur.Begin, cur.Number)
			}
		case cur.Number > prev.Number+1 && cur.Number != kcLastBlock:
			logger.Logf(logger.Info, "kc", "%s missing block: got %02x, expected %02x or ff", cur.Begin, cur.Number, prev.Number+1)
		}
	},
}

func decodeKC(hpp codec.HalfPeriodProvider, policy config.ErrorPolicy) iter.Seq2[OutputFile, error] {
	return decodeFiles("kc", newKCDecoder(hpp), kcBoundary, policy, kcTapFile)
}

// kcTapFile writes a file as KC-TAP: the signature followed by each block
// without its checksum.
func kcTapFile(file codec.File) OutputFile {
	var buf bytes.Buffer
	buf.WriteString(kcTapSignature)
	for _, b := range file.Blocks {
		data := b.Data
		if len(data) > kcBlockSize-1 {
			data = data[:kcBlockSize-1]
		}
		buf.Write(padded(data, kcBlockSize-1))
	}

	header := padded(file.Blocks[0].Data, kcBlockSize)
	if h, ok := parseKCHeader(header); ok {
		logger.Logf(logger.Debug, "kc", "%s header %s", file.Begin, h)
	}

	return OutputFile{
		Name:      kcProposedName(header),
		Extension: kcExtension,
		Data:      buf.Bytes(),
	}
}

// kcBasicSignatures mark the first block of a BASIC program
var kcBasicSignatures = [][]byte{
	[]byte("\x01\xd3\xd3\xd3"),
	[]byte("\x01\xd7\xd7\xd7"),
}

// kcProposedName takes the name from the first block, which starts with the
// block number. BASIC programs store three marker bytes before the name.
func kcProposedName(block []byte) string {
	for _, sig := range kcBasicSignatures {
		if bytes.HasPrefix(block, sig) {
			return SanitizeName(string(block[4:12]))
		}
	}
	return SanitizeName(string(block[1:9]))
}

// kcHeader is the content of a machine code header block.
type kcHeader struct {
	Name  string
	Type  string
	Load  uint16
	End   uint16
	Entry uint16
}

func (h kcHeader) String() string {
	return fmt.Sprintf("%s.%s load %04x end %04x entry %04x", h.Name, h.Type, h.Load, h.End, h.Entry)
}

// parseKCHeader reads a header block including its number byte. ok is
// false for blocks that do not carry addresses.
func parseKCHeader(block []byte) (kcHeader, bool) {
	if len(block) < 24 || block[17] < 2 {
		return kcHeader{}, false
	}
	return kcHeader{
		Name:  strings.TrimRight(string(block[1:9]), "\x00 "),
		Type:  strings.TrimRight(string(block[9:12]), "\x00 "),
		Load:  binary.LittleEndian.Uint16(block[18:]),
		End:   binary.LittleEndian.Uint16(block[20:]),
		Entry: binary.LittleEndian.Uint16(block[22:]),
	}, true
}
