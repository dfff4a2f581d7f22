package formats

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/linuxmatters/tapedeck/internal/codec"
	"github.com/linuxmatters/tapedeck/internal/config"
	"github.com/linuxmatters/tapedeck/internal/logger"
)

// IBM PC 5150 cassette BIOS. A record is a leader of 0xff bytes, a zero
// sync bit and the sync byte 0x16, followed by any number of 256 byte
// blocks each with a CRC and finally four 0xff trailer bytes. Bytes go
// MSB first and every bit is one oscillation.
//
// http://fileformats.archiveteam.org/wiki/IBM_PC_data_cassette

const (
	pcFreqZero = 2000
	pcFreqOne  = 1000

	pcBlockDataSize       = 256
	pcBlockSize           = pcBlockDataSize + 2
	pcLeaderBytes         = 256
	pcShortLeaderBytes    = 64
	pcTrailerBytes        = 4
	pcSyncByte            = 0x16
	pcMinIntroHalfPeriods = 200
	pcGapMs               = 500

	pcBasicMarker     = 0xa5
	pcMaxNameLength   = 8
	pcHeaderSize      = 17
	pcFlagMemoryArea  = 0x01
	pcDefaultSegment  = 0x0060
	pcHeaderPadding   = 0x01
	pcDefaultLoadAddr = 0x0000
)

var (
	pcOneBand = codec.Band{Lo: 800, Hi: 1200}
	pcBits    = codec.BitCoding{
		Bands:          codec.NewBitBands(codec.Band{Lo: 1600, Hi: 2400}, pcOneBand),
		PerOscillation: true,
	}

	// errPCEndOfRecord is returned by the byte reader when the signal ends
	// within the trailer.
	errPCEndOfRecord = errors.New("end of record")
)

var pcFormat = Format{
	Name:        "pc",
	Description: "IBM PC 5150 cassette BIOS records (raw binary output)",
	Extension:   "bin",
	Encode:      encodePC,
	Decode:      decodePC,
}

type pcRecorder struct {
	osc *codec.Oscillator
}

func (r pcRecorder) RecordBit(bit bool) {
	if bit {
		r.osc.RecordOscillations(pcFreqOne, 1)
	} else {
		r.osc.RecordOscillations(pcFreqZero, 1)
	}
}

func (r pcRecorder) RecordByte(b byte) {
	codec.RecordByteMSBFirst(r, b)
}

// recordRecord writes one record holding blocks, which must be
// pcBlockDataSize bytes each.
func (r pcRecorder) recordRecord(label string, blocks [][]byte, leader int) {
	for range leader {
		r.RecordByte(0xff)
	}
	r.RecordBit(false)
	r.RecordByte(pcSyncByte)

	for i, block := range blocks {
		r.osc.Annotate(fmt.Sprintf("%s %d", label, i), func() {
			codec.RecordBytes(r, block)
			codec.RecordBytes(r, binary.BigEndian.AppendUint16(nil, codec.CRC16CCITT(block)))
		})
	}

	for range pcTrailerBytes {
		r.RecordByte(0xff)
	}
}

// pcBasicHeader builds the header block BSAVE writes before a memory area.
func pcBasicHeader(name string, length, segment, offset int) []byte {
	header := make([]byte, pcBlockDataSize)
	for i := range header {
		header[i] = pcHeaderPadding
	}
	header[0] = pcBasicMarker
	copy(header[1:9], fmt.Sprintf("%-8s", name))
	header[9] = pcFlagMemoryArea
	binary.LittleEndian.PutUint16(header[10:], uint16(length))
	binary.LittleEndian.PutUint16(header[12:], uint16(segment))
	binary.LittleEndian.PutUint16(header[14:], uint16(offset))
	header[16] = 0x00
	return header
}

// encodePC writes data as one record. A name adds a BASIC header record
// in front so that BLOAD finds the file.
func encodePC(osc *codec.Oscillator, data []byte, settings config.EncoderSettings) error {
	if len(settings.Name) > pcMaxNameLength {
		return fmt.Errorf("%w: file name %q longer than %d characters", ErrInvalidOption, settings.Name, pcMaxNameLength)
	}
	if settings.Name != "" && len(data) > 0xffff {
		return fmt.Errorf("%w: %d bytes do not fit the length field of the header", ErrDataTooLarge, len(data))
	}

	leader := pcLeaderBytes
	if settings.ShortPilot {
		leader = pcShortLeaderBytes
	}

	blocks := make([][]byte, 0, len(data)/pcBlockDataSize+1)
	for _, chunk := range chunks(data, pcBlockDataSize) {
		blocks = append(blocks, padded(chunk, pcBlockDataSize))
	}
	if len(blocks) == 0 {
		blocks = append(blocks, make([]byte, pcBlockDataSize))
	}

	r := pcRecorder{osc: osc}
	osc.Begin()
	if settings.Name != "" {
		header := pcBasicHeader(settings.Name, len(data), pcDefaultSegment, resolve(settings.Load, pcDefaultLoadAddr))
		r.recordRecord("header", [][]byte{header}, leader)
		osc.RecordSilenceMs(pcGapMs)
	}
	r.recordRecord("block", blocks, leader)
	osc.End()
	return nil
}

type pcDecoder struct {
	hpp  codec.HalfPeriodProvider
	sync *codec.SyncFinder

	inRecord bool
	number   int

	// bytes read of the current block and whether all were 0xff
	read    int
	allOnes bool
}

func newPCDecoder(hpp codec.HalfPeriodProvider) *pcDecoder {
	return &pcDecoder{
		hpp:  hpp,
		sync: codec.NewSyncFinder(hpp, pcOneBand, pcMinIntroHalfPeriods),
	}
}

// DecodeBlock reads the next block of the current record or, between
// records, looks for the next leader. Blocks are numbered from 0 within a
// record so that each record becomes a file.
func (d *pcDecoder) DecodeBlock() (codec.Block, error) {
	if !d.inRecord {
		if err := d.findRecord(); err != nil {
			return codec.Block{}, err
		}
		d.inRecord = true
		d.number = 0
	}

	d.read, d.allOnes = 0, true
	block, err := codec.ReadFixedBlock(d.hpp, codec.FixedBlock{
		Size:     pcBlockSize,
		ReadByte: d.readByte,
		Verify: func(data []byte) bool {
			return codec.CRC16CCITT(data[:pcBlockDataSize]) == binary.BigEndian.Uint16(data[pcBlockDataSize:])
		},
	})
	if err != nil {
		d.inRecord = false
		if errors.Is(err, errPCEndOfRecord) {
			logger.Logf(logger.Debug, "pc", "%s end of record after %d block(s)", d.hpp.Position(), d.number)
			return codec.Block{}, codec.ErrBlockStartNotFound
		}
		return codec.Block{}, err
	}
	if block.Status == codec.Partial {
		d.inRecord = false
	}

	block.Number = d.number
	d.number++
	return block, nil
}

// findRecord skips to the first block after a leader and sync byte.
func (d *pcDecoder) findRecord() error {
	if !d.sync.FindSync() {
		return codec.ErrEndOfInput
	}
	bit, err := pcBits.ReadBit(d.hpp)
	if err != nil || bit {
		logger.Logf(logger.Debug, "pc", "%s no sync bit after leader", d.hpp.Position())
		return codec.ErrBlockStartNotFound
	}
	b, err := codec.ReadByte(pcBits.Reader(d.hpp), codec.MSBFirst)
	if err != nil || b != pcSyncByte {
		logger.Logf(logger.Debug, "pc", "%s sync byte %02x instead of %02x", d.hpp.Position(), b, pcSyncByte)
		return codec.ErrBlockStartNotFound
	}
	logger.Logf(logger.Debug, "pc", "%s record start", d.hpp.Position())
	return nil
}

// readByte reads one byte of a block. A signal that stops within the
// first pcTrailerBytes bytes, all of them 0xff, is the record trailer.
func (d *pcDecoder) readByte() (byte, error) {
	b, err := codec.ReadByte(pcBits.Reader(d.hpp), codec.MSBFirst)
	if err != nil {
		if d.allOnes && d.read <= pcTrailerBytes {
			return 0, errPCEndOfRecord
		}
		return 0, err
	}
	d.read++
	d.allOnes = d.allOnes && b == 0xff
	return b, nil
}

var pcBoundary = codec.BoundaryRule{
	SequenceReset: true,
	Inspect: func(_ *codec.Block, cur codec.Block, startsFile bool) {
		if !startsFile {
			return
		}
		if h, ok := parsePCHeader(cur.Data); ok {
			logger.Logf(logger.Info, "pc", "%s BASIC header %s", cur.Begin, h)
		}
	},
}

func decodePC(hpp codec.HalfPeriodProvider, policy config.ErrorPolicy) iter.Seq2[OutputFile, error] {
	return decodeFiles("pc", newPCDecoder(hpp), pcBoundary, policy, pcBinFile)
}

// pcBinFile concatenates the data of all blocks of a record.
func pcBinFile(file codec.File) OutputFile {
	var data []byte
	for _, b := range file.Blocks {
		data = append(data, b.Data[:min(len(b.Data), pcBlockDataSize)]...)
	}
	return OutputFile{Extension: "bin", Data: data}
}

// pcHeader is the header record written by BASIC SAVE and BSAVE.
type pcHeader struct {
	Name    string
	Flags   byte
	Length  uint16
	Segment uint16
	Offset  uint16
}

var pcFlagNames = [8]string{
	"Memory area",
	"?",
	"?",
	"?",
	"?",
	"Protected",
	"ASCII listing",
	"Tokenized BASIC",
}

func (h pcHeader) String() string {
	var flags []string
	for bit, name := range pcFlagNames {
		if h.Flags&(1<<bit) != 0 {
			flags = append(flags, name)
		}
	}
	return fmt.Sprintf("%s flags %02x (%s) length %d load %04x:%04x",
		h.Name, h.Flags, strings.Join(flags, ", "), h.Length, h.Segment, h.Offset)
}

func parsePCHeader(block []byte) (pcHeader, bool) {
	if len(block) < pcHeaderSize || block[0] != pcBasicMarker {
		return pcHeader{}, false
	}
	return pcHeader{
		Name:    strings.TrimRight(string(block[1:9]), " "),
		Flags:   block[9],
		Length:  binary.LittleEndian.Uint16(block[10:]),
		Segment: binary.LittleEndian.Uint16(block[12:]),
		Offset:  binary.LittleEndian.Uint16(block[14:]),
	}, true
}
