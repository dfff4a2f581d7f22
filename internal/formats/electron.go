package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"math"

	"github.com/linuxmatters/tapedeck/internal/codec"
	"github.com/linuxmatters/tapedeck/internal/config"
	"github.com/linuxmatters/tapedeck/internal/logger"
)

// Acorn Electron and BBC Micro. A one bit is two oscillations at the
// carrier, a zero one oscillation at half the carrier. The decoder follows
// the carrier it finds in the leader instead of a fixed band.
//
// https://beebwiki.mdfs.net/Acorn_cassette_format

const (
	electronFreqBase = 1200

	electronFirstPilotSeconds = 5.1
	electronPilotSeconds      = 0.9
	electronLastPilotSeconds  = 5.3
	electronShortPilotSeconds = 1.5

	electronSyncByte        = 0x2a
	electronMaxNameLength   = 10
	electronMaxBlockSize    = 256
	electronLastBlockFlag   = 0x80
	electronMinIntroPeriods = 200
	electronSyncDeviation   = 0.3
	electronMaxGapSeconds   = 3
	electronMaxRawBlockSize = 0xffff

	electronExtension = "bin"
)

var electronFraming = codec.Framing{
	Order:     codec.LSBFirst,
	StartBits: []bool{false},
	StopBits:  []bool{true},
}

var electronFormat = Format{
	Name:        "electron",
	Description: "Acorn Electron / BBC Micro (raw data)",
	Extension:   electronExtension,
	Encode:      encodeElectron,
	Decode:      decodeElectron,
}

type electronRecorder struct {
	osc *codec.Oscillator
}

func (r electronRecorder) RecordBit(bit bool) {
	if bit {
		r.osc.RecordOscillations(electronFreqBase*2, 2)
	} else {
		r.osc.RecordOscillations(electronFreqBase, 1)
	}
}

func (r electronRecorder) RecordByte(b byte) {
	codec.RecordFramedByte(r, b, electronFraming)
}

func (r electronRecorder) recordPilot(seconds float64) {
	r.osc.RecordSeconds(electronFreqBase*2, seconds)
}

// electronHeader is the header of a block.
type electronHeader struct {
	Name   string
	Load   uint32
	Exec   uint32
	Number uint16
	Length uint16
	Flag   byte
}

func (h electronHeader) last() bool {
	return h.Flag&electronLastBlockFlag != 0
}

func (h electronHeader) bytes() []byte {
	buf := make([]byte, len(h.Name)+18)
	copy(buf, h.Name)
	n := len(h.Name) + 1
	binary.LittleEndian.PutUint32(buf[n:], h.Load)
	binary.LittleEndian.PutUint32(buf[n+4:], h.Exec)
	binary.LittleEndian.PutUint16(buf[n+8:], h.Number)
	binary.LittleEndian.PutUint16(buf[n+10:], h.Length)
	buf[n+12] = h.Flag
	binary.LittleEndian.PutUint32(buf[n+13:], 0xffffffff)
	return buf
}

func encodeElectron(osc *codec.Oscillator, data []byte, settings config.EncoderSettings) error {
	name := settings.Name
	if len(name) > electronMaxNameLength || bytes.IndexByte([]byte(name), 0) >= 0 {
		return fmt.Errorf("%w: file name %q must have at most %d characters", ErrInvalidOption, name, electronMaxNameLength)
	}

	blocks := chunks(data, electronMaxBlockSize)
	if len(blocks) == 0 {
		blocks = [][]byte{nil}
	}
	if len(blocks) > 0x10000 {
		return fmt.Errorf("%w: %d blocks exceed the block numbering", ErrDataTooLarge, len(blocks))
	}

	load := uint32(resolve(settings.Load, 0)) | 0xffff0000
	exec := uint32(resolve(settings.Entry, 0)) | 0xffff0000

	r := electronRecorder{osc: osc}
	osc.Begin()
	for i, block := range blocks {
		header := electronHeader{
			Name:   name,
			Load:   load,
			Exec:   exec,
			Number: uint16(i),
			Length: uint16(len(block)),
		}
		if i == len(blocks)-1 {
			header.Flag = electronLastBlockFlag
		}

		switch {
		case i > 0:
			r.recordPilot(electronPilotSeconds)
		case settings.ShortPilot:
			r.recordPilot(electronShortPilotSeconds)
		default:
			r.recordPilot(electronFirstPilotSeconds)
		}

		osc.Annotate(fmt.Sprintf("block %d", i), func() {
			hdr := header.bytes()
			raw := []byte{electronSyncByte}
			raw = append(raw, hdr...)
			raw = binary.BigEndian.AppendUint16(raw, codec.CRC16XModem(hdr))
			if len(block) > 0 {
				raw = append(raw, block...)
				raw = binary.BigEndian.AppendUint16(raw, codec.CRC16XModem(block))
			}
			codec.RecordBytes(r, raw)
		})
	}

	if settings.ShortPilot {
		r.recordPilot(electronShortPilotSeconds)
	} else {
		r.recordPilot(electronLastPilotSeconds)
	}
	osc.End()
	return nil
}

// electronBlock is a parsed block.
type electronBlock struct {
	Header electronHeader
	Data   []byte
	Status codec.BlockStatus
}

// parseElectronBlock splits raw block bytes into header and data and
// checks both CRCs. Blocks too short for their header or data are Partial.
func parseElectronBlock(raw []byte) (electronBlock, bool) {
	if len(raw) < 2 || raw[0] != electronSyncByte {
		return electronBlock{Status: codec.Partial}, false
	}

	n := bytes.IndexByte(raw[1:min(len(raw), electronMaxNameLength+2)], 0)
	if n < 0 {
		return electronBlock{Status: codec.Partial}, false
	}

	// sync byte, name, terminator, 17 header bytes and the CRC
	dataOffset := n + 21
	if len(raw) < dataOffset {
		return electronBlock{Status: codec.Partial}, false
	}
	h := raw[n+2:]
	block := electronBlock{
		Header: electronHeader{
			Name:   string(raw[1 : n+1]),
			Load:   binary.LittleEndian.Uint32(h),
			Exec:   binary.LittleEndian.Uint32(h[4:]),
			Number: binary.LittleEndian.Uint16(h[8:]),
			Length: binary.LittleEndian.Uint16(h[10:]),
			Flag:   h[12],
		},
		Status: codec.Complete,
	}
	if codec.CRC16XModem(raw[1:n+19]) != binary.BigEndian.Uint16(raw[n+19:]) {
		block.Status = codec.InvalidChecksum
	}

	length := int(block.Header.Length)
	if length == 0 {
		return block, true
	}
	if len(raw) < dataOffset+length+2 {
		block.Data = raw[dataOffset:min(len(raw), dataOffset+length)]
		block.Status = codec.Partial
		return block, true
	}
	block.Data = raw[dataOffset : dataOffset+length]
	if codec.CRC16XModem(block.Data) != binary.BigEndian.Uint16(raw[dataOffset+length:]) {
		block.Status = codec.InvalidChecksum
	}
	return block, true
}

type electronDecoder struct {
	hpp  codec.HalfPeriodProvider
	sync *codec.DynamicSyncFinder
	bits codec.BitCoding
}

func newElectronDecoder(hpp codec.HalfPeriodProvider) *electronDecoder {
	d := &electronDecoder{
		hpp:  hpp,
		sync: codec.NewDynamicSyncFinder(hpp, electronMinIntroPeriods, codec.WithMaxDeviation(electronSyncDeviation)),
	}
	d.follow(electronFreqBase * 2)
	return d
}

// follow sets the bit bands relative to the carrier f.
func (d *electronDecoder) follow(f float64) {
	// the zero band ends right below the one band
	one := codec.Band{Lo: 0.75, Hi: 1.5}.Scale(f)
	zero := codec.Band{Lo: 0.25 * f, Hi: math.Nextafter(one.Lo, 0)}
	d.bits = codec.BitCoding{
		Bands:          codec.NewBitBands(zero, one),
		PerOscillation: true,
	}
}

// DecodeBlock reads bytes until the signal stops making sense, which
// happens at the pilot tone after each block.
func (d *electronDecoder) DecodeBlock() (codec.Block, error) {
	f, ok := d.sync.FindSync()
	if !ok {
		return codec.Block{}, codec.ErrEndOfInput
	}
	d.follow(f)
	begin := d.hpp.Position()
	logger.Logf(logger.Debug, "electron", "%s carrier %.0f Hz", begin, f)

	var raw []byte
	for len(raw) < electronMaxRawBlockSize {
		b, err := codec.ReadFramedByte(d.hpp, d.readBit, electronFraming)
		if err != nil {
			var decErr *codec.DecodingError
			if !errors.As(err, &decErr) {
				return codec.Block{}, err
			}
			if len(raw) == 0 {
				logger.Log(logger.Debug, "electron", decErr.Error())
				return codec.Block{}, codec.ErrBlockStartNotFound
			}
			break
		}
		raw = append(raw, b)
	}
	end := d.hpp.Position()

	block := codec.Block{Data: raw, Begin: begin, End: end, Number: -1}
	parsed, ok := parseElectronBlock(raw)
	block.Status = parsed.Status
	if ok {
		block.Number = int(parsed.Header.Number)
		logger.Logf(logger.Info, "electron", "%s file %q block %02x %s", begin, parsed.Header.Name, parsed.Header.Number, parsed.Status)
	}
	if block.Status != codec.Complete {
		logger.Logf(logger.Warn, "electron", "%s block %d %s", end, block.Number, block.Status)
	}
	return block, nil
}

// readBit reads one bit; a one needs a second oscillation at the carrier.
func (d *electronDecoder) readBit() (bool, error) {
	bit, err := d.bits.ReadBit(d.hpp)
	if err != nil || !bit {
		return bit, err
	}
	second, err := d.bits.ReadBit(d.hpp)
	if err != nil {
		return false, err
	}
	if !second {
		return false, codec.NewDecodingError(d.hpp, "second oscillation of one bit at %v", d.bits.Bands.Zero)
	}
	return true, nil
}

var electronBoundary = codec.BoundaryRule{
	SequenceReset: true,
	MaxGap:        electronMaxGapSeconds,
	StartsFile: func(prev, _ codec.Block) bool {
		parsed, ok := parseElectronBlock(prev.Data)
		return ok && parsed.Header.last()
	},
}

func decodeElectron(hpp codec.HalfPeriodProvider, policy config.ErrorPolicy) iter.Seq2[OutputFile, error] {
	return decodeFiles("electron", newElectronDecoder(hpp), electronBoundary, policy, electronFile)
}

// electronFile joins the data of all blocks and takes the name from the
// first block that has one.
func electronFile(file codec.File) OutputFile {
	out := OutputFile{Extension: electronExtension}
	for _, b := range file.Blocks {
		parsed, ok := parseElectronBlock(b.Data)
		if !ok {
			continue
		}
		if out.Name == "" {
			out.Name = SanitizeName(parsed.Header.Name)
		}
		out.Data = append(out.Data, parsed.Data...)
	}
	return out
}
