package formats

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"strconv"

	"github.com/linuxmatters/tapedeck/internal/codec"
	"github.com/linuxmatters/tapedeck/internal/config"
	"github.com/linuxmatters/tapedeck/internal/logger"
)

// LC 80. Bits are pulse trains: a zero is 12 short and 3 long
// oscillations, a one 6 short and 6 long. Bytes have a start and a stop
// bit. A file is a 6-byte header, a checksum byte, a mid sync and the data.
//
// Bedienungsanleitung LC 80, p. 24-25

const (
	lc80FreqShort = 2000
	lc80FreqLong  = 1000

	lc80IntroSeconds      = 4
	lc80ShortIntroSeconds = 1
	lc80SyncSeconds       = 2

	lc80HeaderSize            = 7 // file number, start, end and checksum
	lc80MinIntroHalfPeriods   = 200
	lc80MinMidSyncHalfPeriods = 10

	lc80Extension = "bin"
)

var (
	lc80ShortBand = codec.Band{Lo: 1300, Hi: 2300}
	lc80LongBand  = codec.Band{Lo: 600, Hi: 1300}
	lc80Framing   = codec.Framing{
		Order:     codec.LSBFirst,
		StartBits: []bool{false},
		StopBits:  []bool{true},
	}
)

var lc80Format = Format{
	Name:        "lc80",
	Description: "LC 80 (raw data, load address required)",
	Extension:   lc80Extension,
	Encode:      encodeLC80,
	Decode:      decodeLC80,
}

type lc80Recorder struct {
	osc *codec.Oscillator
}

func (r lc80Recorder) RecordBit(bit bool) {
	if bit {
		r.osc.RecordOscillations(lc80FreqShort, 6)
		r.osc.RecordOscillations(lc80FreqLong, 6)
	} else {
		r.osc.RecordOscillations(lc80FreqShort, 12)
		r.osc.RecordOscillations(lc80FreqLong, 3)
	}
}

func (r lc80Recorder) RecordByte(b byte) {
	codec.RecordFramedByte(r, b, lc80Framing)
}

// lc80FileNumber reads the file number from a hex name such as 00FF.
func lc80FileNumber(settings config.EncoderSettings) (int, error) {
	if settings.Name == "" {
		return settings.FileNumber, nil
	}
	n, err := strconv.ParseUint(settings.Name, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: file name %q must be a 16-bit hex number such as 0001", ErrInvalidOption, settings.Name)
	}
	return int(n), nil
}

func encodeLC80(osc *codec.Oscillator, data []byte, settings config.EncoderSettings) error {
	fileNumber, err := lc80FileNumber(settings)
	if err != nil {
		return err
	}
	if settings.Load < 0 {
		return fmt.Errorf("%w: a load address is required", ErrInvalidOption)
	}
	end := settings.Load + len(data)
	if end > 0xffff {
		return fmt.Errorf("%w: %d bytes at %04x exceed the address space", ErrDataTooLarge, len(data), settings.Load)
	}
	logger.Logf(logger.Debug, "lc80", "header: file %04x, start %04x, end %04x", fileNumber, settings.Load, end)

	header := make([]byte, lc80HeaderSize)
	binary.LittleEndian.PutUint16(header[0:], uint16(fileNumber))
	binary.LittleEndian.PutUint16(header[2:], uint16(settings.Load))
	binary.LittleEndian.PutUint16(header[4:], uint16(end))
	header[6] = codec.Checksum8(data)

	intro := float64(lc80IntroSeconds)
	if settings.ShortPilot {
		intro = lc80ShortIntroSeconds
	}

	r := lc80Recorder{osc: osc}
	osc.Begin()
	osc.RecordSeconds(lc80FreqLong, intro)
	osc.Annotate("header", func() {
		codec.RecordBytes(r, header)
	})
	osc.RecordSeconds(lc80FreqShort, lc80SyncSeconds)

	// real machines leave one long half period after the mid sync
	osc.RecordHalfOscillation(lc80FreqLong)

	osc.Annotate("data", func() {
		codec.RecordBytes(r, data)
	})
	osc.RecordSeconds(lc80FreqShort, lc80SyncSeconds)
	osc.End()
	return nil
}

type lc80Decoder struct {
	hpp       codec.HalfPeriodProvider
	introSync *codec.SyncFinder
	midSync   *codec.SyncFinder
}

func newLC80Decoder(hpp codec.HalfPeriodProvider) *lc80Decoder {
	return &lc80Decoder{
		hpp:       hpp,
		introSync: codec.NewSyncFinder(hpp, lc80LongBand, lc80MinIntroHalfPeriods),
		midSync:   codec.NewSyncFinder(hpp, lc80ShortBand, lc80MinMidSyncHalfPeriods),
	}
}

// DecodeBlock reads a whole file. The block data is the header followed by
// the file data.
func (d *lc80Decoder) DecodeBlock() (codec.Block, error) {
	if !d.introSync.FindSync() {
		return codec.Block{}, codec.ErrEndOfInput
	}
	begin := d.hpp.Position()

	data := make([]byte, 0, lc80HeaderSize)
	for range lc80HeaderSize {
		b, err := d.readByte()
		if err != nil {
			return codec.Block{}, d.startNotFound(err)
		}
		data = append(data, b)
	}

	start := int(binary.LittleEndian.Uint16(data[2:]))
	end := int(binary.LittleEndian.Uint16(data[4:]))
	if end < start {
		logger.Logf(logger.Warn, "lc80", "%s end address %04x before start address %04x", d.hpp.Position(), end, start)
		return codec.Block{}, codec.ErrBlockStartNotFound
	}
	logger.Logf(logger.Debug, "lc80", "%s header: file %04x, start %04x, end %04x", d.hpp.Position(), binary.LittleEndian.Uint16(data), start, end)

	partial := func() codec.Block {
		return codec.Block{Data: data, Status: codec.Partial, Begin: begin, End: d.hpp.Position(), Number: -1}
	}

	if !d.midSync.FindSync() {
		logger.Logf(logger.Warn, "lc80", "%s mid sync not found", d.hpp.Position())
		return partial(), nil
	}
	d.hpp.Next()

	for range end - start {
		b, err := d.readByte()
		if err != nil {
			var decErr *codec.DecodingError
			if !errors.As(err, &decErr) {
				return codec.Block{}, err
			}
			logger.Log(logger.Warn, "lc80", decErr.Error())
			return partial(), nil
		}
		data = append(data, b)
	}

	status := codec.Complete
	if codec.Checksum8(data[lc80HeaderSize:]) != data[lc80HeaderSize-1] {
		status = codec.InvalidChecksum
		logger.Logf(logger.Warn, "lc80", "%s invalid checksum", d.hpp.Position())
	}
	return codec.Block{Data: data, Status: status, Begin: begin, End: d.hpp.Position(), Number: -1}, nil
}

func (d *lc80Decoder) startNotFound(err error) error {
	var decErr *codec.DecodingError
	if !errors.As(err, &decErr) {
		return err
	}
	logger.Log(logger.Debug, "lc80", decErr.Error())
	return codec.ErrBlockStartNotFound
}

func (d *lc80Decoder) readByte() (byte, error) {
	return codec.ReadFramedByte(d.hpp, d.readBit, lc80Framing)
}

// readBit skips the short oscillations and tells the bit apart by the
// number of long oscillations after them.
func (d *lc80Decoder) readBit() (bool, error) {
	for {
		f, ok := d.hpp.Next()
		if !ok {
			return false, codec.NewDecodingError(d.hpp, "end of input while reading bit")
		}
		if !lc80ShortBand.Is(f) {
			d.hpp.RewindOne()
			break
		}
	}

	if err := d.readLong(3); err != nil {
		return false, err
	}

	f, ok := codec.NextOscillation(d.hpp)
	switch {
	case !ok:
		return false, codec.NewDecodingError(d.hpp, "end of input while reading bit")
	case lc80LongBand.Is(f):
		return true, d.readLong(2)
	case lc80ShortBand.Is(f):
		// first oscillation of the next bit
		return false, nil
	}
	return false, codec.NewDecodingError(d.hpp, "unable to detect bit, read %.0f Hz", f)
}

func (d *lc80Decoder) readLong(n int) error {
	for range n {
		f, ok := codec.NextOscillation(d.hpp)
		if !ok || !lc80LongBand.Is(f) {
			return codec.NewDecodingError(d.hpp, "expected long oscillation, read %.0f Hz", f)
		}
	}
	return nil
}

func decodeLC80(hpp codec.HalfPeriodProvider, policy config.ErrorPolicy) iter.Seq2[OutputFile, error] {
	return decodeFiles("lc80", newLC80Decoder(hpp), codec.BoundaryRule{EveryBlock: true}, policy, lc80File)
}

// lc80File names the file after its header as NNNN_SSSS_EEEE.
func lc80File(file codec.File) OutputFile {
	block := file.Blocks[0].Data
	return OutputFile{
		Name: fmt.Sprintf("%04X_%04X_%04X",
			binary.LittleEndian.Uint16(block[0:]),
			binary.LittleEndian.Uint16(block[2:]),
			binary.LittleEndian.Uint16(block[4:])),
		Extension: lc80Extension,
		Data:      block[lc80HeaderSize:],
	}
}
