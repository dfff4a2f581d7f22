package formats

import (
	"errors"
	"iter"

	"github.com/linuxmatters/tapedeck/internal/codec"
	"github.com/linuxmatters/tapedeck/internal/config"
	"github.com/linuxmatters/tapedeck/internal/logger"
)

// Apple II. A record is a long 770 Hz leader, a sync bit made of a short
// and a slightly longer half oscillation, the data MSB first with one
// oscillation per bit and an xor checksum.
//
// http://www.applevault.com/hardware/apple/apple2/apple2cassette.html

const (
	apple2FreqSync       = 770
	apple2FreqSyncFirst  = 2500
	apple2FreqSyncSecond = 2000
	apple2FreqOne        = 1000
	apple2FreqZero       = 2000

	apple2SyncSeconds      = 10
	apple2ShortSyncSeconds = 5
	apple2TrailerSeconds   = 0.25

	apple2ChecksumInit        = 0xff
	apple2MaxRecordSize       = 1 << 16
	apple2MinIntroHalfPeriods = 200

	apple2Extension = "bin"
)

var (
	apple2SyncBand    = codec.Band{Lo: 680, Hi: 930}
	apple2SyncEndBand = codec.Band{Lo: 1700, Hi: 2800}
	apple2Bits        = codec.BitCoding{
		Bands:          codec.NewBitBands(codec.Band{Lo: 1500, Hi: 2950}, codec.Band{Lo: 850, Hi: 1200}),
		PerOscillation: true,
	}
)

var apple2Format = Format{
	Name:        "apple2",
	Description: "Apple II (raw data, one record per file)",
	Extension:   apple2Extension,
	Encode:      encodeApple2,
	Decode:      decodeApple2,
}

type apple2Recorder struct {
	osc *codec.Oscillator
}

func (r apple2Recorder) RecordBit(bit bool) {
	if bit {
		r.osc.RecordOscillations(apple2FreqOne, 1)
	} else {
		r.osc.RecordOscillations(apple2FreqZero, 1)
	}
}

func (r apple2Recorder) RecordByte(b byte) {
	codec.RecordByteMSBFirst(r, b)
}

func encodeApple2(osc *codec.Oscillator, data []byte, settings config.EncoderSettings) error {
	if len(data) >= apple2MaxRecordSize {
		return ErrDataTooLarge
	}

	sync := float64(apple2SyncSeconds)
	if settings.ShortPilot {
		sync = apple2ShortSyncSeconds
	}

	r := apple2Recorder{osc: osc}
	osc.Begin()
	osc.RecordSeconds(apple2FreqSync, sync)
	osc.RecordHalfOscillation(apple2FreqSyncFirst)
	osc.RecordHalfOscillation(apple2FreqSyncSecond)
	osc.Annotate("record", func() {
		codec.RecordBytes(r, data)
		r.RecordByte(codec.ChecksumXor8(apple2ChecksumInit, data))
	})

	// lets the reader see the end of the last bit
	osc.RecordSeconds(apple2FreqSync, apple2TrailerSeconds)
	osc.End()
	return nil
}

type apple2Decoder struct {
	hpp  codec.HalfPeriodProvider
	sync *codec.SyncFinder
}

func newApple2Decoder(hpp codec.HalfPeriodProvider) *apple2Decoder {
	return &apple2Decoder{
		hpp:  hpp,
		sync: codec.NewSyncFinder(hpp, apple2SyncBand, apple2MinIntroHalfPeriods),
	}
}

// DecodeBlock reads one record. The block data ends with the checksum.
func (d *apple2Decoder) DecodeBlock() (codec.Block, error) {
	for {
		if !d.sync.FindSync() {
			return codec.Block{}, codec.ErrEndOfInput
		}
		if d.readSyncEnd() {
			break
		}
	}
	begin := d.hpp.Position()

	var data []byte
	status := codec.Complete
	for len(data) <= apple2MaxRecordSize {
		b, ok, err := d.readByte()
		if err != nil {
			var decErr *codec.DecodingError
			if !errors.As(err, &decErr) {
				return codec.Block{}, err
			}
			logger.Log(logger.Warn, "apple2", decErr.Error())
			status = codec.Partial
			break
		}
		if !ok {
			break
		}
		data = append(data, b)
	}
	end := d.hpp.Position()

	if len(data) == 0 {
		logger.Logf(logger.Debug, "apple2", "%s no data after sync", end)
		return codec.Block{}, codec.ErrBlockStartNotFound
	}

	if status == codec.Complete {
		n := len(data) - 1
		if codec.ChecksumXor8(apple2ChecksumInit, data[:n]) != data[n] {
			status = codec.InvalidChecksum
			logger.Logf(logger.Warn, "apple2", "%s invalid checksum", end)
		}
	}

	return codec.Block{Data: data, Status: status, Begin: begin, End: end, Number: -1}, nil
}

func (d *apple2Decoder) readSyncEnd() bool {
	for range 2 {
		f, ok := d.hpp.Next()
		if !ok || !apple2SyncEndBand.Is(f) {
			return false
		}
	}
	return true
}

// readByte returns false when the first bit of a byte cannot be read,
// which marks the end of the record.
func (d *apple2Decoder) readByte() (byte, bool, error) {
	var b byte
	for i := range 8 {
		bit, err := apple2Bits.ReadBit(d.hpp)
		if err != nil {
			if i == 0 {
				return 0, false, nil
			}
			return 0, false, err
		}
		if bit {
			b |= 1 << (7 - i)
		}
	}
	return b, true, nil
}

func decodeApple2(hpp codec.HalfPeriodProvider, policy config.ErrorPolicy) iter.Seq2[OutputFile, error] {
	return decodeFiles("apple2", newApple2Decoder(hpp), codec.BoundaryRule{EveryBlock: true}, policy, apple2File)
}

// apple2File strips the checksum.
func apple2File(file codec.File) OutputFile {
	data := file.Blocks[0].Data
	if file.Blocks[0].Status != codec.Partial {
		data = data[:len(data)-1]
	}
	return OutputFile{
		Extension: apple2Extension,
		Data:      data,
	}
}
