package formats

import (
	"encoding/binary"
	"fmt"
	"iter"

	"github.com/linuxmatters/tapedeck/internal/codec"
	"github.com/linuxmatters/tapedeck/internal/config"
	"github.com/linuxmatters/tapedeck/internal/logger"
)

// Robotron Z 1013. A one bit is a single half oscillation, a zero bit a
// full oscillation at twice the frequency. Blocks carry a 16-bit number,
// 32 data bytes and a 16-bit word sum.
//
// https://hc-ddr.hucki.net/wiki/doku.php/z1013/kassettenformate

const (
	z1013FreqOne  = 1280
	z1013FreqZero = 2560
	z1013FreqSync = 640

	z1013BlockDataSize          = 32
	z1013BlockSize              = 2 + z1013BlockDataSize + 2
	z1013FirstIntroOscillations = 2000
	z1013IntroOscillations      = 7
	z1013MinIntroHalfPeriods    = 5

	z1013Extension = "bin"
)

var (
	z1013SyncBand = codec.Band{Lo: 300, Hi: 900}
	z1013Bits     = codec.NewBitBands(codec.Band{Lo: 2200, Hi: 2800}, codec.Band{Lo: 1000, Hi: 1500})
)

var z1013Format = Format{
	Name:        "z1013",
	Description: "Robotron Z 1013 (raw data)",
	Extension:   z1013Extension,
	Encode:      encodeZ1013,
	Decode:      decodeZ1013,
}

type z1013Recorder struct {
	osc *codec.Oscillator
}

func (r z1013Recorder) RecordBit(bit bool) {
	if bit {
		r.osc.RecordHalfOscillation(z1013FreqOne)
	} else {
		r.osc.RecordOscillations(z1013FreqZero, 1)
	}
}

func (r z1013Recorder) RecordByte(b byte) {
	codec.RecordByteLSBFirst(r, b)
}

func (r z1013Recorder) recordBlock(number uint16, data []byte) {
	r.osc.Annotate(fmt.Sprintf("block %04x", number), func() {
		block := make([]byte, z1013BlockSize)
		binary.LittleEndian.PutUint16(block, number)
		copy(block[2:], data)
		binary.LittleEndian.PutUint16(block[z1013BlockSize-2:], codec.Checksum16LE(block[:z1013BlockSize-2]))

		r.osc.RecordOscillations(z1013FreqSync, z1013IntroOscillations)
		r.osc.RecordOscillations(z1013FreqOne, 1) // delimiter
		codec.RecordBytes(r, block)
	})
}

func encodeZ1013(osc *codec.Oscillator, data []byte, _ config.EncoderSettings) error {
	blocks := chunks(data, z1013BlockDataSize)
	if len(blocks) > 0x10000 {
		return fmt.Errorf("%w: %d blocks exceed the block numbering", ErrDataTooLarge, len(blocks))
	}

	r := z1013Recorder{osc: osc}
	osc.RecordSilence(osc.SampleRate())
	osc.RecordOscillations(z1013FreqSync, z1013FirstIntroOscillations)
	for i, block := range blocks {
		r.recordBlock(uint16(i), block)
	}

	// the last half period only ends with the next change of polarity
	osc.RecordOscillations(z1013FreqSync, z1013IntroOscillations)
	osc.End()
	return nil
}

type z1013Decoder struct {
	hpp  codec.HalfPeriodProvider
	sync *codec.SyncFinder
}

func newZ1013Decoder(hpp codec.HalfPeriodProvider) *z1013Decoder {
	return &z1013Decoder{
		hpp:  hpp,
		sync: codec.NewSyncFinder(hpp, z1013SyncBand, z1013MinIntroHalfPeriods),
	}
}

func (d *z1013Decoder) DecodeBlock() (codec.Block, error) {
	if !d.sync.FindSync() {
		return codec.Block{}, codec.ErrEndOfInput
	}

	if is, ok := codec.OscillationIs(d.hpp, z1013Bits.One); !ok || !is {
		logger.Logf(logger.Debug, "z1013", "%s no delimiter after sync", d.hpp.Position())
		return codec.Block{}, codec.ErrBlockStartNotFound
	}

	return codec.ReadFixedBlock(d.hpp, codec.FixedBlock{
		Size: z1013BlockSize,
		ReadByte: func() (byte, error) {
			return codec.ReadByte(d.readBit, codec.LSBFirst)
		},
		Verify: func(data []byte) bool {
			sum := binary.LittleEndian.Uint16(data[z1013BlockSize-2:])
			return codec.Checksum16LE(data[:z1013BlockSize-2]) == sum
		},
		Number: func(data []byte) int {
			if len(data) < 2 {
				return -1
			}
			return int(binary.LittleEndian.Uint16(data))
		},
	})
}

func (d *z1013Decoder) readBit() (bool, error) {
	f, ok := d.hpp.Next()
	if !ok {
		return false, codec.NewDecodingError(d.hpp, "end of input while reading bit")
	}
	bit, ok := z1013Bits.Classify(f)
	if !ok {
		return false, codec.NewDecodingError(d.hpp, "unable to detect bit, read %.0f Hz", f)
	}
	if bit {
		return true, nil
	}

	// a zero is a full oscillation
	f, ok = d.hpp.Next()
	if !ok || !z1013Bits.Zero.Is(f) {
		return false, codec.NewDecodingError(d.hpp, "second half of zero bit was %.0f Hz, expected %v", f, z1013Bits.Zero)
	}
	return false, nil
}

var z1013Boundary = codec.BoundaryRule{
	MaxGap: config.FileGapSeconds,
}

func decodeZ1013(hpp codec.HalfPeriodProvider, policy config.ErrorPolicy) iter.Seq2[OutputFile, error] {
	return decodeFiles("z1013", newZ1013Decoder(hpp), z1013Boundary, policy, z1013File)
}

// z1013File strips block numbers and checksums.
func z1013File(file codec.File) OutputFile {
	var data []byte
	for _, b := range file.Blocks {
		if len(b.Data) <= 2 {
			continue
		}
		end := min(len(b.Data), z1013BlockSize-2)
		data = append(data, b.Data[2:end]...)
	}
	return OutputFile{
		Extension: z1013Extension,
		Data:      data,
	}
}
