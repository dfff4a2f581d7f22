// Package formats holds the tape formats of the supported machines. Each
// format is a parameter table plus the framing code that sits on top of the
// shared codec.
package formats

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/linuxmatters/tapedeck/internal/codec"
	"github.com/linuxmatters/tapedeck/internal/config"
	"github.com/linuxmatters/tapedeck/internal/logger"
)

var (
	// ErrUnknownFormat is returned by Lookup for names not in the registry.
	ErrUnknownFormat = errors.New("unknown format")

	// ErrDataTooLarge is returned when the input does not fit the format.
	ErrDataTooLarge = errors.New("data too large for format")

	// ErrInvalidOption is returned for encoder settings a format rejects.
	ErrInvalidOption = errors.New("invalid option")
)

// EncodeFunc writes data to tape through osc. It calls Begin and End on the
// oscillator itself since some formats need a different lead-in.
type EncodeFunc func(osc *codec.Oscillator, data []byte, settings config.EncoderSettings) error

// DecodeFunc reads all files from hpp, applying policy.
type DecodeFunc func(hpp codec.HalfPeriodProvider, policy config.ErrorPolicy) iter.Seq2[OutputFile, error]

// Format describes one machine's tape format.
type Format struct {
	Name        string
	Description string

	// Extension of decoded files
	Extension string

	// LowPass is the cut-off of the moving average stage that precedes
	// decoding, 0 for none
	LowPass float64

	Encode EncodeFunc
	Decode DecodeFunc
}

// OutputFile is a decoded file ready to be written.
type OutputFile struct {
	// Name is proposed by the format from the tape header, empty if the
	// format has no names
	Name      string
	Extension string
	Data      []byte

	Status codec.FileStatus
	Begin  codec.Position
	End    codec.Position
	Blocks []codec.Block
}

func (f OutputFile) String() string {
	name := f.Name
	if name == "" {
		name = "(unnamed)"
	}
	return fmt.Sprintf("%s.%s %d bytes, %d block(s), %s - %s, %s", name, f.Extension, len(f.Data), len(f.Blocks), f.Begin, f.End, f.Status)
}

var registry = []Format{
	kcFormat,
	z1013Format,
	lc80Format,
	apple2Format,
	electronFormat,
	pcFormat,
}

// All returns the registered formats in display order.
func All() []Format {
	return registry
}

// Names returns the names of all registered formats.
func Names() []string {
	names := make([]string, len(registry))
	for i, f := range registry {
		names[i] = f.Name
	}
	return names
}

// Lookup finds a format by name, ignoring case.
func Lookup(name string) (Format, error) {
	for _, f := range registry {
		if strings.EqualFold(f.Name, name) {
			return f, nil
		}
	}
	return Format{}, fmt.Errorf("%w %q (available: %s)", ErrUnknownFormat, name, strings.Join(Names(), ", "))
}

// decodeFiles runs the block loop of dec through the file assembler and the
// error policy and converts each file with convert.
func decodeFiles(
	tag string,
	dec codec.BlockDecoder,
	rule codec.BoundaryRule,
	policy config.ErrorPolicy,
	convert func(codec.File) OutputFile,
) iter.Seq2[OutputFile, error] {
	return func(yield func(OutputFile, error) bool) {
		asm := codec.NewFileAssembler(rule)
		defer func() {
			logger.Logf(logger.Debug, tag, "total complete blocks: %d", asm.CompleteBlocks())
		}()

		for file, err := range ApplyPolicy(asm.Files(codec.Blocks(dec)), policy) {
			if err != nil {
				yield(OutputFile{}, err)
				return
			}
			out := convert(file)
			out.Status = file.Status
			out.Begin = file.Begin
			out.End = file.End
			out.Blocks = file.Blocks
			logger.Logf(logger.Info, tag, "%s", out)
			if !yield(out, nil) {
				return
			}
		}
	}
}

// resolve returns v unless it is negative, in which case def.
func resolve(v, def int) int {
	if v < 0 {
		return def
	}
	return v
}

// chunks splits data into pieces of at most size bytes.
func chunks(data []byte, size int) [][]byte {
	var out [][]byte
	for len(data) > size {
		out = append(out, data[:size])
		data = data[size:]
	}
	if len(data) > 0 {
		out = append(out, data)
	}
	return out
}

// padded returns data extended with zeros to size.
func padded(data []byte, size int) []byte {
	if len(data) >= size {
		return data
	}
	out := make([]byte, size)
	copy(out, data)
	return out
}
