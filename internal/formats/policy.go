package formats

import (
	"errors"
	"fmt"
	"iter"

	"github.com/linuxmatters/tapedeck/internal/codec"
	"github.com/linuxmatters/tapedeck/internal/config"
	"github.com/linuxmatters/tapedeck/internal/logger"
)

// ErrStopped is returned under the stop policy at the first defective block.
var ErrStopped = errors.New("stopped at defective block")

// ApplyPolicy filters files according to policy. Under PolicyStop the
// first file with a defective block ends the sequence with ErrStopped;
// under PolicySkipFile such files are dropped; PolicyIgnore passes
// everything on.
func ApplyPolicy(files iter.Seq2[codec.File, error], policy config.ErrorPolicy) iter.Seq2[codec.File, error] {
	return func(yield func(codec.File, error) bool) {
		for file, err := range files {
			if err != nil {
				yield(codec.File{}, err)
				return
			}

			if file.Status == codec.Error {
				switch policy {
				case config.PolicyStop:
					yield(codec.File{}, stopError(file))
					return
				case config.PolicySkipFile:
					logger.Logf(logger.Warn, "policy", "%s skipping file with defective blocks", file.Begin)
					continue
				}
			}

			if !yield(file, nil) {
				return
			}
		}
	}
}

func stopError(file codec.File) error {
	for _, b := range file.Blocks {
		if b.Status != codec.Complete {
			return fmt.Errorf("%w: %s block %s", ErrStopped, b.Begin, b.Status)
		}
	}
	return fmt.Errorf("%w: %s", ErrStopped, file.Begin)
}
