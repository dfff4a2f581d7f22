package codec

import (
	"math"

	"github.com/linuxmatters/tapedeck/internal/config"
	"github.com/linuxmatters/tapedeck/internal/logger"
)

// SyncFinder looks for a run of half periods within a fixed band.
type SyncFinder struct {
	hpp            HalfPeriodProvider
	band           Band
	minHalfPeriods int
}

// NewSyncFinder creates a finder for runs of at least minHalfPeriods half
// periods within band.
func NewSyncFinder(hpp HalfPeriodProvider, band Band, minHalfPeriods int) *SyncFinder {
	return &SyncFinder{
		hpp:            hpp,
		band:           band,
		minHalfPeriods: minHalfPeriods,
	}
}

// FindSync scans for a qualifying run and leaves the provider at the first
// half period after it. A run must be ended by a half period outside the
// band; a run cut off by the end of input does not count. Returns false at
// end of input.
func (s *SyncFinder) FindSync() bool {
	logger.Logf(logger.Debug, "sync", "%s finding sync in %v", s.hpp.Position(), s.band)
	for {
		if !s.findStart() {
			return false
		}
		length, terminated := s.findEnd()
		if !terminated {
			return false
		}
		if length >= s.minHalfPeriods {
			return true
		}
	}
}

func (s *SyncFinder) findStart() bool {
	for {
		f, ok := s.hpp.Next()
		if !ok {
			return false
		}
		if s.band.Is(f) {
			return true
		}
	}
}

// findEnd returns the length of the run including the half period found by
// findStart, and whether it was ended by an out-of-band half period.
func (s *SyncFinder) findEnd() (int, bool) {
	length := 1
	for {
		f, ok := s.hpp.Next()
		if !ok {
			return length, false
		}
		if !s.band.Is(f) {
			s.hpp.RewindOne()
			return length, true
		}
		length++
	}
}

// DynamicSyncFinder looks for a run of half periods of any frequency that
// stays within a relative deviation of its own running average.
type DynamicSyncFinder struct {
	hpp                  HalfPeriodProvider
	minHalfPeriods       int
	maxRelativeDeviation float64
}

// DynamicSyncOption configures a DynamicSyncFinder.
type DynamicSyncOption func(*DynamicSyncFinder)

// WithMaxDeviation sets the relative deviation from the running average
// that still belongs to the run.
func WithMaxDeviation(d float64) DynamicSyncOption {
	return func(s *DynamicSyncFinder) { s.maxRelativeDeviation = d }
}

// NewDynamicSyncFinder creates a finder for runs of at least
// minHalfPeriods half periods. The deviation defaults to
// config.DefaultSyncDeviation.
func NewDynamicSyncFinder(hpp HalfPeriodProvider, minHalfPeriods int, opts ...DynamicSyncOption) *DynamicSyncFinder {
	s := &DynamicSyncFinder{
		hpp:                  hpp,
		minHalfPeriods:       minHalfPeriods,
		maxRelativeDeviation: config.DefaultSyncDeviation,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// measurement is the outcome of one attempt of the dynamic finder
type measurement int

const (
	measured measurement = iota
	restart
	endOfData
)

// FindSync returns the average frequency of the first qualifying run and
// leaves the provider at the first half period after it. Returns false at
// end of input.
func (s *DynamicSyncFinder) FindSync() (float64, bool) {
	logger.Logf(logger.Debug, "sync", "%s finding dynamic sync", s.hpp.Position())
	for {
		f, result := s.measure()
		switch result {
		case measured:
			s.hpp.RewindOne()
			logger.Logf(logger.Debug, "sync", "%s sync at %.1f Hz", s.hpp.Position(), f)
			return f, true
		case endOfData:
			return 0, false
		}
	}
}

func (s *DynamicSyncFinder) measure() (float64, measurement) {
	window := make([]float64, 0, s.minHalfPeriods+1)
	sum := 0.0

	for {
		f, ok := s.hpp.Next()
		if !ok {
			return 0, endOfData
		}

		if len(window) > 0 {
			average := sum / float64(len(window))
			if math.Abs(1-f/average) > s.maxRelativeDeviation {
				if len(window) >= s.minHalfPeriods {
					return average, measured
				}
				return 0, restart
			}
		}

		window = append(window, f)
		sum += f
		if len(window) > s.minHalfPeriods {
			sum -= window[0]
			window = window[1:]
		}
	}
}
