package codec

import (
	"cmp"
	"math"
	"slices"
)

// Histogram counts half periods by frequency.
type Histogram struct {
	BinSize float64
	Counts  []int // Counts[i] covers [i*BinSize, (i+1)*BinSize)
	Total   int
}

// HalfPeriodHistogram reads hpp to the end and buckets every half period.
// Frequencies at or above maxFreq land in the last bucket.
func HalfPeriodHistogram(hpp HalfPeriodProvider, binSize, maxFreq float64) Histogram {
	h := Histogram{
		BinSize: binSize,
		Counts:  make([]int, int(math.Ceil(maxFreq/binSize))+1),
	}
	for {
		f, ok := hpp.Next()
		if !ok {
			return h
		}
		i := int(f / binSize)
		if i >= len(h.Counts) {
			i = len(h.Counts) - 1
		}
		h.Counts[i]++
		h.Total++
	}
}

// Modes returns the centre frequencies of up to n local maxima, most
// frequent first.
func (h Histogram) Modes(n int) []float64 {
	type mode struct {
		freq  float64
		count int
	}
	var modes []mode
	for i, c := range h.Counts {
		if c == 0 {
			continue
		}
		left := i == 0 || h.Counts[i-1] < c
		right := i == len(h.Counts)-1 || h.Counts[i+1] <= c
		if left && right {
			modes = append(modes, mode{freq: (float64(i) + 0.5) * h.BinSize, count: c})
		}
	}

	// ties keep the lower frequency first
	slices.SortStableFunc(modes, func(a, b mode) int {
		return cmp.Compare(b.count, a.count)
	})

	n = max(0, min(n, len(modes)))
	out := make([]float64, 0, n)
	for _, m := range modes[:n] {
		out = append(out, m.freq)
	}
	return out
}
