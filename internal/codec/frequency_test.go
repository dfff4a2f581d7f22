package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestBand verifies that bands are inclusive at both ends.
func TestBand(t *testing.T) {
	b := Band{770, 1300}
	assert.True(t, b.Is(770))
	assert.True(t, b.Is(1300))
	assert.False(t, b.Is(769.9))
	assert.False(t, b.Is(1300.1))

	assert.True(t, b.Overlaps(Band{1300, 2000}))
	assert.False(t, b.Overlaps(Band{1400, 2800}))
	assert.Equal(t, Band{385, 650}, b.Scale(0.5))
	assert.Equal(t, "770 Hz - 1300 Hz", b.String())
}

// A lone half period at the end of input is not an oscillation.
func TestOscillationIs(t *testing.T) {
	hpp := newDummyProvider(1000, 1200, 3000)

	is, ok := OscillationIs(hpp, Band{1000, 1200})
	assert.True(t, ok)
	assert.True(t, is)

	// only one half period left
	_, ok = OscillationIs(hpp, Band{1000, 1200})
	assert.False(t, ok)
}

// TestBitBands verifies classification between and outside the bands and
// that overlapping or inverted tables are refused.
func TestBitBands(t *testing.T) {
	bands := NewBitBands(Band{1400, 2800}, Band{770, 1300})

	tests := []struct {
		f   float64
		bit bool
		ok  bool
	}{
		{1050, true, true},
		{1950, false, true},
		{1350, false, false},
		{557, false, false},
	}
	for _, tt := range tests {
		bit, ok := bands.Classify(tt.f)
		assert.Equal(t, tt.ok, ok, "%v Hz", tt.f)
		assert.Equal(t, tt.bit, bit, "%v Hz", tt.f)
	}

	assert.Panics(t, func() { NewBitBands(Band{1000, 2000}, Band{1500, 3000}) })
	assert.Panics(t, func() { NewBitBands(Band{2000, 1000}, Band{3000, 4000}) })
}
