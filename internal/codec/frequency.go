package codec

import "fmt"

// Band is an inclusive frequency range in Hz.
type Band struct {
	Lo, Hi float64
}

// Is reports whether f lies within the band.
func (b Band) Is(f float64) bool {
	return f >= b.Lo && f <= b.Hi
}

// Overlaps reports whether two bands share any frequency.
func (b Band) Overlaps(other Band) bool {
	return b.Lo <= other.Hi && other.Lo <= b.Hi
}

// Scale returns the band multiplied by factor. Used for bands relative to a
// carrier discovered at run time.
func (b Band) Scale(factor float64) Band {
	return Band{Lo: b.Lo * factor, Hi: b.Hi * factor}
}

func (b Band) String() string {
	return fmt.Sprintf("%.0f Hz - %.0f Hz", b.Lo, b.Hi)
}

// Avg returns the frequency of the oscillation formed by two half periods.
func Avg(a, b float64) float64 {
	return (a + b) / 2
}

// OscillationIs reads two half periods and reports whether their average
// lies in the band. ok is false at end of input.
func OscillationIs(hpp HalfPeriodProvider, band Band) (is bool, ok bool) {
	f, ok := NextOscillation(hpp)
	if !ok {
		return false, false
	}
	return band.Is(f), true
}

// NextOscillation reads two half periods and returns their average.
func NextOscillation(hpp HalfPeriodProvider) (float64, bool) {
	a, ok := hpp.Next()
	if !ok {
		return 0, false
	}
	b, ok := hpp.Next()
	if !ok {
		return 0, false
	}
	return Avg(a, b), true
}

// BitBands are the frequency bands of the two bit values of an FSK coding.
type BitBands struct {
	Zero, One Band
}

// NewBitBands validates that the bands do not overlap. Overlapping bands
// are a defect in a format table, so this panics.
func NewBitBands(zero, one Band) BitBands {
	if zero.Overlaps(one) {
		panic(fmt.Sprintf("bit bands overlap: zero %v, one %v", zero, one))
	}
	if zero.Lo > zero.Hi || one.Lo > one.Hi {
		panic(fmt.Sprintf("malformed bit bands: zero %v, one %v", zero, one))
	}
	return BitBands{Zero: zero, One: one}
}

// BitByFrequency classifies f. ok is false when f is in neither band.
func BitByFrequency(f float64, zero, one Band) (bit bool, ok bool) {
	switch {
	case one.Is(f):
		return true, true
	case zero.Is(f):
		return false, true
	}
	return false, false
}

// Classify classifies f against the bands.
func (b BitBands) Classify(f float64) (bit bool, ok bool) {
	return BitByFrequency(f, b.Zero, b.One)
}
