package codec

// dummyProvider replays a fixed list of half periods. Its position is the
// index of the next value.
type dummyProvider struct {
	values []float64
	cursor int
}

func newDummyProvider(values ...float64) *dummyProvider {
	return &dummyProvider{values: values}
}

func (d *dummyProvider) Next() (float64, bool) {
	if d.cursor >= len(d.values) {
		return 0, false
	}
	v := d.values[d.cursor]
	d.cursor++
	return v, true
}

func (d *dummyProvider) RewindOne() {
	d.cursor--
}

func (d *dummyProvider) Position() Position {
	return PositionAt(d.cursor, 44100)
}
