package codec

import (
	"fmt"
	"math"

	"github.com/linuxmatters/tapedeck/internal/audio"
	"github.com/linuxmatters/tapedeck/internal/config"
)

// Oscillator synthesises square waves into a sink. It is the only writer of
// samples during encoding and owns the phase of the signal: the phase
// decides whether the next half oscillation is high and is only changed by
// recording half oscillations.
type Oscillator struct {
	sink    audio.Sink
	rate    int
	phase   bool
	samples int
	leadIn  int
	leadOut int

	annotations []Annotation
}

// OscillatorOption configures an Oscillator.
type OscillatorOption func(*Oscillator)

// WithLeadIn sets the number of silent samples written by Begin.
func WithLeadIn(samples int) OscillatorOption {
	return func(o *Oscillator) { o.leadIn = samples }
}

// WithLeadOut sets the number of silent samples written by End.
func WithLeadOut(samples int) OscillatorOption {
	return func(o *Oscillator) { o.leadOut = samples }
}

// NewOscillator creates an oscillator writing to sink, starting with a
// positive phase.
func NewOscillator(sink audio.Sink, opts ...OscillatorOption) *Oscillator {
	rate := sink.SampleRate()
	o := &Oscillator{
		sink:    sink,
		rate:    rate,
		phase:   true,
		leadIn:  rate / config.LeadInDivisor,
		leadOut: rate / config.LeadOutDivisor,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SampleRate returns the sample rate of the sink
func (o *Oscillator) SampleRate() int {
	return o.rate
}

// Phase returns true if the next half oscillation is high
func (o *Oscillator) Phase() bool {
	return o.phase
}

// Position returns the number of samples written so far
func (o *Oscillator) Position() Position {
	return PositionAt(o.samples, o.rate)
}

// Begin writes the lead-in silence.
func (o *Oscillator) Begin() {
	o.RecordSilence(o.leadIn)
}

// End writes the lead-out silence.
func (o *Oscillator) End() {
	o.RecordSilence(o.leadOut)
}

// RecordSilence writes n silent samples. The phase is not changed.
func (o *Oscillator) RecordSilence(n int) {
	if n < 0 {
		panic(fmt.Sprintf("negative silence length %d", n))
	}
	o.push(audio.Zero, n)
}

// RecordSilenceMs writes ms milliseconds of silence.
func (o *Oscillator) RecordSilenceMs(ms float64) {
	o.RecordSilence(int(math.Ceil(ms * float64(o.rate) / 1000)))
}

// RecordOscillations writes n full oscillations at frequency f. Each
// oscillation starts with the current phase, so the phase is unchanged
// afterwards.
func (o *Oscillator) RecordOscillations(f float64, n int) {
	if n < 0 {
		panic(fmt.Sprintf("negative oscillation count %d", n))
	}
	half := o.halfSamples(f)
	first, second := audio.High, audio.Low
	if !o.phase {
		first, second = audio.Low, audio.High
	}
	for i := 0; i < n; i++ {
		o.push(first, half)
		o.push(second, half)
	}
}

// RecordHalfOscillation writes half an oscillation at frequency f and
// inverts the phase.
func (o *Oscillator) RecordHalfOscillation(f float64) {
	o.RecordHalfOscillationSamples(o.halfSamples(f))
}

// RecordHalfOscillationSamples writes a half oscillation of n samples at
// the current phase and inverts the phase.
func (o *Oscillator) RecordHalfOscillationSamples(n int) {
	if n < 0 {
		panic(fmt.Sprintf("negative half oscillation length %d", n))
	}
	v := audio.Low
	if o.phase {
		v = audio.High
	}
	o.push(v, n)
	o.phase = !o.phase
}

// RecordSeconds writes ceil(f*s) oscillations at frequency f.
func (o *Oscillator) RecordSeconds(f, s float64) {
	// tolerate rounding noise such as 1200*0.9 = 1080.0000000000002
	o.RecordOscillations(f, int(math.Ceil(f*s-1e-9)))
}

// halfSamples returns the length of half an oscillation at f in samples.
func (o *Oscillator) halfSamples(f float64) int {
	if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		panic(fmt.Sprintf("invalid oscillator frequency %v", f))
	}
	return int(math.Floor(float64(o.rate) / f / 2))
}

func (o *Oscillator) push(v audio.SampleValue, n int) {
	for i := 0; i < n; i++ {
		o.sink.PushSample(v)
	}
	o.samples += n
}

// Annotation labels a span of the recording.
type Annotation struct {
	Label string
	Begin Position
	End   Position
}

// Annotate records the span written by fn under label.
func (o *Oscillator) Annotate(label string, fn func()) {
	begin := o.Position()
	fn()
	o.annotations = append(o.annotations, Annotation{
		Label: label,
		Begin: begin,
		End:   o.Position(),
	})
}

// Annotations returns the spans recorded so far, in the order they ended.
func (o *Oscillator) Annotations() []Annotation {
	return o.annotations
}
