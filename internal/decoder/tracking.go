package decoder

import (
	"context"

	"github.com/linuxmatters/tapedeck/internal/codec"
	"github.com/linuxmatters/tapedeck/internal/config"
)

// trackingProvider passes half periods through and reports progress every
// config.ProgressInterval samples. A cancelled context ends the input and
// marks the provider cancelled, so files flushed after it are discarded.
type trackingProvider struct {
	ctx        context.Context
	hpp        codec.HalfPeriodProvider
	next       int
	onProgress func()
	cancelled  bool
}

func newTrackingProvider(ctx context.Context, hpp codec.HalfPeriodProvider) *trackingProvider {
	return &trackingProvider{
		ctx:  ctx,
		hpp:  hpp,
		next: config.ProgressInterval,
	}
}

func (t *trackingProvider) Next() (float64, bool) {
	if t.cancelled || t.ctx.Err() != nil {
		t.cancelled = true
		return 0, false
	}
	f, ok := t.hpp.Next()
	if ok && t.onProgress != nil {
		if pos := t.hpp.Position().Samples; pos >= t.next {
			t.next = pos + config.ProgressInterval
			t.onProgress()
		}
	}
	return f, ok
}

func (t *trackingProvider) RewindOne() {
	t.hpp.RewindOne()
}

func (t *trackingProvider) Position() codec.Position {
	return t.hpp.Position()
}
