package audio

import (
	"context"
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
)

// playerBufferSize is the latency of the audio device buffer
const playerBufferSize = 100 * time.Millisecond

// PlayProgress is called while a recording plays with the time played so far.
type PlayProgress func(played, total time.Duration)

// Play plays a recording through the default audio device and blocks until
// playback ends or ctx is cancelled.
func Play(ctx context.Context, rec *Recording, progress PlayProgress) error {
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rec.SampleRate(),
		ChannelCount: 1,
		Format:       oto.FormatUnsignedInt8,
		BufferSize:   playerBufferSize,
	})
	if err != nil {
		return fmt.Errorf("failed to open audio device: %w", err)
	}

	select {
	case <-ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	player := otoCtx.NewPlayer(rec.Reader())
	defer player.Close()
	player.Play()

	start := time.Now()
	total := rec.Duration()
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
			if progress != nil {
				progress(min(time.Since(start), total), total)
			}
		}
	}

	if progress != nil {
		progress(total, total)
	}
	return player.Err()
}
