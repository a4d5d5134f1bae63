// Package clock samples an external playback clock at a bounded rate and
// feeds the positions to a callback. The clock is read-only; nothing here
// ever changes playback state.
package clock

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Source exposes the playback clock of the external audio primitive.
// Duration reports false until the media metadata is known.
type Source interface {
	Position() float64
	Duration() (float64, bool)
}

// DefaultInterval caps the sampling rate. 50ms keeps lyric transitions
// well under perception while staying cheap to poll.
const DefaultInterval = 50 * time.Millisecond

// Poller drives a tick callback from a Source on a fixed ticker and fires
// a separate callback when the duration transitions from unknown to known
// (and on later changes).
type Poller struct {
	src        Source
	interval   time.Duration
	onTick     func(t float64)
	onDuration func(d float64)
}

func NewPoller(src Source, interval time.Duration, onTick func(float64), onDuration func(float64)) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{src: src, interval: interval, onTick: onTick, onDuration: onDuration}
}

// Run samples the source until the context is cancelled. Duration is
// checked before the tick callback so gap recomputation happens before
// the tick that first observes a known duration.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	lastDuration := -1.0
	log.Debug().Dur("interval", p.interval).Msg("Clock poller started")

	for {
		select {
		case <-ticker.C:
			if d, ok := p.src.Duration(); ok && d > 0 && d != lastDuration {
				lastDuration = d
				if p.onDuration != nil {
					p.onDuration(d)
				}
			}

			t := p.src.Position()
			if t < 0 {
				log.Warn().Float64("position", t).Msg("Invalid playback position")
				continue
			}
			if p.onTick != nil {
				p.onTick(t)
			}

		case <-ctx.Done():
			log.Debug().Msg("Clock poller stopped")
			return
		}
	}
}
