package resilience

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces consecutive calls to an external API at least Interval apart.
// The first call goes through immediately.
type Pacer struct {
	interval time.Duration
	lim      *rate.Limiter
}

// NewPacer creates a Pacer. A non-positive interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{interval: interval, lim: rate.NewLimiter(limit, 1)}
}

// Interval returns the configured spacing.
func (p *Pacer) Interval() time.Duration { return p.interval }

// Wait blocks until the next call may start or ctx is cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.lim.Wait(ctx)
}
