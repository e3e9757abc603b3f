package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer serializes work to at most one step per interval. The first step is
// admitted immediately.
type Pacer struct {
	interval time.Duration
	limiter  *rate.Limiter
}

func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		interval = time.Second
	}
	return &Pacer{
		interval: interval,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Wait blocks until the next step may start.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

func (p *Pacer) Interval() time.Duration { return p.interval }
