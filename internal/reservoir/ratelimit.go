package reservoir

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter paces spawn-one calls made by allocators so a worker factory
// backed by a costly resource (a subprocess, a connection) is not hammered
// by many concurrently-running allocators. A nil *RateLimiter imposes no
// pacing, which is the default.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter permits at most r spawn-one calls per second across all
// allocators, allowing an initial burst of up to burst calls.
func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(r, burst)}
}

// Wait blocks until a spawn-one call is permitted, or returns ctx's error
// if ctx is done first. A nil receiver never blocks.
func (l *RateLimiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}
