package classify

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket keyed to requests per second. Providers wait
// on it before each remote call so batch scans stay inside API limits.
type RateLimiter struct {
	mu sync.Mutex

	rps        float64
	tokens     float64
	lastUpdate time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second. The
// bucket starts full with one second of capacity.
func NewRateLimiter(rps float64) *RateLimiter {
	if rps <= 0 {
		rps = 1.0
	}
	return &RateLimiter{
		rps:        rps,
		tokens:     rps,
		lastUpdate: time.Now(),
	}
}

// Wait blocks until a token is available or the context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		r.refill()

		if r.tokens >= 1.0 {
			r.tokens--
			r.mu.Unlock()
			return nil
		}

		needed := 1.0 - r.tokens
		wait := time.Duration(needed / r.rps * float64(time.Second))
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// refill adds tokens for elapsed time. Must be called with the lock held.
func (r *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(r.lastUpdate).Seconds()
	r.lastUpdate = now

	r.tokens += elapsed * r.rps
	if r.tokens > r.rps {
		r.tokens = r.rps
	}
}
