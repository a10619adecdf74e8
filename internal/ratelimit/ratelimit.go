// Package ratelimit gates outbound API calls behind a shared token bucket.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Bucket grants up to perMinute permits per rolling minute. One Bucket is
// constructed per process and injected into every component that talks to the
// remote API; concurrent callers are served in arrival order by the
// underlying limiter.
type Bucket struct {
	limiter *rate.Limiter
}

// New creates a bucket allowing perMinute permits per minute. Values below 1
// fall back to a single permit per minute.
func New(perMinute int) *Bucket {
	if perMinute < 1 {
		perMinute = 1
	}
	// Tokens refill continuously at perMinute/60 per second; the burst equals
	// the window capacity so an idle bucket can absorb a full window at once.
	return &Bucket{
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
	}
}

// Acquire blocks until one permit is available. It only returns an error when
// ctx is cancelled or its deadline cannot accommodate the wait.
func (b *Bucket) Acquire(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}
