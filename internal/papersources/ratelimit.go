package papersources

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter wraps a token bucket rate limiter for controlling request rates
// to external APIs. It is safe for concurrent use because the underlying
// rate.Limiter is goroutine-safe for all operations.
//
// The bucket has a burst of one, which turns it into a minimum-spacing queue:
// reservations are handed out in call order and consecutive operations start
// at least minInterval apart.
type RateLimiter struct {
	limiter     *rate.Limiter
	minInterval time.Duration
}

// NewSpacingLimiter creates a FIFO limiter that starts at most one operation
// per minInterval. A non-positive interval disables spacing.
//
// Provider spacing used by the service:
//   - arXiv: 3s
//   - Semantic Scholar: 1s
//   - Crossref, ORCID: 200ms
//   - OpenAlex: 100ms
func NewSpacingLimiter(minInterval time.Duration) *RateLimiter {
	if minInterval <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &RateLimiter{
		limiter:     rate.NewLimiter(rate.Every(minInterval), 1),
		minInterval: minInterval,
	}
}

// Schedule waits for this caller's turn and then runs op. Callers are served
// in the order they called Schedule. If ctx ends while waiting, op never runs
// and the context error is returned.
func (r *RateLimiter) Schedule(ctx context.Context, op func(ctx context.Context) error) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	return op(ctx)
}

// MinInterval returns the minimum spacing between operations.
func (r *RateLimiter) MinInterval() time.Duration {
	return r.minInterval
}
