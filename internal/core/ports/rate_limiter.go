package ports

import (
	"context"
	"time"
)

// RateLimitRepository provides low-level atomic operations for rate limiting counters.
// It abstracts storage (e.g., Redis). Implementation should be concurrency-safe.
type RateLimitRepository interface {
	// IncrementWindow atomically increments the counter for key in the current fixed window
	// and ensures it expires after ttl. Returns the updated count and the window start time.
	IncrementWindow(ctx context.Context, key string, window time.Duration, ttl time.Duration) (count int, windowStart time.Time, err error)
}

// RateLimitDecision is the outcome of consuming one unit from a budget.
type RateLimitDecision struct {
	Allowed   bool
	Remaining int
	Limit     int
	Reset     time.Time
}

// RateLimiter enforces a fixed budget per key (client IP, email address).
// Implementations MUST be safe for concurrent use.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (*RateLimitDecision, error)
}
