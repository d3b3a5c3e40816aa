package port

import (
	"context"
	"time"
)

// RateDecision is the outcome of a sliding-window check.
type RateDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RateLimitStore records attempts in a sliding window and decides whether another is allowed.
// A denied attempt is not recorded.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (RateDecision, error)
}
