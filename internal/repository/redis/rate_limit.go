package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arklim/daily-tracker/internal/core/port"
)

// SlidingWindowConfig defines configuration for the sliding window limiter.
type SlidingWindowConfig struct {
	KeyPrefix string
	TTL       time.Duration
}

// RateLimitRepository persists rate-limit attempts in Redis sorted sets.
type RateLimitRepository struct {
	client *redis.Client
	cfg    SlidingWindowConfig
}

// NewRateLimitRepository constructs a repository using the provided Redis client and config.
func NewRateLimitRepository(client *redis.Client, cfg SlidingWindowConfig) *RateLimitRepository {
	return &RateLimitRepository{client: client, cfg: cfg}
}

// Allow trims attempts that fell out of the window, counts the rest and records
// a new attempt when the count is below limit.
func (r *RateLimitRepository) Allow(ctx context.Context, identifier string, limit int, window time.Duration, now time.Time) (port.RateDecision, error) {
	if window <= 0 {
		return port.RateDecision{}, errors.New("window must be positive")
	}
	if limit <= 0 {
		return port.RateDecision{Allowed: true}, nil
	}

	key := r.key(identifier)
	floor := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	var (
		countCmd  *redis.IntCmd
		oldestCmd *redis.ZSliceCmd
	)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", "("+floor)
		countCmd = pipe.ZCard(ctx, key)
		oldestCmd = pipe.ZRangeWithScores(ctx, key, 0, 0)
		return nil
	})
	if err != nil {
		return port.RateDecision{}, fmt.Errorf("redis window read: %w", err)
	}

	count := int(countCmd.Val())
	decision := port.RateDecision{Limit: limit, ResetAt: now.Add(window)}
	if oldest := oldestCmd.Val(); len(oldest) > 0 {
		decision.ResetAt = time.Unix(0, int64(oldest[0].Score)).Add(window)
	}

	if count >= limit {
		decision.RetryAfter = decision.ResetAt.Sub(now)
		if decision.RetryAfter < 0 {
			decision.RetryAfter = 0
		}
		return decision, nil
	}

	member := redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()}
	if err := r.client.ZAdd(ctx, key, member).Err(); err != nil {
		return port.RateDecision{}, fmt.Errorf("redis zadd: %w", err)
	}

	ttl := r.cfg.TTL
	if ttl <= 0 {
		ttl = 2 * window
	}
	if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
		return port.RateDecision{}, fmt.Errorf("redis expire: %w", err)
	}

	decision.Allowed = true
	decision.Remaining = limit - count - 1
	return decision, nil
}

func (r *RateLimitRepository) key(identifier string) string {
	if r.cfg.KeyPrefix == "" {
		return identifier
	}
	return fmt.Sprintf("%s:%s", r.cfg.KeyPrefix, identifier)
}

var _ port.RateLimitStore = (*RateLimitRepository)(nil)
