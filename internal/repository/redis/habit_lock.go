package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/arklim/daily-tracker/internal/core/port"
)

// releaseScript deletes the lock only if it still carries the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// HabitLockRepository implements port.HabitLocker with SET NX PX keys.
type HabitLockRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewHabitLockRepository(client *redis.Client, prefix string, ttl time.Duration) *HabitLockRepository {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &HabitLockRepository{client: client, prefix: prefix, ttl: ttl}
}

// Acquire takes the lock for key. It returns port.ErrLockHeld when another holder owns it.
func (r *HabitLockRepository) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	lockKey := r.key(key)
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, lockKey, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return nil, port.ErrLockHeld
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, r.client, []string{lockKey}, token).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("redis release lock: %w", err)
		}
		return nil
	}
	return release, nil
}

func (r *HabitLockRepository) key(key string) string {
	if r.prefix == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", r.prefix, key)
}

var _ port.HabitLocker = (*HabitLockRepository)(nil)
