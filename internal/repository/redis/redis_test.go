package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/arklim/daily-tracker/internal/core/port"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func TestRateLimitRepository_AllowUntilLimit(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "rl"})

	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	for i := 0; i < 3; i++ {
		decision, err := repo.Allow(ctx, "login:a@b.c", 3, time.Minute, now.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("Allow returned error: %v", err)
		}
		if !decision.Allowed {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
		if decision.Remaining != 2-i {
			t.Fatalf("attempt %d: expected remaining %d, got %d", i+1, 2-i, decision.Remaining)
		}
	}

	decision, err := repo.Allow(ctx, "login:a@b.c", 3, time.Minute, now.Add(5*time.Second))
	if err != nil {
		t.Fatalf("Allow returned error: %v", err)
	}
	if decision.Allowed {
		t.Fatalf("expected fourth attempt to be denied")
	}
	if diff := decision.RetryAfter - 55*time.Second; diff > time.Millisecond || diff < -time.Millisecond {
		t.Fatalf("expected retry after ~55s, got %v", decision.RetryAfter)
	}
}

func TestRateLimitRepository_WindowSlides(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "rl"})

	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	if _, err := repo.Allow(ctx, "ip", 1, time.Minute, now); err != nil {
		t.Fatalf("Allow returned error: %v", err)
	}
	decision, err := repo.Allow(ctx, "ip", 1, time.Minute, now.Add(61*time.Second))
	if err != nil {
		t.Fatalf("Allow returned error: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("expected attempt after window to be allowed")
	}
}

func TestRateLimitRepository_RejectsZeroWindow(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{})

	if _, err := repo.Allow(context.Background(), "ip", 1, 0, time.Now()); err == nil {
		t.Fatalf("expected error for zero window")
	}
}

func TestHabitLockRepository_AcquireRelease(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewHabitLockRepository(client, "lock", 3*time.Second)
	ctx := context.Background()

	release, err := repo.Acquire(ctx, "habit-1")
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if ttl := server.TTL("lock:habit-1"); ttl <= 0 || ttl > 3*time.Second {
		t.Fatalf("expected ttl within (0, 3s], got %v", ttl)
	}

	if _, err := repo.Acquire(ctx, "habit-1"); !errors.Is(err, port.ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release returned error: %v", err)
	}
	if server.Exists("lock:habit-1") {
		t.Fatalf("expected lock key to be deleted")
	}

	if _, err := repo.Acquire(ctx, "habit-1"); err != nil {
		t.Fatalf("expected re-acquire to succeed, got %v", err)
	}
}

func TestHabitLockRepository_ReleaseKeepsForeignLock(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewHabitLockRepository(client, "lock", time.Second)
	ctx := context.Background()

	release, err := repo.Acquire(ctx, "habit-2")
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}

	// lock expired and was taken by someone else
	server.FastForward(2 * time.Second)
	if err := server.Set("lock:habit-2", "other"); err != nil {
		t.Fatalf("seed foreign lock: %v", err)
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release returned error: %v", err)
	}
	if got, _ := server.Get("lock:habit-2"); got != "other" {
		t.Fatalf("expected foreign lock to survive, got %q", got)
	}
}
