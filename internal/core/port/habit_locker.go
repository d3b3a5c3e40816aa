package port

import (
	"context"
	"errors"
)

// ErrLockHeld is returned by HabitLocker.Acquire when another toggle holds the lock.
var ErrLockHeld = errors.New("lock held")

// HabitLocker serialises toggles of a single habit.
type HabitLocker interface {
	// Acquire takes the lock for key and returns a release func.
	Acquire(ctx context.Context, key string) (func(context.Context) error, error)
}
