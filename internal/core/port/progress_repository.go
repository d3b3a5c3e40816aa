package port

import (
	"context"

	"github.com/arklim/daily-tracker/internal/core/domain"
)

// HabitRepository stores habits; every lookup is scoped to the owning user.
type HabitRepository interface {
	// ValidID reports whether id is well-formed for this backend.
	ValidID(id string) bool
	List(ctx context.Context, userID string) ([]domain.Habit, error)
	Create(ctx context.Context, habit domain.Habit) (string, error)
	GetByID(ctx context.Context, userID, habitID string) (*domain.Habit, error)
	SetCompleted(ctx context.Context, userID, habitID string, completed bool) error
}

// LogRepository stores daily logs keyed by (user, date).
type LogRepository interface {
	GetByDate(ctx context.Context, userID, date string) (*domain.DailyLog, error)
	// ListRange returns logs with start <= date <= end ordered by date ascending.
	ListRange(ctx context.Context, userID, start, end string) ([]domain.DailyLog, error)
	// Upsert replaces the metrics stored for (userID, entry.Date) or inserts them.
	Upsert(ctx context.Context, userID string, entry domain.LogEntry) error
}
