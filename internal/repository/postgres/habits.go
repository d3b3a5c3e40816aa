package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/arklim/daily-tracker/internal/core/domain"
	"github.com/arklim/daily-tracker/internal/core/port"
)

const habitsTable = "tracker.habits"

var habitColumns = []string{"id", "user_id", "title", "is_completed", "color", "icon"}

// HabitRepository implements port.HabitRepository using PostgreSQL.
type HabitRepository struct {
	base
}

// NewHabitRepository wires a PostgreSQL-backed habit repository.
func NewHabitRepository(exec pgExecutor, timeout time.Duration) *HabitRepository {
	return &HabitRepository{base: newBase(exec, timeout)}
}

// ValidID reports whether id is a UUID.
func (r *HabitRepository) ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// List returns the user's habits in creation order.
func (r *HabitRepository) List(ctx context.Context, userID string) ([]domain.Habit, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	stmt, args, err := r.builder.Select(habitColumns...).
		From(habitsTable).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list habits sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, mapError("query habits", err)
	}
	defer rows.Close()

	habits := make([]domain.Habit, 0)
	for rows.Next() {
		var h domain.Habit
		if err := rows.Scan(&h.ID, &h.UserID, &h.Title, &h.IsCompleted, &h.Color, &h.Icon); err != nil {
			return nil, fmt.Errorf("scan habit: %w", err)
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("iterate habits", err)
	}

	return habits, nil
}

// Create inserts a habit and returns its id.
func (r *HabitRepository) Create(ctx context.Context, habit domain.Habit) (string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	id := habit.ID
	if id == "" {
		id = uuid.NewString()
	}

	stmt, args, err := r.builder.Insert(habitsTable).
		Columns(habitColumns...).
		Values(id, habit.UserID, habit.Title, habit.IsCompleted, habit.Color, habit.Icon).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build insert habit sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return "", mapError("insert habit", err)
	}
	return id, nil
}

// GetByID loads a habit only if it belongs to userID.
func (r *HabitRepository) GetByID(ctx context.Context, userID, habitID string) (*domain.Habit, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	stmt, args, err := r.builder.Select(habitColumns...).
		From(habitsTable).
		Where(squirrel.Eq{"id": habitID, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select habit sql: %w", err)
	}

	var h domain.Habit
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&h.ID, &h.UserID, &h.Title, &h.IsCompleted, &h.Color, &h.Icon); err != nil {
		return nil, mapError("select habit", err)
	}
	return &h, nil
}

// SetCompleted stores the completion flag of a user-owned habit.
func (r *HabitRepository) SetCompleted(ctx context.Context, userID, habitID string, completed bool) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	stmt, args, err := r.builder.Update(habitsTable).
		Set("is_completed", completed).
		Where(squirrel.Eq{"id": habitID, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update habit sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return mapError("update habit", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ port.HabitRepository = (*HabitRepository)(nil)
