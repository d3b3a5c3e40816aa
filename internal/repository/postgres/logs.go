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

const logsTable = "tracker.daily_logs"

var logColumns = []string{"id", "user_id", "log_date", "steps", "water_ml", "protein_g"}

// LogRepository implements port.LogRepository using PostgreSQL.
// log_date is stored as text in YYYY-MM-DD form so range filters compare lexically.
type LogRepository struct {
	base
}

// NewLogRepository wires a PostgreSQL-backed daily log repository.
func NewLogRepository(exec pgExecutor, timeout time.Duration) *LogRepository {
	return &LogRepository{base: newBase(exec, timeout)}
}

// GetByDate loads the log stored for (userID, date).
func (r *LogRepository) GetByDate(ctx context.Context, userID, date string) (*domain.DailyLog, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	stmt, args, err := r.builder.Select(logColumns...).
		From(logsTable).
		Where(squirrel.Eq{"user_id": userID, "log_date": date}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select log sql: %w", err)
	}

	var l domain.DailyLog
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&l.ID, &l.UserID, &l.Date, &l.Steps, &l.WaterMl, &l.ProteinG); err != nil {
		return nil, mapError("select log", err)
	}
	return &l, nil
}

// ListRange returns logs with start <= log_date <= end ordered ascending.
func (r *LogRepository) ListRange(ctx context.Context, userID, start, end string) ([]domain.DailyLog, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	stmt, args, err := r.builder.Select(logColumns...).
		From(logsTable).
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.GtOrEq{"log_date": start}).
		Where(squirrel.LtOrEq{"log_date": end}).
		OrderBy("log_date ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list logs sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, mapError("query logs", err)
	}
	defer rows.Close()

	logs := make([]domain.DailyLog, 0)
	for rows.Next() {
		var l domain.DailyLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Date, &l.Steps, &l.WaterMl, &l.ProteinG); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("iterate logs", err)
	}

	return logs, nil
}

// Upsert replaces the metrics for (userID, entry.Date) in one statement.
func (r *LogRepository) Upsert(ctx context.Context, userID string, entry domain.LogEntry) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	stmt, args, err := r.builder.Insert(logsTable).
		Columns(logColumns...).
		Values(uuid.NewString(), userID, entry.Date, entry.Steps, entry.WaterMl, entry.ProteinG).
		Suffix("ON CONFLICT (user_id, log_date) DO UPDATE SET steps = EXCLUDED.steps, water_ml = EXCLUDED.water_ml, protein_g = EXCLUDED.protein_g").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert log sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return mapError("upsert log", err)
	}
	return nil
}

var _ port.LogRepository = (*LogRepository)(nil)
