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

const identitiesTable = "tracker.identities"

var identityColumns = []string{
	"id",
	"first_name",
	"last_name",
	"email",
	"mobile",
	"city",
	"dob",
	"password_hash",
	"created_at",
	"disabled",
	"current_xp",
	"max_xp",
	"level",
}

// IdentityRepository implements port.IdentityRepository using PostgreSQL.
type IdentityRepository struct {
	base
}

// NewIdentityRepository wires a PostgreSQL-backed identity repository.
func NewIdentityRepository(exec pgExecutor, timeout time.Duration) *IdentityRepository {
	return &IdentityRepository{base: newBase(exec, timeout)}
}

// Create inserts a new identity row. The email column carries a UNIQUE constraint.
func (r *IdentityRepository) Create(ctx context.Context, identity domain.Identity) (string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	id := identity.ID
	if id == "" {
		id = uuid.NewString()
	}

	stmt, args, err := r.builder.Insert(identitiesTable).
		Columns(identityColumns...).
		Values(
			id,
			identity.FirstName,
			identity.LastName,
			identity.Email,
			identity.Mobile,
			identity.City,
			identity.DOB,
			identity.PasswordHash,
			identity.CreatedAt,
			identity.Disabled,
			identity.CurrentXP,
			identity.MaxXP,
			identity.Level,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build insert identity sql: %w", err)
	}

	var stored string
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&stored); err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("insert identity: %w", domain.ErrDuplicateEmail)
		}
		return "", mapError("insert identity", err)
	}

	return stored, nil
}

// GetByID retrieves an identity by identifier.
func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return r.getOne(ctx, squirrel.Eq{"id": id}, "select identity by id")
}

// GetByEmail retrieves an identity by its exact email.
func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.getOne(ctx, squirrel.Eq{"email": email}, "select identity by email")
}

func (r *IdentityRepository) getOne(ctx context.Context, where squirrel.Eq, op string) (*domain.Identity, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	stmt, args, err := r.builder.
		Select(identityColumns...).
		From(identitiesTable).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s sql: %w", op, err)
	}

	var identity domain.Identity
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&identity.ID,
		&identity.FirstName,
		&identity.LastName,
		&identity.Email,
		&identity.Mobile,
		&identity.City,
		&identity.DOB,
		&identity.PasswordHash,
		&identity.CreatedAt,
		&identity.Disabled,
		&identity.CurrentXP,
		&identity.MaxXP,
		&identity.Level,
	); err != nil {
		return nil, mapError(op, err)
	}

	return &identity, nil
}

// CountByEmail returns how many identities carry the given email.
func (r *IdentityRepository) CountByEmail(ctx context.Context, email string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	stmt, args, err := r.builder.Select("COUNT(*)").
		From(identitiesTable).
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count identities sql: %w", err)
	}

	var count int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, mapError("count identities", err)
	}
	return count, nil
}

// UpdateProgress swaps the gamification counters in a single conditional statement.
func (r *IdentityRepository) UpdateProgress(ctx context.Context, id string, expected, next domain.Progress) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	stmt, args, err := r.builder.Update(identitiesTable).
		Set("current_xp", next.CurrentXP).
		Set("max_xp", next.MaxXP).
		Set("level", next.Level).
		Where(squirrel.Eq{
			"id":         id,
			"current_xp": expected.CurrentXP,
			"max_xp":     expected.MaxXP,
			"level":      expected.Level,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update progress sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return mapError("update progress", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrConflict
	}

	return nil
}

var _ port.IdentityRepository = (*IdentityRepository)(nil)
