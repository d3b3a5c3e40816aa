package port

import (
	"context"

	"github.com/arklim/daily-tracker/internal/core/domain"
)

// IdentityRepository exposes persistence behavior for identities keyed by unique email.
type IdentityRepository interface {
	// Create inserts the identity and returns the id the store assigned.
	// A unique-email violation is reported as domain.ErrDuplicateEmail.
	Create(ctx context.Context, identity domain.Identity) (string, error)
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	CountByEmail(ctx context.Context, email string) (int64, error)
	// UpdateProgress replaces the gamification counters with next only while the
	// stored counters still equal expected. It reports domain.ErrConflict when no
	// identity with id holds expected, which includes a missing identity.
	UpdateProgress(ctx context.Context, id string, expected, next domain.Progress) error
}
