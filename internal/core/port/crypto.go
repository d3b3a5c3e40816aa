package port

import (
	"context"
	"time"

	"github.com/arklim/daily-tracker/internal/core/domain"
)

// PasswordHasher hashes and verifies secrets using the configured algorithm.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	// Verify reports whether encoded was derived from password.
	// Malformed digests yield false, not an error.
	Verify(ctx context.Context, password string, encoded string) (bool, error)
}

// PasswordPolicyValidator enforces password strength requirements.
type PasswordPolicyValidator interface {
	Validate(password string, hints ...string) error
}

// TokenIssuer signs and decodes stateless bearer tokens.
type TokenIssuer interface {
	Issue(subject string, kind domain.TokenKind, ttl time.Duration, extra map[string]any) (string, error)
	Decode(token string, expect domain.TokenKind) (domain.TokenClaims, error)
}
