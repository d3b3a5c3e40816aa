package domain

import "time"

// TokenKind distinguishes access tokens from refresh tokens.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"

	TokenTypeBearer = "bearer"
)

// Display claim keys carried by access tokens.
const (
	ClaimID    = "id"
	ClaimName  = "name"
	ClaimEmail = "email"
	ClaimRole  = "role"
)

// TokenClaims is the decoded content of a bearer token.
type TokenClaims struct {
	Subject   string
	Kind      TokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
	Extra     map[string]any
}

// IsExpired reports whether the token has elapsed its validity window.
func (c TokenClaims) IsExpired(at time.Time) bool {
	return !c.ExpiresAt.After(at)
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
}
