package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arklim/daily-tracker/internal/core/domain"
	"github.com/arklim/daily-tracker/internal/core/port"
)

// TokenService issues and resolves the access/refresh pair handed out at login.
type TokenService struct {
	issuer     port.TokenIssuer
	identities port.IdentityRepository
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenService(issuer port.TokenIssuer, identities port.IdentityRepository, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		issuer:     issuer,
		identities: identities,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTTL exposes the configured access token lifetime.
func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

// IssueAccessToken signs a short-lived token whose subject is the identity email.
// Display claims are advisory; the subject is the only authoritative claim.
func (s *TokenService) IssueAccessToken(identity domain.Identity) (string, error) {
	extra := map[string]any{
		domain.ClaimID:    identity.ID,
		domain.ClaimName:  identity.DisplayName(),
		domain.ClaimEmail: identity.Email,
		domain.ClaimRole:  domain.DefaultRole,
	}
	token, err := s.issuer.Issue(identity.Email, domain.TokenKindAccess, s.accessTTL, extra)
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}
	return token, nil
}

// IssueRefreshToken signs a long-lived token carrying only sub, type and exp.
func (s *TokenService) IssueRefreshToken(email string) (string, error) {
	token, err := s.issuer.Issue(email, domain.TokenKindRefresh, s.refreshTTL, nil)
	if err != nil {
		return "", fmt.Errorf("issue refresh token: %w", err)
	}
	return token, nil
}

func (s *TokenService) IssuePair(identity domain.Identity) (domain.TokenPair, error) {
	access, err := s.IssueAccessToken(identity)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.IssueRefreshToken(identity.Email)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    domain.TokenTypeBearer,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

func (s *TokenService) DecodeToken(token string, expect domain.TokenKind) (domain.TokenClaims, error) {
	return s.issuer.Decode(token, expect)
}

// Refresh exchanges a valid refresh token for a brand-new pair. The presented
// token is not revoked and stays usable until it expires.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, domain.Identity, error) {
	identity, err := s.resolve(ctx, refreshToken, domain.TokenKindRefresh)
	if err != nil {
		return domain.TokenPair{}, domain.Identity{}, err
	}
	pair, err := s.IssuePair(identity)
	if err != nil {
		return domain.TokenPair{}, domain.Identity{}, err
	}
	return pair, identity, nil
}

// ResolveAccessToken decodes an access token and loads the identity named by its subject.
func (s *TokenService) ResolveAccessToken(ctx context.Context, accessToken string) (domain.Identity, error) {
	return s.resolve(ctx, accessToken, domain.TokenKindAccess)
}

func (s *TokenService) resolve(ctx context.Context, token string, kind domain.TokenKind) (domain.Identity, error) {
	claims, err := s.issuer.Decode(token, kind)
	if err != nil {
		return domain.Identity{}, domain.ErrInvalidToken
	}

	identity, err := s.identities.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Identity{}, domain.ErrInvalidToken
		}
		return domain.Identity{}, fmt.Errorf("lookup token subject: %w", err)
	}
	if identity.Disabled {
		return domain.Identity{}, domain.ErrInvalidToken
	}
	return *identity, nil
}
