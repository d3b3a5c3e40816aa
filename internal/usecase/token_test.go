package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arklim/daily-tracker/internal/core/domain"
	"github.com/arklim/daily-tracker/internal/infra/security"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTokenFixture(t *testing.T) (*TokenService, *testClock, domain.Identity) {
	t.Helper()

	clock := &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	issuer, err := security.NewJWTIssuer("test-secret", "HS256")
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	issuer.WithClock(clock.Now)

	identity := domain.NewIdentity("Asha", "Rao", "asha@example.com", "9876543210", "Pune", "", "stub$pw", clock.now)
	identity.ID = "user-1"

	svc := NewTokenService(issuer, newMemIdentityRepo(identity), 30*time.Minute, 7*24*time.Hour)
	return svc, clock, identity
}

func TestIssuePairClaims(t *testing.T) {
	svc, _, identity := newTokenFixture(t)

	pair, err := svc.IssuePair(identity)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}
	if pair.TokenType != "bearer" || pair.ExpiresIn != 1800 {
		t.Fatalf("unexpected pair metadata %+v", pair)
	}

	access, err := svc.DecodeToken(pair.AccessToken, domain.TokenKindAccess)
	if err != nil {
		t.Fatalf("decode access: %v", err)
	}
	if access.Subject != identity.Email {
		t.Fatalf("expected subject %s, got %s", identity.Email, access.Subject)
	}
	if access.Extra[domain.ClaimName] != "Asha Rao" || access.Extra[domain.ClaimRole] != domain.DefaultRole || access.Extra[domain.ClaimID] != "user-1" {
		t.Fatalf("unexpected display claims %v", access.Extra)
	}
	if got := access.ExpiresAt.Sub(access.IssuedAt); got != 30*time.Minute {
		t.Fatalf("expected 30m lifetime, got %v", got)
	}

	refresh, err := svc.DecodeToken(pair.RefreshToken, domain.TokenKindRefresh)
	if err != nil {
		t.Fatalf("decode refresh: %v", err)
	}
	if len(refresh.Extra) != 0 {
		t.Fatalf("refresh token must not carry display claims, got %v", refresh.Extra)
	}
	if got := refresh.ExpiresAt.Sub(refresh.IssuedAt); got != 7*24*time.Hour {
		t.Fatalf("expected 7d lifetime, got %v", got)
	}
}

func TestRefreshRotatesPair(t *testing.T) {
	svc, clock, identity := newTokenFixture(t)

	pair, err := svc.IssuePair(identity)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	clock.Advance(time.Minute)
	next, resolved, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if resolved.ID != identity.ID {
		t.Fatalf("expected identity %s, got %s", identity.ID, resolved.ID)
	}
	if next.RefreshToken == pair.RefreshToken || next.AccessToken == pair.AccessToken {
		t.Fatalf("expected fresh tokens after refresh")
	}

	// the old refresh token keeps working until it expires
	if _, _, err := svc.Refresh(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("old refresh token rejected: %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _, identity := newTokenFixture(t)

	access, err := svc.IssueAccessToken(identity)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	if _, _, err := svc.Refresh(context.Background(), access); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestRefreshUnknownSubject(t *testing.T) {
	svc, _, _ := newTokenFixture(t)

	refresh, err := svc.IssueRefreshToken("ghost@example.com")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	if _, _, err := svc.Refresh(context.Background(), refresh); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestResolveAccessTokenExpiry(t *testing.T) {
	svc, clock, identity := newTokenFixture(t)

	access, err := svc.IssueAccessToken(identity)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	resolved, err := svc.ResolveAccessToken(context.Background(), access)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Email != identity.Email {
		t.Fatalf("expected %s, got %s", identity.Email, resolved.Email)
	}

	clock.Advance(31 * time.Minute)
	if _, err := svc.ResolveAccessToken(context.Background(), access); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestResolveAccessTokenRejectsRefresh(t *testing.T) {
	svc, _, identity := newTokenFixture(t)

	refresh, err := svc.IssueRefreshToken(identity.Email)
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	if _, err := svc.ResolveAccessToken(context.Background(), refresh); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}
