package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arklim/daily-tracker/internal/core/domain"
	"github.com/arklim/daily-tracker/internal/infra/security"
)

func validRegistration() RegistrationInput {
	return RegistrationInput{
		FirstName: "Asha",
		LastName:  "Rao",
		Email:     "asha@example.com",
		Mobile:    "9876543210",
		City:      "Pune",
		DOB:       "1994-05-17",
		Password:  "Tundra-Ledger-42!",
	}
}

func TestRegisterAppliesDefaultProgress(t *testing.T) {
	repo := newMemIdentityRepo()
	events := &recordingPublisher{}
	createdAt := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	svc := NewIdentityService(repo, &stubHasher{}, nil).
		WithEventPublisher(events).
		WithClock(func() time.Time { return createdAt })

	identity, err := svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if identity.ID == "" {
		t.Fatalf("expected stored id")
	}
	if identity.CurrentXP != 0 || identity.MaxXP != 1000 || identity.Level != 1 {
		t.Fatalf("unexpected progress %+v", identity.Progress())
	}
	if identity.PasswordHash == "" || identity.PasswordHash == "Tundra-Ledger-42!" {
		t.Fatalf("expected hashed password, got %q", identity.PasswordHash)
	}
	if !identity.CreatedAt.Equal(createdAt) {
		t.Fatalf("expected created at %v, got %v", createdAt, identity.CreatedAt)
	}
	if len(events.registered) != 1 || events.registered[0].UserID != identity.ID {
		t.Fatalf("expected one registered event, got %+v", events.registered)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newMemIdentityRepo(domain.Identity{ID: "existing", Email: "asha@example.com"})
	svc := NewIdentityService(repo, &stubHasher{}, nil)

	_, err := svc.Register(context.Background(), validRegistration())
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected duplicate email, got %v", err)
	}
	if repo.creates != 0 {
		t.Fatalf("expected no insert, got %d", repo.creates)
	}
}

func TestRegisterValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RegistrationInput)
		field  string
	}{
		{name: "short mobile", mutate: func(in *RegistrationInput) { in.Mobile = "12345" }, field: "mobile"},
		{name: "non digit mobile", mutate: func(in *RegistrationInput) { in.Mobile = "98765-4321" }, field: "mobile"},
		{name: "bad email", mutate: func(in *RegistrationInput) { in.Email = "not-an-email" }, field: "email"},
		{name: "missing first name", mutate: func(in *RegistrationInput) { in.FirstName = "" }, field: "first_name"},
		{name: "short password", mutate: func(in *RegistrationInput) { in.Password = "abc" }, field: "password"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMemIdentityRepo()
			svc := NewIdentityService(repo, &stubHasher{}, nil)

			in := validRegistration()
			tc.mutate(&in)

			_, err := svc.Register(context.Background(), in)
			verr, ok := domain.AsValidationError(err)
			if !ok {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, verr.Field)
			}
			if repo.creates != 0 {
				t.Fatalf("expected no insert")
			}
		})
	}
}

func TestRegisterPasswordPolicy(t *testing.T) {
	svc := NewIdentityService(newMemIdentityRepo(), &stubHasher{}, security.NewPasswordPolicy(8, 3))

	in := validRegistration()
	in.Password = "password"

	_, err := svc.Register(context.Background(), in)
	verr, ok := domain.AsValidationError(err)
	if !ok || verr.Field != "password" {
		t.Fatalf("expected password validation error, got %v", err)
	}
}

func TestRegisterStoreUnavailable(t *testing.T) {
	repo := newMemIdentityRepo()
	repo.lookupErr = domain.ErrStoreUnavailable
	svc := NewIdentityService(repo, &stubHasher{}, nil)

	_, err := svc.Register(context.Background(), validRegistration())
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
}

func TestRegisterWithArgon2RoundTrip(t *testing.T) {
	cfg := security.DefaultArgon2Config()
	cfg.Memory = 8 * 1024
	cfg.Iterations = 1
	cfg.Parallelism = 1
	hasher, err := security.NewArgon2Hasher(cfg, 2)
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}

	svc := NewIdentityService(newMemIdentityRepo(), hasher, nil)
	if _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Authenticate(context.Background(), "asha@example.com", "Tundra-Ledger-42!"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "asha@example.com", "wrong-password"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	stored := domain.NewIdentity("Asha", "Rao", "asha@example.com", "9876543210", "Pune", "", "stub$secret-pass", time.Now())
	stored.ID = "user-1"
	disabled := domain.NewIdentity("Old", "Account", "old@example.com", "9876543210", "", "", "stub$secret-pass", time.Now())
	disabled.ID = "user-2"
	disabled.Disabled = true

	cases := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "valid", email: "asha@example.com", password: "secret-pass"},
		{name: "wrong password", email: "asha@example.com", password: "nope", wantErr: domain.ErrInvalidCredentials},
		{name: "unknown email", email: "ghost@example.com", password: "secret-pass", wantErr: domain.ErrInvalidCredentials},
		{name: "disabled", email: "old@example.com", password: "secret-pass", wantErr: domain.ErrInvalidCredentials},
		{name: "empty password", email: "asha@example.com", password: "", wantErr: domain.ErrInvalidCredentials},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hasher := &stubHasher{}
			svc := NewIdentityService(newMemIdentityRepo(stored, disabled), hasher, nil)

			identity, err := svc.Authenticate(context.Background(), tc.email, tc.password)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("authenticate: %v", err)
			}
			if identity.ID != stored.ID {
				t.Fatalf("expected %s, got %s", stored.ID, identity.ID)
			}
		})
	}
}

func TestAuthenticateUnknownEmailStillVerifies(t *testing.T) {
	hasher := &stubHasher{}
	svc := NewIdentityService(newMemIdentityRepo(), hasher, nil)

	_, err := svc.Authenticate(context.Background(), "ghost@example.com", "whatever")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if hasher.verifies != 1 {
		t.Fatalf("expected one dummy verification, got %d", hasher.verifies)
	}
}

func TestAuthenticateUnknownEmailDummyDigestSurvivesFailures(t *testing.T) {
	hasher := &stubHasher{failHashes: 1}
	svc := NewIdentityService(newMemIdentityRepo(), hasher, nil)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Authenticate(cancelled, "ghost@example.com", "whatever"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if svc.dummyDigest != "" {
		t.Fatalf("failed hash must not be cached, got %q", svc.dummyDigest)
	}

	// a cancelled caller context must not prevent the digest from being built
	if _, err := svc.Authenticate(cancelled, "ghost@example.com", "whatever"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if svc.dummyDigest == "" {
		t.Fatalf("expected dummy digest after retry")
	}

	if _, err := svc.Authenticate(context.Background(), "other@example.com", "whatever"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if len(hasher.verified) != 3 || hasher.verified[1] == "" || hasher.verified[2] != hasher.verified[1] {
		t.Fatalf("expected later verifications against one cached digest, got %q", hasher.verified)
	}
}

func TestAuthenticateRateLimited(t *testing.T) {
	store := &countingRateStore{}
	svc := NewIdentityService(newMemIdentityRepo(), &stubHasher{}, nil).
		WithLoginLimit(LoginLimit{Store: store, MaxAttempts: 2, Window: time.Minute})

	for i := 0; i < 2; i++ {
		if _, err := svc.Authenticate(context.Background(), "Asha@Example.com", "x"); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected invalid credentials, got %v", i, err)
		}
	}

	_, err := svc.Authenticate(context.Background(), "asha@example.com", "x")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
}

func TestAuthenticateRateLimitStoreDownFailsOpen(t *testing.T) {
	store := &countingRateStore{err: errors.New("redis down")}
	svc := NewIdentityService(newMemIdentityRepo(), &stubHasher{}, nil).
		WithLoginLimit(LoginLimit{Store: store, MaxAttempts: 1, Window: time.Minute})

	_, err := svc.Authenticate(context.Background(), "asha@example.com", "x")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestProfileNotFound(t *testing.T) {
	svc := NewIdentityService(newMemIdentityRepo(), &stubHasher{}, nil)
	if _, err := svc.Profile(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
