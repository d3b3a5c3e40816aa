package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/daily-tracker/internal/core/domain"
	"github.com/arklim/daily-tracker/internal/core/port"
	"github.com/arklim/daily-tracker/internal/infra/logger"
)

// RegistrationInput carries the candidate identity submitted at sign-up.
type RegistrationInput struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Mobile    string `json:"mobile" validate:"required,len=10,number"`
	City      string `json:"city" validate:"max=100"`
	DOB       string `json:"dob" validate:"max=32"`
	Password  string `json:"password" validate:"required,min=8"`
}

// LoginLimit configures the per-email sliding window applied to Authenticate.
type LoginLimit struct {
	Store       port.RateLimitStore
	MaxAttempts int
	Window      time.Duration
}

// IdentityService registers and authenticates identities.
type IdentityService struct {
	identities port.IdentityRepository
	hasher     port.PasswordHasher
	policy     port.PasswordPolicyValidator
	events     port.EventPublisher
	limit      LoginLimit
	logger     *zap.Logger
	now        func() time.Time

	dummyMu     sync.Mutex
	dummyDigest string
}

func NewIdentityService(identities port.IdentityRepository, hasher port.PasswordHasher, policy port.PasswordPolicyValidator) *IdentityService {
	return &IdentityService{
		identities: identities,
		hasher:     hasher,
		policy:     policy,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
}

func (s *IdentityService) WithEventPublisher(events port.EventPublisher) *IdentityService {
	s.events = events
	return s
}

func (s *IdentityService) WithLoginLimit(limit LoginLimit) *IdentityService {
	s.limit = limit
	return s
}

func (s *IdentityService) WithLogger(log *zap.Logger) *IdentityService {
	if log != nil {
		s.logger = log
	}
	return s
}

func (s *IdentityService) WithClock(now func() time.Time) *IdentityService {
	if now != nil {
		s.now = now
	}
	return s
}

// Register creates a new identity with default progress and returns the stored record.
func (s *IdentityService) Register(ctx context.Context, in RegistrationInput) (domain.Identity, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Mobile = strings.TrimSpace(in.Mobile)

	if in.Email != "" {
		if _, err := s.identities.GetByEmail(ctx, in.Email); err == nil {
			return domain.Identity{}, domain.ErrDuplicateEmail
		} else if !errors.Is(err, domain.ErrNotFound) {
			return domain.Identity{}, fmt.Errorf("lookup identity: %w", err)
		}
	}

	if err := validateStruct(in); err != nil {
		return domain.Identity{}, err
	}
	if s.policy != nil {
		if err := s.policy.Validate(in.Password, in.Email, in.FirstName, in.LastName); err != nil {
			return domain.Identity{}, err
		}
	}

	digest, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("hash password: %w", err)
	}

	candidate := domain.NewIdentity(in.FirstName, in.LastName, in.Email, in.Mobile, in.City, in.DOB, digest, s.now().UTC())

	id, err := s.identities.Create(ctx, candidate)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return domain.Identity{}, domain.ErrDuplicateEmail
		}
		return domain.Identity{}, fmt.Errorf("create identity: %w", err)
	}

	stored, err := s.identities.GetByID(ctx, id)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("reload identity: %w", err)
	}

	log := logger.WithContext(ctx, s.logger)
	log.Info("identity registered",
		zap.String("user_id", stored.ID),
		zap.String("email", logger.MaskEmail(stored.Email)),
		zap.String("mobile", logger.MaskMobile(stored.Mobile)),
	)

	if s.events != nil {
		event := domain.UserRegisteredEvent{
			EventID:      uuid.NewString(),
			UserID:       stored.ID,
			Email:        stored.Email,
			City:         stored.City,
			RegisteredAt: stored.CreatedAt,
		}
		if err := s.events.PublishUserRegistered(ctx, event); err != nil {
			log.Warn("failed to publish user registered event", zap.Error(err))
		}
	}

	return *stored, nil
}

// Authenticate returns the identity for valid credentials. Unknown emails, wrong
// passwords and disabled accounts all yield domain.ErrInvalidCredentials.
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (domain.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.Identity{}, domain.ErrInvalidCredentials
	}

	if err := s.checkLoginLimit(ctx, email); err != nil {
		return domain.Identity{}, err
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// burn the same hashing cost as a real comparison
			_, _ = s.hasher.Verify(ctx, password, s.dummy(ctx))
			return domain.Identity{}, domain.ErrInvalidCredentials
		}
		return domain.Identity{}, fmt.Errorf("lookup identity: %w", err)
	}

	ok, err := s.hasher.Verify(ctx, password, identity.PasswordHash)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok || identity.Disabled {
		return domain.Identity{}, domain.ErrInvalidCredentials
	}

	return *identity, nil
}

// Profile loads an identity by id.
func (s *IdentityService) Profile(ctx context.Context, id string) (domain.Identity, error) {
	identity, err := s.identities.GetByID(ctx, id)
	if err != nil {
		return domain.Identity{}, err
	}
	return *identity, nil
}

func (s *IdentityService) checkLoginLimit(ctx context.Context, email string) error {
	if s.limit.Store == nil || s.limit.MaxAttempts <= 0 || s.limit.Window <= 0 {
		return nil
	}

	decision, err := s.limit.Store.Allow(ctx, "login:"+strings.ToLower(email), s.limit.MaxAttempts, s.limit.Window, s.now())
	if err != nil {
		logger.WithContext(ctx, s.logger).Warn("login rate limit check failed", zap.Error(err))
		return nil
	}
	if !decision.Allowed {
		return domain.ErrRateLimited
	}
	return nil
}

// dummy returns the digest compared against for unknown emails. A failed hash
// is not cached, so the next unknown-email login tries again.
func (s *IdentityService) dummy(ctx context.Context) string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()

	if s.dummyDigest != "" {
		return s.dummyDigest
	}
	digest, err := s.hasher.Hash(context.WithoutCancel(ctx), uuid.NewString())
	if err != nil {
		logger.WithContext(ctx, s.logger).Warn("dummy digest unavailable", zap.Error(err))
		return ""
	}
	s.dummyDigest = digest
	return digest
}
