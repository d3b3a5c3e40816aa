package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/daily-tracker/internal/core/domain"
	"github.com/arklim/daily-tracker/internal/core/port"
	"github.com/arklim/daily-tracker/internal/infra/logger"
)

// maxProgressAttempts bounds how often AwardXP re-reads progress after losing a
// concurrent update for the same identity.
const maxProgressAttempts = 5

// GamificationEngine applies XP awards and level-ups to identities.
type GamificationEngine struct {
	identities port.IdentityRepository
	events     port.EventPublisher
	logger     *zap.Logger
	now        func() time.Time
}

func NewGamificationEngine(identities port.IdentityRepository) *GamificationEngine {
	return &GamificationEngine{
		identities: identities,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
}

func (g *GamificationEngine) WithEventPublisher(events port.EventPublisher) *GamificationEngine {
	g.events = events
	return g
}

func (g *GamificationEngine) WithLogger(log *zap.Logger) *GamificationEngine {
	if log != nil {
		g.logger = log
	}
	return g
}

func (g *GamificationEngine) WithClock(now func() time.Time) *GamificationEngine {
	if now != nil {
		g.now = now
	}
	return g
}

// AwardXP adds amount XP to the identity and persists the resulting progress.
// An unknown identity is a no-op and returns a zero LevelChange.
func (g *GamificationEngine) AwardXP(ctx context.Context, identityID string, amount int) (domain.LevelChange, error) {
	if amount < 0 {
		return domain.LevelChange{}, domain.NewValidationError("amount", "must not be negative")
	}

	var (
		change  domain.LevelChange
		applied bool
	)
	for attempt := 0; attempt < maxProgressAttempts && !applied; attempt++ {
		identity, err := g.identities.GetByID(ctx, identityID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.LevelChange{}, nil
			}
			return domain.LevelChange{}, fmt.Errorf("load identity: %w", err)
		}

		before := identity.Progress()
		after, gained := before.Gain(amount)

		err = g.identities.UpdateProgress(ctx, identity.ID, before, after)
		switch {
		case err == nil:
			change = domain.LevelChange{Before: before, After: after, Gained: gained}
			applied = true
		case errors.Is(err, domain.ErrConflict):
			// another award moved the counters; reload and reapply
		default:
			return domain.LevelChange{}, fmt.Errorf("update progress: %w", err)
		}
	}
	if !applied {
		return domain.LevelChange{}, fmt.Errorf("update progress: %w", domain.ErrConflict)
	}

	if change.LeveledUp() {
		log := logger.WithContext(ctx, g.logger)
		log.Info("identity leveled up",
			zap.String("user_id", identityID),
			zap.Int("from_level", change.Before.Level),
			zap.Int("to_level", change.After.Level),
		)
		if g.events != nil {
			event := domain.LevelUpEvent{
				EventID:   uuid.NewString(),
				UserID:    identityID,
				FromLevel: change.Before.Level,
				ToLevel:   change.After.Level,
				MaxXP:     change.After.MaxXP,
				CurrentXP: change.After.CurrentXP,
				ReachedAt: g.now().UTC(),
			}
			if err := g.events.PublishLevelUp(ctx, event); err != nil {
				log.Warn("failed to publish level up event", zap.Error(err))
			}
		}
	}

	return change, nil
}
