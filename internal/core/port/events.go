package port

import (
	"context"

	"github.com/arklim/daily-tracker/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishHabitCompleted(ctx context.Context, event domain.HabitCompletedEvent) error
	PublishLevelUp(ctx context.Context, event domain.LevelUpEvent) error
}
