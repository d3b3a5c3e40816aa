package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/daily-tracker/internal/core/domain"
	"github.com/arklim/daily-tracker/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, fields ...zap.Field) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		append([]zap.Field{
			zap.String("event_type", eventType),
			zap.String("user_id", userID),
			zap.Time("timestamp", at.UTC()),
		}, fields...)...,
	)
}

func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.logEvent(EventUserRegistered, event.UserID, event.RegisteredAt,
		zap.String("city", event.City),
	)
	return nil
}

func (p *StubPublisher) PublishHabitCompleted(_ context.Context, event domain.HabitCompletedEvent) error {
	p.logEvent(EventHabitCompleted, event.UserID, event.CompletedAt,
		zap.String("habit_id", event.HabitID),
		zap.Int("xp_awarded", event.XPAwarded),
	)
	return nil
}

func (p *StubPublisher) PublishLevelUp(_ context.Context, event domain.LevelUpEvent) error {
	p.logEvent(EventLevelUp, event.UserID, event.ReachedAt,
		zap.Int("from_level", event.FromLevel),
		zap.Int("to_level", event.ToLevel),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
