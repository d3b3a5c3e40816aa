package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/daily-tracker/internal/core/domain"
	"github.com/arklim/daily-tracker/internal/core/port"
	"github.com/arklim/daily-tracker/internal/infra/config"
)

const schemaVersion = "1.0"

// Event types, prefixed with the configured topic prefix on the wire.
const (
	EventUserRegistered = "user.registered"
	EventHabitCompleted = "habit.completed"
	EventLevelUp        = "user.level_up"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}

	metadata := map[string]string{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	bytes, err := json.Marshal(eventEnvelope{
		EventID:   eventID,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(userID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	payload := struct {
		UserID       string    `json:"user_id"`
		Email        string    `json:"email"`
		City         string    `json:"city,omitempty"`
		RegisteredAt time.Time `json:"registered_at"`
	}{
		UserID:       event.UserID,
		Email:        event.Email,
		City:         event.City,
		RegisteredAt: event.RegisteredAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventUserRegistered, event.UserID, event.RegisteredAt, payload)
}

func (p *EventPublisher) PublishHabitCompleted(ctx context.Context, event domain.HabitCompletedEvent) error {
	payload := struct {
		UserID      string    `json:"user_id"`
		HabitID     string    `json:"habit_id"`
		Title       string    `json:"title"`
		XPAwarded   int       `json:"xp_awarded"`
		CompletedAt time.Time `json:"completed_at"`
	}{
		UserID:      event.UserID,
		HabitID:     event.HabitID,
		Title:       event.Title,
		XPAwarded:   event.XPAwarded,
		CompletedAt: event.CompletedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventHabitCompleted, event.UserID, event.CompletedAt, payload)
}

func (p *EventPublisher) PublishLevelUp(ctx context.Context, event domain.LevelUpEvent) error {
	payload := struct {
		UserID    string    `json:"user_id"`
		FromLevel int       `json:"from_level"`
		ToLevel   int       `json:"to_level"`
		CurrentXP int       `json:"current_xp"`
		MaxXP     int       `json:"max_xp"`
		ReachedAt time.Time `json:"reached_at"`
	}{
		UserID:    event.UserID,
		FromLevel: event.FromLevel,
		ToLevel:   event.ToLevel,
		CurrentXP: event.CurrentXP,
		MaxXP:     event.MaxXP,
		ReachedAt: event.ReachedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventLevelUp, event.UserID, event.ReachedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
