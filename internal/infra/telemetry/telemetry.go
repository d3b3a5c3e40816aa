package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arklim/daily-tracker/internal/core/domain"
	"github.com/arklim/daily-tracker/internal/core/port"
)

// EventMetrics counts domain events by type and publish outcome.
type EventMetrics struct {
	published *prometheus.CounterVec
	xpAwarded prometheus.Counter
}

// NewEventMetrics registers the event collectors with reg, reusing collectors
// that are already registered under the same name.
func NewEventMetrics(reg prometheus.Registerer) (*EventMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracker",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Domain events handed to the publisher, by event type and outcome.",
	}, []string{"event", "outcome"})
	if err := reg.Register(published); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, fmt.Errorf("register events collector: %w", err)
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("existing events collector has unexpected type %T", already.ExistingCollector)
		}
		published = existing
	}

	xp := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tracker",
		Subsystem: "gamification",
		Name:      "xp_awarded_total",
		Help:      "Experience points awarded for habit completions.",
	})
	if err := reg.Register(xp); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, fmt.Errorf("register xp collector: %w", err)
		}
		existing, ok := already.ExistingCollector.(prometheus.Counter)
		if !ok {
			return nil, fmt.Errorf("existing xp collector has unexpected type %T", already.ExistingCollector)
		}
		xp = existing
	}

	return &EventMetrics{published: published, xpAwarded: xp}, nil
}

func (m *EventMetrics) observe(event string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.published.WithLabelValues(event, outcome).Inc()
}

// InstrumentedPublisher decorates a port.EventPublisher with EventMetrics.
type InstrumentedPublisher struct {
	next    port.EventPublisher
	metrics *EventMetrics
}

func NewInstrumentedPublisher(next port.EventPublisher, metrics *EventMetrics) *InstrumentedPublisher {
	return &InstrumentedPublisher{next: next, metrics: metrics}
}

func (p *InstrumentedPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	err := p.next.PublishUserRegistered(ctx, event)
	p.metrics.observe("user_registered", err)
	return err
}

func (p *InstrumentedPublisher) PublishHabitCompleted(ctx context.Context, event domain.HabitCompletedEvent) error {
	err := p.next.PublishHabitCompleted(ctx, event)
	p.metrics.observe("habit_completed", err)
	p.metrics.xpAwarded.Add(float64(event.XPAwarded))
	return err
}

func (p *InstrumentedPublisher) PublishLevelUp(ctx context.Context, event domain.LevelUpEvent) error {
	err := p.next.PublishLevelUp(ctx, event)
	p.metrics.observe("level_up", err)
	return err
}

var _ port.EventPublisher = (*InstrumentedPublisher)(nil)
