package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/daily-tracker/internal/core/domain"
	"github.com/arklim/daily-tracker/internal/core/port"
	"github.com/arklim/daily-tracker/internal/infra/logger"
)

// XPAwarder grants experience points to an identity.
type XPAwarder interface {
	AwardXP(ctx context.Context, identityID string, amount int) (domain.LevelChange, error)
}

// TrackerService manages habits and daily logs for an authenticated user.
type TrackerService struct {
	habits   port.HabitRepository
	logs     port.LogRepository
	awarder  XPAwarder
	locker   port.HabitLocker
	events   port.EventPublisher
	logger   *zap.Logger
	now      func() time.Time
	location *time.Location
}

func NewTrackerService(habits port.HabitRepository, logs port.LogRepository, awarder XPAwarder) *TrackerService {
	return &TrackerService{
		habits:   habits,
		logs:     logs,
		awarder:  awarder,
		logger:   zap.NewNop(),
		now:      time.Now,
		location: time.Local,
	}
}

func (s *TrackerService) WithLocker(locker port.HabitLocker) *TrackerService {
	s.locker = locker
	return s
}

func (s *TrackerService) WithEventPublisher(events port.EventPublisher) *TrackerService {
	s.events = events
	return s
}

func (s *TrackerService) WithLogger(log *zap.Logger) *TrackerService {
	if log != nil {
		s.logger = log
	}
	return s
}

func (s *TrackerService) WithClock(now func() time.Time) *TrackerService {
	if now != nil {
		s.now = now
	}
	return s
}

// WithLocation sets the zone used to decide what "today" is.
func (s *TrackerService) WithLocation(loc *time.Location) *TrackerService {
	if loc != nil {
		s.location = loc
	}
	return s
}

func (s *TrackerService) GetHabits(ctx context.Context, userID string) ([]domain.Habit, error) {
	habits, err := s.habits.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	if habits == nil {
		habits = []domain.Habit{}
	}
	return habits, nil
}

func (s *TrackerService) CreateHabit(ctx context.Context, userID string, draft domain.HabitDraft) (domain.Habit, error) {
	draft.Title = strings.TrimSpace(draft.Title)
	if draft.Title == "" {
		return domain.Habit{}, domain.NewValidationError("title", "is required")
	}

	id, err := s.habits.Create(ctx, draft.Build(userID))
	if err != nil {
		return domain.Habit{}, fmt.Errorf("create habit: %w", err)
	}

	stored, err := s.habits.GetByID(ctx, userID, id)
	if err != nil {
		return domain.Habit{}, fmt.Errorf("reload habit: %w", err)
	}
	return *stored, nil
}

// ToggleHabit flips the habit's completion flag. Moving to completed awards
// HabitCompletionXP; moving back to incomplete never removes XP.
func (s *TrackerService) ToggleHabit(ctx context.Context, userID, habitID string) (domain.Habit, error) {
	if !s.habits.ValidID(habitID) {
		return domain.Habit{}, domain.ErrInvalidID
	}

	log := logger.WithContext(ctx, s.logger).With(zap.String("user_id", userID), zap.String("habit_id", habitID))

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, habitID)
		switch {
		case errors.Is(err, port.ErrLockHeld):
			return domain.Habit{}, domain.ErrConflict
		case err != nil:
			log.Warn("habit lock unavailable, toggling without lock", zap.Error(err))
		default:
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					log.Warn("failed to release habit lock", zap.Error(err))
				}
			}()
		}
	}

	habit, err := s.habits.GetByID(ctx, userID, habitID)
	if err != nil {
		return domain.Habit{}, err
	}

	completed := !habit.IsCompleted
	if err := s.habits.SetCompleted(ctx, userID, habitID, completed); err != nil {
		return domain.Habit{}, fmt.Errorf("update habit: %w", err)
	}

	if completed {
		if _, err := s.awarder.AwardXP(ctx, userID, domain.HabitCompletionXP); err != nil {
			return domain.Habit{}, fmt.Errorf("award xp: %w", err)
		}
		if s.events != nil {
			event := domain.HabitCompletedEvent{
				EventID:     uuid.NewString(),
				UserID:      userID,
				HabitID:     habitID,
				Title:       habit.Title,
				XPAwarded:   domain.HabitCompletionXP,
				CompletedAt: s.now().UTC(),
			}
			if err := s.events.PublishHabitCompleted(ctx, event); err != nil {
				log.Warn("failed to publish habit completed event", zap.Error(err))
			}
		}
	}

	updated, err := s.habits.GetByID(ctx, userID, habitID)
	if err != nil {
		return domain.Habit{}, fmt.Errorf("reload habit: %w", err)
	}
	return *updated, nil
}

// SyncLog stores entry as the user's log for entry.Date, replacing any previous values.
func (s *TrackerService) SyncLog(ctx context.Context, userID string, entry domain.LogEntry) (domain.DailyLog, error) {
	if err := entry.Validate(); err != nil {
		return domain.DailyLog{}, err
	}

	if err := s.logs.Upsert(ctx, userID, entry); err != nil {
		return domain.DailyLog{}, fmt.Errorf("upsert log: %w", err)
	}

	stored, err := s.logs.GetByDate(ctx, userID, entry.Date)
	if err != nil {
		return domain.DailyLog{}, fmt.Errorf("reload log: %w", err)
	}
	return *stored, nil
}

// GetTodayLog returns today's log, or an unpersisted zero log when none exists.
func (s *TrackerService) GetTodayLog(ctx context.Context, userID string) (domain.DailyLog, error) {
	today := domain.FormatDate(s.now().In(s.location))

	stored, err := s.logs.GetByDate(ctx, userID, today)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.EmptyLog(userID, today), nil
		}
		return domain.DailyLog{}, fmt.Errorf("load today log: %w", err)
	}
	return *stored, nil
}

// GetLogHistory returns one entry per date in [start, end], filling missing
// days with zero metrics. A reversed range yields an empty slice.
func (s *TrackerService) GetLogHistory(ctx context.Context, userID, start, end string) ([]domain.LogEntry, error) {
	from, err := domain.ParseDate(start)
	if err != nil {
		return nil, domain.NewValidationError("start_date", "must be a YYYY-MM-DD calendar date")
	}
	to, err := domain.ParseDate(end)
	if err != nil {
		return nil, domain.NewValidationError("end_date", "must be a YYYY-MM-DD calendar date")
	}

	days := domain.DaysInclusive(from, to)
	if days == 0 {
		return []domain.LogEntry{}, nil
	}
	if days > domain.MaxHistoryDays {
		return nil, domain.NewValidationError("end_date", fmt.Sprintf("range must not exceed %d days", domain.MaxHistoryDays))
	}

	stored, err := s.logs.ListRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}

	byDate := make(map[string]domain.LogEntry, len(stored))
	for _, l := range stored {
		byDate[l.Date] = l.Entry()
	}

	history := make([]domain.LogEntry, 0, days)
	domain.EachDay(from, to, func(date string) {
		if entry, ok := byDate[date]; ok {
			history = append(history, entry)
			return
		}
		history = append(history, domain.LogEntry{Date: date})
	})
	return history, nil
}
