package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/arklim/daily-tracker/internal/core/domain"
	"github.com/arklim/daily-tracker/internal/core/port"
)

type memIdentityRepo struct {
	mu        sync.Mutex
	byID      map[string]domain.Identity
	seq       int
	creates   int
	lookupErr error
	updateErr error
	// beforeUpdate runs once ahead of the next UpdateProgress, outside the lock.
	beforeUpdate func()
}

func newMemIdentityRepo(seed ...domain.Identity) *memIdentityRepo {
	r := &memIdentityRepo{byID: make(map[string]domain.Identity)}
	for _, identity := range seed {
		r.byID[identity.ID] = identity
	}
	return r
}

func (r *memIdentityRepo) Create(_ context.Context, identity domain.Identity) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == identity.Email {
			return "", domain.ErrDuplicateEmail
		}
	}
	r.seq++
	r.creates++
	identity.ID = fmt.Sprintf("user-%d", r.seq)
	r.byID[identity.ID] = identity
	return identity.ID, nil
}

func (r *memIdentityRepo) GetByID(_ context.Context, id string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	identity, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &identity, nil
}

func (r *memIdentityRepo) GetByEmail(_ context.Context, email string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	for _, identity := range r.byID {
		if identity.Email == email {
			identity := identity
			return &identity, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memIdentityRepo) CountByEmail(_ context.Context, email string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, identity := range r.byID {
		if identity.Email == email {
			n++
		}
	}
	return n, nil
}

func (r *memIdentityRepo) UpdateProgress(_ context.Context, id string, expected, progress domain.Progress) error {
	r.mu.Lock()
	if r.beforeUpdate != nil {
		hook := r.beforeUpdate
		r.beforeUpdate = nil
		r.mu.Unlock()
		hook()
		r.mu.Lock()
	}
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	identity, ok := r.byID[id]
	if !ok || identity.Progress() != expected {
		return domain.ErrConflict
	}
	identity.CurrentXP = progress.CurrentXP
	identity.MaxXP = progress.MaxXP
	identity.Level = progress.Level
	r.byID[id] = identity
	return nil
}

type memHabitRepo struct {
	mu     sync.Mutex
	habits map[string]domain.Habit
	order  []string
	seq    int
}

func newMemHabitRepo() *memHabitRepo {
	return &memHabitRepo{habits: make(map[string]domain.Habit)}
}

func (r *memHabitRepo) ValidID(id string) bool {
	return strings.HasPrefix(id, "habit-")
}

func (r *memHabitRepo) List(_ context.Context, userID string) ([]domain.Habit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Habit
	for _, id := range r.order {
		if h := r.habits[id]; h.UserID == userID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *memHabitRepo) Create(_ context.Context, habit domain.Habit) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	habit.ID = fmt.Sprintf("habit-%d", r.seq)
	r.habits[habit.ID] = habit
	r.order = append(r.order, habit.ID)
	return habit.ID, nil
}

func (r *memHabitRepo) GetByID(_ context.Context, userID, habitID string) (*domain.Habit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.habits[habitID]
	if !ok || h.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return &h, nil
}

func (r *memHabitRepo) SetCompleted(_ context.Context, userID, habitID string, completed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.habits[habitID]
	if !ok || h.UserID != userID {
		return domain.ErrNotFound
	}
	h.IsCompleted = completed
	r.habits[habitID] = h
	return nil
}

type memLogRepo struct {
	mu         sync.Mutex
	logs       map[string]domain.DailyLog
	seq        int
	rangeCalls int
}

func newMemLogRepo() *memLogRepo {
	return &memLogRepo{logs: make(map[string]domain.DailyLog)}
}

func logKey(userID, date string) string { return userID + "|" + date }

func (r *memLogRepo) GetByDate(_ context.Context, userID, date string) (*domain.DailyLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[logKey(userID, date)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &l, nil
}

func (r *memLogRepo) ListRange(_ context.Context, userID, start, end string) ([]domain.DailyLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rangeCalls++
	var out []domain.DailyLog
	for _, l := range r.logs {
		if l.UserID == userID && l.Date >= start && l.Date <= end {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (r *memLogRepo) Upsert(_ context.Context, userID string, entry domain.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := logKey(userID, entry.Date)
	l, ok := r.logs[key]
	if !ok {
		r.seq++
		l = domain.DailyLog{ID: fmt.Sprintf("log-%d", r.seq), UserID: userID, Date: entry.Date}
	}
	l.Steps, l.WaterMl, l.ProteinG = entry.Steps, entry.WaterMl, entry.ProteinG
	r.logs[key] = l
	return nil
}

// stubHasher prefixes the password so tests avoid real key derivation.
type stubHasher struct {
	mu         sync.Mutex
	verifies   int
	failHashes int
	verified   []string
}

func (h *stubHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failHashes > 0 {
		h.failHashes--
		return "", errors.New("hash pool busy")
	}
	return "stub$" + password, nil
}

func (h *stubHasher) Verify(_ context.Context, password, encoded string) (bool, error) {
	h.mu.Lock()
	h.verifies++
	h.verified = append(h.verified, encoded)
	h.mu.Unlock()
	return encoded == "stub$"+password, nil
}

type recordingPublisher struct {
	mu         sync.Mutex
	registered []domain.UserRegisteredEvent
	completed  []domain.HabitCompletedEvent
	levelUps   []domain.LevelUpEvent
	err        error
}

func (p *recordingPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered = append(p.registered, event)
	return p.err
}

func (p *recordingPublisher) PublishHabitCompleted(_ context.Context, event domain.HabitCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, event)
	return p.err
}

func (p *recordingPublisher) PublishLevelUp(_ context.Context, event domain.LevelUpEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.levelUps = append(p.levelUps, event)
	return p.err
}

type stubLocker struct {
	held     map[string]bool
	err      error
	acquired []string
	released []string
}

func (l *stubLocker) Acquire(_ context.Context, key string) (func(context.Context) error, error) {
	if l.err != nil {
		return nil, l.err
	}
	if l.held[key] {
		return nil, port.ErrLockHeld
	}
	l.acquired = append(l.acquired, key)
	return func(context.Context) error {
		l.released = append(l.released, key)
		return nil
	}, nil
}

// countingRateStore allows limit attempts per key regardless of window.
type countingRateStore struct {
	attempts map[string]int
	err      error
}

func (s *countingRateStore) Allow(_ context.Context, key string, limit int, window time.Duration, now time.Time) (port.RateDecision, error) {
	if s.err != nil {
		return port.RateDecision{}, s.err
	}
	if s.attempts == nil {
		s.attempts = make(map[string]int)
	}
	if s.attempts[key] >= limit {
		return port.RateDecision{Allowed: false, Limit: limit, RetryAfter: window, ResetAt: now.Add(window)}, nil
	}
	s.attempts[key]++
	return port.RateDecision{Allowed: true, Limit: limit, Remaining: limit - s.attempts[key], ResetAt: now.Add(window)}, nil
}
