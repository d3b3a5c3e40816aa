package domain

import "time"

// UserRegisteredEvent represents the payload for tracker.user.registered messages.
type UserRegisteredEvent struct {
	EventID      string
	UserID       string
	Email        string
	City         string
	RegisteredAt time.Time
}

// HabitCompletedEvent represents the payload for tracker.habit.completed messages.
type HabitCompletedEvent struct {
	EventID     string
	UserID      string
	HabitID     string
	Title       string
	XPAwarded   int
	CompletedAt time.Time
}

// LevelUpEvent represents the payload for tracker.user.level_up messages.
type LevelUpEvent struct {
	EventID   string
	UserID    string
	FromLevel int
	ToLevel   int
	MaxXP     int
	CurrentXP int
	ReachedAt time.Time
}
