package domain

const (
	DefaultHabitColor = "#00FF00"
	DefaultHabitIcon  = "star"

	// HabitCompletionXP is awarded every time a habit moves to completed.
	HabitCompletionXP = 10
)

// Habit is a user-owned recurring task that can be toggled complete.
type Habit struct {
	ID          string
	UserID      string
	Title       string
	IsCompleted bool
	Color       string
	Icon        string
}

// HabitDraft carries the user-supplied fields of a new habit.
type HabitDraft struct {
	Title       string
	IsCompleted bool
	Color       string
	Icon        string
}

// Build turns the draft into a habit owned by userID, filling in appearance defaults.
func (d HabitDraft) Build(userID string) Habit {
	h := Habit{
		UserID:      userID,
		Title:       d.Title,
		IsCompleted: d.IsCompleted,
		Color:       d.Color,
		Icon:        d.Icon,
	}
	if h.Color == "" {
		h.Color = DefaultHabitColor
	}
	if h.Icon == "" {
		h.Icon = DefaultHabitIcon
	}
	return h
}
