package domain

// LogEntry is the owner-free view of a daily log.
type LogEntry struct {
	Date     string
	Steps    int
	WaterMl  int
	ProteinG int
}

// DailyLog is the persisted record of a user's metrics for one calendar date.
// At most one exists per (UserID, Date).
type DailyLog struct {
	ID       string
	UserID   string
	Date     string
	Steps    int
	WaterMl  int
	ProteinG int
}

// Entry strips identifiers from the log.
func (l DailyLog) Entry() LogEntry {
	return LogEntry{Date: l.Date, Steps: l.Steps, WaterMl: l.WaterMl, ProteinG: l.ProteinG}
}

// EmptyLog returns an unpersisted zero-valued log for userID on date.
func EmptyLog(userID, date string) DailyLog {
	return DailyLog{UserID: userID, Date: date}
}

// Validate checks the entry's date and that every metric is non-negative.
func (e LogEntry) Validate() error {
	if _, err := ParseDate(e.Date); err != nil {
		return NewValidationError("date", "must be a YYYY-MM-DD calendar date")
	}
	switch {
	case e.Steps < 0:
		return NewValidationError("steps", "must not be negative")
	case e.WaterMl < 0:
		return NewValidationError("waterMl", "must not be negative")
	case e.ProteinG < 0:
		return NewValidationError("proteinG", "must not be negative")
	}
	return nil
}
