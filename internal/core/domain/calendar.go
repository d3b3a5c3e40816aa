package domain

import "time"

// DateLayout is the ISO calendar date format used as the log key.
const DateLayout = "2006-01-02"

// MaxHistoryDays caps a single history request at roughly ten years of days.
const MaxHistoryDays = 3660

const secondsPerDay = 24 * 60 * 60

// ParseDate parses an ISO calendar date at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatDate renders t's calendar date in its own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysInclusive counts the calendar days from start to end, both included.
// A reversed range has zero days.
func DaysInclusive(start, end time.Time) int {
	if start.After(end) {
		return 0
	}
	// Dates come from ParseDate so both are UTC midnights. Unix seconds avoid
	// the Duration overflow of time.Sub on spans past ~292 years.
	return int((end.Unix()-start.Unix())/secondsPerDay) + 1
}

// EachDay calls fn with every date from start to end inclusive, ascending.
func EachDay(start, end time.Time, fn func(date string)) {
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		fn(FormatDate(d))
	}
}
