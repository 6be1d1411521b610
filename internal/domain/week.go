package domain

import "time"

// DateFormat is how posting dates and week starts are stored and exported.
const DateFormat = "2006-01-02"

// WeekStart truncates t to the Monday of its ISO week, at UTC midnight.
// All components bucket weeks through this function so that aggregation,
// scoring and exports agree on boundaries.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7 // Monday = 0
	t = t.AddDate(0, 0, -offset)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
