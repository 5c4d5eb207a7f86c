package schedule

import (
	"slices"
	"time"

	"groovecal/internal/model"
)

// IsDue reports whether a habit with the given recurrence rule is due on
// date, counting from anchor (the first day of the generation window).
//
// Only the calendar date of date and anchor matters; times of day and
// DST transitions are ignored. Dates before the anchor are never due.
// Unknown rule types are never due.
func IsDue(rule model.Frequency, date, anchor time.Time) bool {
	days := daysBetween(anchor, date)
	if days < 0 {
		return false
	}

	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}

	switch rule.Type {
	case model.FrequencyDaily, model.FrequencyCustom:
		return days%interval == 0

	case model.FrequencyWeekly:
		if !slices.Contains(rule.Weekdays, int(date.Weekday())) {
			return false
		}
		// Weeks are counted from the anchor, not from calendar week starts.
		return (days/7)%interval == 0

	case model.FrequencyMonthly:
		target := min(anchor.Day(), daysIn(date.Year(), date.Month()))
		if date.Day() != target {
			return false
		}
		months := (date.Year()-anchor.Year())*12 + int(date.Month()-anchor.Month())
		return months%interval == 0

	default:
		return false
	}
}

// daysBetween returns the number of whole calendar days from a to b.
func daysBetween(a, b time.Time) int {
	ca := civil(a)
	cb := civil(b)
	return int(cb.Sub(ca).Hours() / 24)
}

// civil maps t to midnight UTC of its own wall-clock date.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
