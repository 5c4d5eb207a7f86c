package schedule

import (
	"time"

	"groovecal/internal/model"
)

// Bounds of the schedulable part of every day, and the lunch break that is
// carved out of a work window when the window covers it.
const (
	DayStart   = "06:00"
	DayEnd     = "22:00"
	LunchStart = "12:00"
	LunchEnd   = "13:00"
)

// FreeSlots returns the free windows of date in chronological order, all
// within [06:00, 22:00).
//
// Without a work window for date's weekday the whole bound is free.
// Otherwise the free windows are the morning before work, the lunch hour
// (only if the work window fully contains it) and the evening after work.
// Work windows reaching past the bound are clipped to it. Empty windows
// are dropped. A malformed or inverted work window is treated
// as absent.
func FreeSlots(wh *model.WorkHours, date time.Time) []model.TimeSlot {
	dayStart := At(date, DayStart)
	dayEnd := At(date, DayEnd)

	hours := wh.For(date.Weekday())
	if hours == nil {
		return []model.TimeSlot{{Start: dayStart, End: dayEnd}}
	}

	workStart, okStart := clockAt(date, hours.Start)
	workEnd, okEnd := clockAt(date, hours.End)
	if !okStart || !okEnd || !workEnd.After(workStart) {
		return []model.TimeSlot{{Start: dayStart, End: dayEnd}}
	}

	workStart = clamp(workStart, dayStart, dayEnd)
	workEnd = clamp(workEnd, dayStart, dayEnd)

	slots := make([]model.TimeSlot, 0, 3)

	if workStart.After(dayStart) {
		slots = appendSlot(slots, dayStart, workStart)
	}

	lunchStart := At(date, LunchStart)
	lunchEnd := At(date, LunchEnd)
	if !workStart.After(lunchStart) && !workEnd.Before(lunchEnd) {
		slots = appendSlot(slots, lunchStart, lunchEnd)
	}

	if workEnd.Before(dayEnd) {
		slots = appendSlot(slots, workEnd, dayEnd)
	}

	return slots
}

func clamp(t, lo, hi time.Time) time.Time {
	if t.Before(lo) {
		return lo
	}
	if t.After(hi) {
		return hi
	}
	return t
}

func appendSlot(slots []model.TimeSlot, start, end time.Time) []model.TimeSlot {
	if !end.After(start) {
		return slots
	}
	return append(slots, model.TimeSlot{Start: start, End: end})
}

// At returns the wall-clock instant "HH:MM" on date's calendar day, in
// date's location. clock must be well formed; use clockAt for untrusted
// input.
func At(date time.Time, clock string) time.Time {
	t, _ := clockAt(date, clock)
	return t
}

func clockAt(date time.Time, clock string) (time.Time, bool) {
	h, m, ok := parseClock(clock)
	y, mo, d := date.Date()
	if !ok {
		return time.Date(y, mo, d, 0, 0, 0, 0, date.Location()), false
	}
	return time.Date(y, mo, d, h, m, 0, 0, date.Location()), true
}

// parseClock parses a strict "HH:MM" 24-hour string.
func parseClock(s string) (hour, minute int, ok bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, 0, false
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, 0, false
		}
	}
	hour = int(s[0]-'0')*10 + int(s[1]-'0')
	minute = int(s[3]-'0')*10 + int(s[4]-'0')
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}
