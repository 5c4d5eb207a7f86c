package schedule

import (
	"slices"
	"time"

	"groovecal/internal/model"
)

// Input is everything one schedule generation run reads. None of it is
// modified.
type Input struct {
	User   model.User
	Habits []model.Habit
	// Completions are accepted for callers that already load them, but no
	// scheduling decision depends on them yet.
	Completions []model.Completion

	// Start and End are calendar dates in the user's wall-clock time; both
	// are inclusive and only their dates matter. Days are iterated in
	// Start's location.
	Start time.Time
	End   time.Time
}

// Unplaced records a due habit for which no free slot was large enough.
type Unplaced struct {
	HabitID string    `json:"habitId"`
	Date    time.Time `json:"date"`
}

// Result is the outcome of one generation run.
type Result struct {
	// Events are ordered by day, then by placement order within the day.
	Events   []model.ScheduledEvent
	Unplaced []Unplaced
}

// Generate builds the schedule for every day from in.Start to in.End.
//
// For each day it keeps the active habits that are due (recurrence is
// anchored at in.Start), orders them by priority with ties kept in input
// order, and places them greedily into that day's free slots. An empty
// habit list or an End before Start yields an empty result.
func Generate(in Input) Result {
	result := Result{Events: []model.ScheduledEvent{}}

	active := make([]model.Habit, 0, len(in.Habits))
	for _, h := range in.Habits {
		if h.Active {
			active = append(active, h)
		}
	}
	if len(active) == 0 {
		return result
	}

	loc := in.Start.Location()
	anchor := dateOf(in.Start, loc)
	last := dateOf(in.End, loc)

	for day := anchor; !day.After(last); day = day.AddDate(0, 0, 1) {
		due := dueOn(active, day, anchor)
		if len(due) == 0 {
			continue
		}

		events, skipped := Allocate(day, due, FreeSlots(in.User.WorkHours, day))
		result.Events = append(result.Events, events...)
		for _, h := range skipped {
			result.Unplaced = append(result.Unplaced, Unplaced{HabitID: h.ID, Date: day})
		}
	}

	return result
}

// dueOn returns the habits due on day, highest priority first.
func dueOn(habits []model.Habit, day, anchor time.Time) []model.Habit {
	var due []model.Habit
	for _, h := range habits {
		if IsDue(h.Frequency, day, anchor) {
			due = append(due, h)
		}
	}
	slices.SortStableFunc(due, func(a, b model.Habit) int {
		return b.Priority.Weight() - a.Priority.Weight()
	})
	return due
}

// dateOf returns midnight of t's calendar date in loc, without converting t.
func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
