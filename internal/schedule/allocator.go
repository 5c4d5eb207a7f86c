package schedule

import (
	"slices"
	"time"

	"groovecal/internal/model"
)

// preferredTimes lists, per category, the clock times the allocator tries
// before falling back to first-fit.
var preferredTimes = map[model.Category][]string{
	model.CategoryActivities:       {"07:00", "18:00", "19:00"},
	model.CategoryPeople:           {"19:00", "20:00", "12:00"},
	model.CategoryResponsibilities: {"09:00", "10:00", "14:00"},
}

var defaultPreferredTimes = []string{"09:00", "14:00", "19:00"}

// PreferredTimes returns the preferred start times for category, most
// preferred first.
func PreferredTimes(category model.Category) []string {
	if times, ok := preferredTimes[category]; ok {
		return times
	}
	return defaultPreferredTimes
}

// Allocator places habits into the free slots of a single day. It owns its
// slot list; each placement shrinks or splits one slot in place. An
// Allocator must not be shared between days or goroutines.
type Allocator struct {
	date  time.Time
	slots []model.TimeSlot
}

// NewAllocator returns an allocator for date over a private copy of slots.
func NewAllocator(date time.Time, slots []model.TimeSlot) *Allocator {
	return &Allocator{
		date:  date,
		slots: slices.Clone(slots),
	}
}

// Free returns a copy of the slots that are still unused.
func (a *Allocator) Free() []model.TimeSlot {
	return slices.Clone(a.slots)
}

// Place tries to schedule h on the allocator's day.
//
// It first tries the category's preferred start times in order, taking the
// first slot that contains the time and still has h.Duration minutes left
// after it. If none fits, the first slot long enough for h is used from its
// start. Placement never moves an earlier event. It reports false when no
// slot has room.
func (a *Allocator) Place(h model.Habit) (model.ScheduledEvent, bool) {
	need := time.Duration(h.Duration) * time.Minute
	if need <= 0 {
		return model.ScheduledEvent{}, false
	}

	for _, clock := range PreferredTimes(h.Category) {
		start := At(a.date, clock)
		for i, slot := range a.slots {
			if slot.Contains(start) && !start.Add(need).After(slot.End) {
				return a.take(i, h, start, start.Add(need)), true
			}
		}
	}

	for i, slot := range a.slots {
		if slot.End.Sub(slot.Start) >= need {
			return a.take(i, h, slot.Start, slot.Start.Add(need)), true
		}
	}

	return model.ScheduledEvent{}, false
}

// take records an event in slot i and replaces the slot with whatever is
// left before and after it, keeping list order.
func (a *Allocator) take(i int, h model.Habit, start, end time.Time) model.ScheduledEvent {
	slot := a.slots[i]

	rest := make([]model.TimeSlot, 0, 2)
	if start.After(slot.Start) {
		rest = append(rest, model.TimeSlot{Start: slot.Start, End: start})
	}
	if end.Before(slot.End) {
		rest = append(rest, model.TimeSlot{Start: end, End: slot.End})
	}
	a.slots = slices.Replace(a.slots, i, i+1, rest...)

	return model.ScheduledEvent{
		HabitID:   h.ID,
		HabitName: h.Name,
		Category:  h.Category,
		Priority:  h.Priority,
		Start:     start,
		End:       end,
		Duration:  h.Duration,
	}
}

// Allocate places habits in the given order into slots on date. It returns
// the placed events and the habits that did not fit.
func Allocate(date time.Time, habits []model.Habit, slots []model.TimeSlot) ([]model.ScheduledEvent, []model.Habit) {
	a := NewAllocator(date, slots)

	events := make([]model.ScheduledEvent, 0, len(habits))
	var skipped []model.Habit
	for _, h := range habits {
		ev, ok := a.Place(h)
		if !ok {
			skipped = append(skipped, h)
			continue
		}
		events = append(events, ev)
	}
	return events, skipped
}
