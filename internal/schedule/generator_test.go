package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groovecal/internal/model"
)

func TestGenerate_EmptyHabits(t *testing.T) {
	res := Generate(Input{Start: monday, End: monday.AddDate(0, 0, 6)})
	require.NotNil(t, res.Events)
	assert.Empty(t, res.Events)
	assert.Empty(t, res.Unplaced)
}

func TestGenerate_EndBeforeStart(t *testing.T) {
	res := Generate(Input{
		Habits: []model.Habit{habit("a", model.CategoryActivities, model.PriorityHigh, 30)},
		Start:  monday,
		End:    monday.AddDate(0, 0, -1),
	})
	assert.Empty(t, res.Events)
}

func TestGenerate_SingleDay(t *testing.T) {
	res := Generate(Input{
		Habits: []model.Habit{habit("run", model.CategoryActivities, model.PriorityHigh, 30)},
		Start:  monday,
		End:    monday,
	})
	require.Len(t, res.Events, 1)
	assert.Equal(t, At(monday, "07:00"), res.Events[0].Start)
	assert.Equal(t, At(monday, "07:30"), res.Events[0].End)
}

func TestGenerate_SkipsInactiveHabits(t *testing.T) {
	off := habit("off", model.CategoryActivities, model.PriorityHigh, 30)
	off.Active = false

	res := Generate(Input{
		Habits: []model.Habit{off},
		Start:  monday,
		End:    monday.AddDate(0, 0, 2),
	})
	assert.Empty(t, res.Events)
}

func TestGenerate_HigherPriorityPlacedFirst(t *testing.T) {
	res := Generate(Input{
		Habits: []model.Habit{
			habit("low", model.CategoryActivities, model.PriorityLow, 30),
			habit("high", model.CategoryActivities, model.PriorityHigh, 30),
		},
		Start: monday,
		End:   monday,
	})
	require.Len(t, res.Events, 2)

	assert.Equal(t, "high", res.Events[0].HabitID)
	assert.Equal(t, At(monday, "07:00"), res.Events[0].Start)

	// 07:00 is taken; 18:00 is the next preferred time.
	assert.Equal(t, "low", res.Events[1].HabitID)
	assert.Equal(t, At(monday, "18:00"), res.Events[1].Start)
}

func TestGenerate_TiesKeepInputOrder(t *testing.T) {
	res := Generate(Input{
		Habits: []model.Habit{
			habit("first", model.CategoryActivities, model.PriorityMedium, 30),
			habit("second", model.CategoryActivities, model.PriorityMedium, 30),
			habit("third", model.CategoryActivities, model.PriorityMedium, 30),
		},
		Start: monday,
		End:   monday,
	})
	require.Len(t, res.Events, 3)
	assert.Equal(t, "first", res.Events[0].HabitID)
	assert.Equal(t, "second", res.Events[1].HabitID)
	assert.Equal(t, "third", res.Events[2].HabitID)
	assert.Equal(t, At(monday, "19:00"), res.Events[2].Start)
}

func TestGenerate_OrderedByDay(t *testing.T) {
	everyOther := habit("alt", model.CategoryResponsibilities, model.PriorityLow, 60)
	everyOther.Frequency = model.Frequency{Type: model.FrequencyDaily, Interval: 2}

	res := Generate(Input{
		Habits: []model.Habit{
			everyOther,
			habit("daily", model.CategoryActivities, model.PriorityHigh, 30),
		},
		Start: monday,
		End:   monday.AddDate(0, 0, 3),
	})

	var ids []string
	for _, ev := range res.Events {
		ids = append(ids, ev.HabitID)
	}
	assert.Equal(t, []string{"daily", "alt", "daily", "daily", "alt", "daily"}, ids)

	for i := 1; i < len(res.Events); i++ {
		prev, cur := res.Events[i-1].Start, res.Events[i].Start
		if prev.YearDay() != cur.YearDay() {
			assert.True(t, cur.After(prev))
		}
	}
}

func TestGenerate_WeeklyOverAWeek(t *testing.T) {
	h := habit("gym", model.CategoryActivities, model.PriorityHigh, 60)
	h.Frequency = model.Frequency{Type: model.FrequencyWeekly, Interval: 1, Weekdays: []int{1, 3, 5}}

	res := Generate(Input{
		User:   model.User{WorkHours: mondayHours("09:00", "17:00")},
		Habits: []model.Habit{h},
		Start:  monday,
		End:    monday.AddDate(0, 0, 6),
	})
	require.Len(t, res.Events, 3)
	assert.Equal(t, time.Monday, res.Events[0].Start.Weekday())
	assert.Equal(t, time.Wednesday, res.Events[1].Start.Weekday())
	assert.Equal(t, time.Friday, res.Events[2].Start.Weekday())
	for _, ev := range res.Events {
		assert.Equal(t, 7, ev.Start.Hour())
	}
}

func TestGenerate_RecordsUnplaced(t *testing.T) {
	res := Generate(Input{
		User:   model.User{WorkHours: mondayHours("09:00", "17:00")},
		Habits: []model.Habit{habit("long", model.CategoryActivities, model.PriorityHigh, 6*60)},
		Start:  monday,
		End:    monday.AddDate(0, 0, 1),
	})

	// Monday has no 6h gap; Tuesday has no work hours.
	require.Len(t, res.Events, 1)
	assert.Equal(t, time.Tuesday, res.Events[0].Start.Weekday())
	require.Len(t, res.Unplaced, 1)
	assert.Equal(t, Unplaced{HabitID: "long", Date: monday}, res.Unplaced[0])
}

func TestGenerate_WallClockInStartLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	start := time.Date(2024, time.March, 9, 0, 0, 0, 0, ny)

	res := Generate(Input{
		Habits: []model.Habit{habit("run", model.CategoryActivities, model.PriorityHigh, 30)},
		Start:  start,
		End:    start.AddDate(0, 0, 2),
	})
	require.Len(t, res.Events, 3)
	for _, ev := range res.Events {
		assert.Equal(t, ny, ev.Start.Location())
		assert.Equal(t, 7, ev.Start.Hour(), "DST change must not shift wall-clock times")
	}
}

func TestGenerate_DoesNotMutateInput(t *testing.T) {
	habits := []model.Habit{
		habit("low", model.CategoryActivities, model.PriorityLow, 30),
		habit("high", model.CategoryActivities, model.PriorityHigh, 30),
	}
	_ = Generate(Input{Habits: habits, Start: monday, End: monday})
	assert.Equal(t, "low", habits[0].ID)
	assert.Equal(t, "high", habits[1].ID)
}
