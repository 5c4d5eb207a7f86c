package model

import "time"

// Category groups habits by the kind of time they need. The scheduler uses
// it to pick preferred clock times; the feed uses it for colors.
type Category string

const (
	CategoryPeople           Category = "people"
	CategoryActivities       Category = "activities"
	CategoryResponsibilities Category = "responsibilities"
)

// Priority controls the order in which due habits are placed on a day.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Weight returns the sort weight of p (higher is placed first). Unknown
// priorities weigh zero and are placed last.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// FrequencyType is the recurrence pattern of a habit.
type FrequencyType string

const (
	FrequencyDaily   FrequencyType = "daily"
	FrequencyWeekly  FrequencyType = "weekly"
	FrequencyMonthly FrequencyType = "monthly"
	// FrequencyCustom is evaluated exactly like FrequencyDaily; the interval
	// is a number of days.
	FrequencyCustom FrequencyType = "custom"
)

// Frequency is the recurrence rule attached to a habit.
type Frequency struct {
	Type     FrequencyType `json:"type" yaml:"type" validate:"required,oneof=daily weekly monthly custom"`
	Interval int           `json:"interval" yaml:"interval" validate:"min=1"`
	// Weekdays is only meaningful for weekly rules: 0=Sunday .. 6=Saturday.
	Weekdays []int `json:"weekdays,omitempty" yaml:"weekdays,omitempty" validate:"omitempty,dive,min=0,max=6"`
}

// Habit is a recurring thing a user wants to make time for.
type Habit struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id" yaml:"id"`
	UserID      string    `gorm:"index;size:36;not null" json:"userId" yaml:"user_id" validate:"required"`
	Name        string    `gorm:"size:100;not null" json:"name" yaml:"name" validate:"required,max=100"`
	Description string    `gorm:"size:500" json:"description,omitempty" yaml:"description,omitempty" validate:"max=500"`
	Category    Category  `gorm:"size:32" json:"category" yaml:"category" validate:"required,oneof=people activities responsibilities"`
	Frequency   Frequency `gorm:"serializer:json" json:"frequency" yaml:"frequency"`
	// Duration is the length of one session in minutes.
	Duration  int       `json:"duration" yaml:"duration" validate:"min=1,max=1440"`
	Priority  Priority  `gorm:"size:16" json:"priority" yaml:"priority" validate:"required,oneof=low medium high"`
	Tags      []string  `gorm:"serializer:json" json:"tags" yaml:"tags"`
	Active    bool      `json:"active" yaml:"active"`
	CreatedAt time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"-"`
}

// DayHours is a work window on one weekday, as "HH:MM" 24-hour wall-clock
// strings. Start is strictly before End.
type DayHours struct {
	Start string `json:"start" yaml:"start" validate:"required,hhmm"`
	End   string `json:"end" yaml:"end" validate:"required,hhmm"`
}

// WorkHours holds one optional work window per weekday. A nil entry means
// the user does not work that day.
type WorkHours struct {
	Monday    *DayHours `json:"monday" yaml:"monday"`
	Tuesday   *DayHours `json:"tuesday" yaml:"tuesday"`
	Wednesday *DayHours `json:"wednesday" yaml:"wednesday"`
	Thursday  *DayHours `json:"thursday" yaml:"thursday"`
	Friday    *DayHours `json:"friday" yaml:"friday"`
	Saturday  *DayHours `json:"saturday" yaml:"saturday"`
	Sunday    *DayHours `json:"sunday" yaml:"sunday"`
}

// For returns the work window for the given weekday, or nil. It is safe to
// call on a nil receiver.
func (w *WorkHours) For(day time.Weekday) *DayHours {
	if w == nil {
		return nil
	}
	switch day {
	case time.Monday:
		return w.Monday
	case time.Tuesday:
		return w.Tuesday
	case time.Wednesday:
		return w.Wednesday
	case time.Thursday:
		return w.Thursday
	case time.Friday:
		return w.Friday
	case time.Saturday:
		return w.Saturday
	case time.Sunday:
		return w.Sunday
	}
	return nil
}

// User is the owner of habits and of one calendar feed.
type User struct {
	ID       string `gorm:"primaryKey;size:36" json:"id" yaml:"id"`
	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email" yaml:"email" validate:"required,email"`
	Name     string `gorm:"size:100;not null" json:"name" yaml:"name" validate:"required,max=100"`
	Timezone string `gorm:"size:50" json:"timezone" yaml:"timezone" validate:"required,max=50,timezone"`
	// WorkHours is optional; nil means every day is free 06:00-22:00.
	WorkHours *WorkHours `gorm:"serializer:json" json:"workHours" yaml:"work_hours,omitempty"`
	CreatedAt time.Time  `json:"createdAt" yaml:"-"`
	UpdatedAt time.Time  `json:"updatedAt" yaml:"-"`
}

// Completion records that a habit was done.
type Completion struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	HabitID      string    `gorm:"index;size:36;not null" json:"habitId" validate:"required"`
	UserID       string    `gorm:"index;size:36;not null" json:"userId" validate:"required"`
	CompletedAt  time.Time `json:"completedAt"`
	ScheduledFor time.Time `json:"scheduledFor"`
	Notes        string    `gorm:"size:500" json:"notes,omitempty" validate:"max=500"`
}

// TimeSlot is a free span of wall-clock time on a single day. Slots never
// cross midnight.
type TimeSlot struct {
	Start time.Time
	End   time.Time
}

// Minutes returns the length of the slot in whole minutes.
func (s TimeSlot) Minutes() int {
	return int(s.End.Sub(s.Start) / time.Minute)
}

// Contains reports whether t lies within the slot, both ends inclusive.
func (s TimeSlot) Contains(t time.Time) bool {
	return !t.Before(s.Start) && !t.After(s.End)
}

// ScheduledEvent is one placed habit session. Name, category and priority
// are copied from the habit at scheduling time.
type ScheduledEvent struct {
	HabitID   string    `json:"habitId"`
	HabitName string    `json:"habitName"`
	Category  Category  `json:"category"`
	Priority  Priority  `json:"priority"`
	Start     time.Time `json:"startTime"`
	End       time.Time `json:"endTime"`
	Duration  int       `json:"duration"`
}
