package ics

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"groovecal/internal/model"
)

const (
	// ContentType is the media type of a rendered feed.
	ContentType = "text/calendar; charset=utf-8"

	DefaultProductID = "-//Groove Habit Tracker//EN"
	DefaultDomain    = "groove.app"

	// localTimestampFormat is a floating DATE-TIME; the zone comes from TZID.
	localTimestampFormat = "20060102T150405"

	uidSuffixLen = 7
)

var categoryColors = map[model.Category]string{
	model.CategoryPeople:           "#4CAF50",
	model.CategoryActivities:       "#2196F3",
	model.CategoryResponsibilities: "#FF9800",
}

const defaultColor = "#9C27B0"

var priorityValues = map[model.Priority]int{
	model.PriorityHigh:   1,
	model.PriorityMedium: 5,
	model.PriorityLow:    9,
}

// Renderer turns scheduled events into an iCalendar feed. The zero value is
// usable; Now and Suffix default to the wall clock and a random string.
type Renderer struct {
	ProductID string
	// Domain is the right-hand side of every event UID.
	Domain string
	// Now supplies DTSTAMP.
	Now func() time.Time
	// Suffix supplies the random part of every event UID.
	Suffix func() string
}

// Render renders events with a default Renderer.
func Render(events []model.ScheduledEvent, title, timezone string) string {
	var r Renderer
	return r.Render(events, title, timezone)
}

// Render returns the feed for events as CRLF-separated iCalendar text.
//
// Event times are written as floating wall-clock values qualified with
// TZID=timezone; they are never converted. timezone is used only as a
// label.
func (r *Renderer) Render(events []model.ScheduledEvent, title, timezone string) string {
	cal := ical.NewCalendar()
	cal.CalendarProperties = nil
	cal.SetVersion("2.0")
	cal.SetProductId(r.productID())
	cal.SetXWRCalName(title)
	cal.SetXWRTimezone(timezone)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ical.MethodPublish)

	// Only the identifier; clients resolve the zone rules themselves.
	cal.AddTimezone(timezone)

	stamp := r.now()
	for _, ev := range events {
		cal.AddVEvent(r.event(ev, timezone, stamp))
	}

	return cal.Serialize(ical.WithNewLineWindows)
}

func (r *Renderer) event(ev model.ScheduledEvent, timezone string, stamp time.Time) *ical.VEvent {
	e := ical.NewEvent(r.uid(ev))
	e.SetDtStampTime(stamp)
	e.SetProperty(ical.ComponentPropertyDtStart, ev.Start.Format(localTimestampFormat), ical.WithTZID(timezone))
	e.SetProperty(ical.ComponentPropertyDtEnd, ev.End.Format(localTimestampFormat), ical.WithTZID(timezone))
	e.SetSummary(plainText(ev.HabitName))
	e.SetDescription(plainText(Description(ev)))
	e.AddCategory(strings.ToUpper(string(ev.Category)))
	e.SetPriority(priorityValues[ev.Priority])
	e.SetColor(CategoryColor(ev.Category))

	alarm := e.AddAlarm()
	alarm.SetAction(ical.ActionDisplay)
	alarm.SetProperty(ical.ComponentPropertyDescription, plainText(ev.HabitName+" starting soon"))
	alarm.SetTrigger("-PT5M")

	return e
}

// uid is "<habit id>-<start epoch ms>-<suffix>@<domain>".
func (r *Renderer) uid(ev model.ScheduledEvent) string {
	return ev.HabitID + "-" + strconv.FormatInt(ev.Start.UnixMilli(), 10) + "-" + r.suffix() + "@" + r.domain()
}

func (r *Renderer) productID() string {
	if r.ProductID == "" {
		return DefaultProductID
	}
	return r.ProductID
}

func (r *Renderer) domain() string {
	if r.Domain == "" {
		return DefaultDomain
	}
	return r.Domain
}

func (r *Renderer) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Renderer) suffix() string {
	if r.Suffix == nil {
		return RandomSuffix()
	}
	return r.Suffix()
}

// RandomSuffix returns a short random token for event UIDs.
func RandomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:uidSuffixLen]
}

// Description is the human-readable event body: category, priority and
// duration on separate lines.
func Description(ev model.ScheduledEvent) string {
	return "Category: " + string(ev.Category) +
		"\nPriority: " + string(ev.Priority) +
		"\nDuration: " + strconv.Itoa(ev.Duration) + " minutes"
}

// CategoryColor returns the display color for category.
func CategoryColor(category model.Category) string {
	if c, ok := categoryColors[category]; ok {
		return c
	}
	return defaultColor
}

// plainText prepares free text for a TEXT property. The calendar library
// escapes backslash, newline, semicolon and comma in a single pass when it
// serializes; carriage returns are dropped here.
func plainText(s string) string {
	return strings.ReplaceAll(s, "\r", "")
}

// EscapeText applies the feed's TEXT escaping to s: backslash, semicolon,
// comma and newline are escaped, carriage returns are removed. No character
// is escaped twice.
func EscapeText(s string) string {
	return ical.ToText(plainText(s))
}

// CalendarName is the feed title for a user.
func CalendarName(userName string) string {
	return userName + "'s Groove Habits"
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Filename is the download name of a user's feed.
func Filename(userName string) string {
	return whitespaceRun.ReplaceAllString(userName, "-") + "-groove-habits.ics"
}
