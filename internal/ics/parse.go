package ics

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "groovecal/internal/log"
)

// FeedEvent is one VEVENT read back from a habit feed.
type FeedEvent struct {
	UID         string
	Summary     string
	Description string
	Category    string
	Color       string
	Priority    int

	// Start / End carry the TZID location when it can be loaded, otherwise
	// time.Local.
	Start   time.Time
	End     time.Time
	StartTZ string

	// Alarm is the trigger of the first VALARM, e.g. "-PT5M".
	Alarm string
}

// Feed is the calendar-level data of a parsed habit feed.
type Feed struct {
	Name     string
	Timezone string
	Events   []FeedEvent
}

// ParseFeed parses an iCalendar payload produced by Render (or any
// reasonably similar feed). Events that cannot be read are logged and
// skipped.
func ParseFeed(body []byte) (*Feed, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, err
	}

	out := &Feed{}
	for _, p := range cal.CalendarProperties {
		switch p.IANAToken {
		case string(ical.PropertyXWRCalName):
			out.Name = p.Value
		case string(ical.PropertyXWRTimezone):
			out.Timezone = p.Value
		}
	}

	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Error("ics vevent parse failed", perr)
			continue
		}
		out.Events = append(out.Events, ev)
	}

	appLog.Debug("ics parse completed", "calendar", out.Name, "event_count", len(out.Events))
	return out, nil
}

func parseVEvent(ve *ical.VEvent) (FeedEvent, error) {
	var out FeedEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyCategories); p != nil {
		out.Category = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyColor); p != nil {
		out.Color = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyPriority); p != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil {
			out.Priority = n
		}
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, err
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return out, err
	}
	out.Start = start
	out.End = end

	if dtStartProp := ve.GetProperty(ical.ComponentPropertyDtStart); dtStartProp != nil {
		if tzs, ok := dtStartProp.ICalParameters[string(ical.ParameterTzid)]; ok && len(tzs) > 0 {
			out.StartTZ = tzs[0]
		}
	}

	if alarms := ve.Alarms(); len(alarms) > 0 {
		if p := alarms[0].GetProperty(ical.ComponentPropertyTrigger); p != nil {
			out.Alarm = p.Value
		}
	}

	return out, nil
}

// HabitID extracts the habit identifier from a feed UID of the form
// "<habit id>-<epoch ms>-<suffix>@<domain>".
func HabitID(uid string) (string, bool) {
	local, _, _ := strings.Cut(uid, "@")
	parts := strings.Split(local, "-")
	if len(parts) < 3 {
		return "", false
	}
	if _, err := strconv.ParseInt(parts[len(parts)-2], 10, 64); err != nil {
		return "", false
	}
	return strings.Join(parts[:len(parts)-2], "-"), true
}
