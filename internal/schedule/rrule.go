package schedule

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	"groovecal/internal/model"
)

// ErrNoRecurrence is returned by RRule for rules that never produce a due
// date (unknown types, weekly rules without weekdays).
var ErrNoRecurrence = errors.New("rrule: rule never recurs")

var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// RRule expresses rule, anchored at anchor, as an RFC 5545 recurrence that
// yields exactly the dates IsDue accepts:
//
//   - daily/custom: FREQ=DAILY;INTERVAL=n
//   - weekly: FREQ=WEEKLY with WKST set to the anchor's weekday, so that
//     "every n weeks" counts from the anchor like IsDue does
//   - monthly: FREQ=MONTHLY on the anchor's day of month, clamped to the
//     last day of shorter months via BYSETPOS=-1
func RRule(rule model.Frequency, anchor time.Time) (*rrule.RRule, error) {
	interval := max(rule.Interval, 1)
	dtstart := dateOf(anchor, time.UTC)

	opt := rrule.ROption{
		Dtstart:  dtstart,
		Interval: interval,
	}

	switch rule.Type {
	case model.FrequencyDaily, model.FrequencyCustom:
		opt.Freq = rrule.DAILY

	case model.FrequencyWeekly:
		days := slices.Clone(rule.Weekdays)
		slices.Sort(days)
		days = slices.Compact(days)
		for _, d := range days {
			if d < 0 || d > 6 {
				return nil, fmt.Errorf("rrule: weekday %d out of range", d)
			}
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[d])
		}
		if len(opt.Byweekday) == 0 {
			return nil, ErrNoRecurrence
		}
		opt.Freq = rrule.WEEKLY
		opt.Wkst = rruleWeekdays[dtstart.Weekday()]

	case model.FrequencyMonthly:
		opt.Freq = rrule.MONTHLY
		day := dtstart.Day()
		if day <= 28 {
			opt.Bymonthday = []int{day}
		} else {
			for d := 28; d <= day; d++ {
				opt.Bymonthday = append(opt.Bymonthday, d)
			}
			opt.Bysetpos = []int{-1}
		}

	default:
		return nil, ErrNoRecurrence
	}

	return rrule.NewRRule(opt)
}

// RRuleString is RRule rendered as an "RRULE:" value without DTSTART.
func RRuleString(rule model.Frequency, anchor time.Time) (string, error) {
	r, err := RRule(rule, anchor)
	if err != nil {
		return "", err
	}
	return r.OrigOptions.RRuleString(), nil
}
