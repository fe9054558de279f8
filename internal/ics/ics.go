// Package ics exports events as an iCalendar (RFC 5545) feed.
package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/Mavwarf/planner/internal/event"
)

const productID = "-//Mavwarf//planner//EN"

var weekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

var frequencies = map[event.Frequency]rrule.Frequency{
	event.FrequencyHourly:  rrule.HOURLY,
	event.FrequencyDaily:   rrule.DAILY,
	event.FrequencyWeekly:  rrule.WEEKLY,
	event.FrequencyMonthly: rrule.MONTHLY,
	event.FrequencyYearly:  rrule.YEARLY,
}

// UID derives a stable iCalendar UID from an event id.
func UID(e event.Event) string {
	return strings.TrimPrefix(e.ID, "#") + "@planner"
}

// RRule renders a recurrence as an RRULE value (without the "RRULE:"
// prefix). Monthly and Yearly intervals are expressed in calendar units,
// which is the closest RFC 5545 has to the day-counting rule.
func RRule(r *event.Recurrence) (string, error) {
	freq, ok := frequencies[r.Frequency]
	if !ok {
		return "", fmt.Errorf("unknown frequency %q", r.Frequency)
	}
	opt := rrule.ROption{
		Freq:     freq,
		Interval: r.Interval,
		Dtstart:  r.StartDate,
	}
	if opt.Interval <= 0 {
		opt.Interval = 1
	}
	if r.Minute != nil {
		opt.Byminute = []int{*r.Minute}
	}
	if r.Hour != nil {
		opt.Byhour = []int{*r.Hour}
	}
	if r.WeekDay != nil {
		opt.Byweekday = []rrule.Weekday{weekdays[time.Weekday(*r.WeekDay)]}
	}
	if r.Day != nil {
		opt.Bymonthday = []int{*r.Day}
	}
	if r.Month != nil {
		opt.Bymonth = []int{*r.Month}
	}
	until := r.EndDate
	if r.Year != nil {
		endOfYear := time.Date(*r.Year, time.December, 31, 23, 59, 59, 0, r.StartDate.Location())
		if until == nil || endOfYear.Before(*until) {
			until = &endOfYear
		}
	}
	if until != nil {
		opt.Until = *until
	}
	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return "", fmt.Errorf("building rrule: %w", err)
	}
	return rule.OrigOptions.RRuleString(), nil
}

// trigger renders a notify_before lead as a relative VALARM trigger.
func trigger(minutes int) string {
	if minutes >= 0 {
		return fmt.Sprintf("-PT%dM", minutes)
	}
	return fmt.Sprintf("PT%dM", -minutes)
}

// Calendar builds a calendar holding events, stamped at now.
func Calendar(events []event.Event, now time.Time) (*ical.Calendar, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, e := range events {
		ve := cal.AddEvent(UID(e))
		ve.SetDtStampTime(now)
		ve.SetCreatedTime(e.CreatedAt)
		ve.SetModifiedAt(e.UpdatedAt)
		if e.IsAllDay {
			ve.SetAllDayStartAt(e.StartTime)
			ve.SetAllDayEndAt(e.EndTime)
		} else {
			ve.SetStartAt(e.StartTime)
			ve.SetEndAt(e.EndTime)
		}
		ve.SetSummary(e.Title)
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		if len(e.Categories) > 0 {
			ve.AddProperty(ical.ComponentPropertyCategories, strings.Join(e.Categories, ","))
		}
		for _, a := range e.Attendees {
			if a.Email == "" {
				continue
			}
			ve.AddAttendee("mailto:"+a.Email, ical.WithCN(a.Name))
		}
		if e.IsRecurring && e.Recurrence != nil {
			rule, err := RRule(e.Recurrence)
			if err != nil {
				return nil, fmt.Errorf("event %s: %w", e.ID, err)
			}
			ve.AddProperty(ical.ComponentPropertyRrule, rule)
		}
		for _, n := range e.NotificationSettings {
			alarm := ve.AddAlarm()
			if n.Method == event.MethodEmail {
				alarm.SetAction(ical.ActionEmail)
			} else {
				alarm.SetAction(ical.ActionDisplay)
			}
			alarm.SetTrigger(trigger(n.NotifyBefore))
		}
	}
	return cal, nil
}

// Export writes events as an .ics document to w.
func Export(w io.Writer, events []event.Event, now time.Time) error {
	cal, err := Calendar(events, now)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, cal.Serialize())
	return err
}
