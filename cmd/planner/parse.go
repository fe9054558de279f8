package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Mavwarf/planner/internal/categories"
	"github.com/Mavwarf/planner/internal/event"
)

var dateLayouts = []string{"2006-01-02", "02-01-2006", "02.01.2006", "01/02/2006"}

var clockLayouts = []string{"15:04:05", "15:04", "03:04 PM", "3:04 PM", "03:04PM", "3:04PM"}

// parseDate reads a calendar date as local midnight.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD, DD-MM-YYYY, DD.MM.YYYY or MM/DD/YYYY)", s)
}

// parseClock reads a time of day.
func parseClock(s string) (hour, minute, second int, err error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range clockLayouts {
		if t, perr := time.Parse(layout, s); perr == nil {
			return t.Hour(), t.Minute(), t.Second(), nil
		}
	}
	return 0, 0, 0, fmt.Errorf("invalid time %q (want HH:MM, HH:MM:SS or HH:MM AM)", s)
}

func isClock(s string) bool {
	_, _, _, err := parseClock(s)
	return err == nil
}

// parseDateTime reads "<date> [time]", "<date>T<time>", RFC 3339, or a
// bare time of day, which is taken to be on now's date.
func parseDateTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Local(), nil
	}
	if h, m, sec, err := parseClock(s); err == nil {
		return time.Date(now.Year(), now.Month(), now.Day(), h, m, sec, 0, time.Local), nil
	}
	datePart, clockPart, found := strings.Cut(s, " ")
	if !found {
		datePart, clockPart, _ = strings.Cut(s, "T")
	}
	day, err := parseDate(datePart)
	if err != nil {
		return time.Time{}, err
	}
	if strings.TrimSpace(clockPart) == "" {
		return day, nil
	}
	h, m, sec, err := parseClock(clockPart)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, sec, 0, time.Local), nil
}

// parseLength reads a Go duration ("45m", "1h30m") or a bare number of
// minutes.
func parseLength(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative duration %q", s)
		}
		return time.Duration(n) * time.Minute, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid duration %q (want e.g. 45m or 2h)", s)
	}
	return d, nil
}

// parseIndex converts a 1-based position as shown by list into a slice
// index.
func parseIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(strings.TrimPrefix(s, "#"))
	if err != nil {
		return 0, fmt.Errorf("invalid event number %q", s)
	}
	if i < 1 || i > n {
		return 0, fmt.Errorf("no event %d (have %d)", i, n)
	}
	return i - 1, nil
}

// parseNotify reads "<minutes>[:<method>]".
func parseNotify(s string) (event.NotificationSetting, error) {
	minStr, methodStr, _ := strings.Cut(s, ":")
	minutes, err := strconv.Atoi(strings.TrimSpace(minStr))
	if err != nil || minutes < 0 {
		return event.NotificationSetting{}, fmt.Errorf("invalid reminder %q (want minutes[:method])", s)
	}
	method, err := event.ParseMethod(methodStr)
	if err != nil {
		return event.NotificationSetting{}, err
	}
	return event.NotificationSetting{NotifyBefore: minutes, Method: method}, nil
}

// parseAttendee reads "Name <email>", a bare address or a bare name.
func parseAttendee(s string) (event.Attendee, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return event.Attendee{}, fmt.Errorf("empty attendee")
	}
	if open := strings.LastIndex(s, "<"); open >= 0 && strings.HasSuffix(s, ">") {
		return event.Attendee{
			Name:  strings.TrimSpace(s[:open]),
			Email: strings.TrimSpace(s[open+1 : len(s)-1]),
		}, nil
	}
	if strings.Contains(s, "@") && !strings.Contains(s, " ") {
		return event.Attendee{Email: s}, nil
	}
	return event.Attendee{Name: s}, nil
}

// eventFlags holds the event options of add and edit. Pointer and zero
// fields mean "not given" so edit only touches what was passed.
type eventFlags struct {
	title       *string
	description *string
	location    *string
	start       string
	end         string
	duration    time.Duration
	allDay      *bool
	notify      []event.NotificationSetting
	every       string
	interval    int
	at          string
	on          string
	day         int
	month       int
	until       string
	once        bool
	categories  []string
	attendees   []event.Attendee
	jsonPath    string
}

func (f eventFlags) touchesRule() bool {
	return f.interval != 0 || f.at != "" || f.on != "" || f.day != 0 || f.month != 0 || f.until != ""
}

// parseEventFlags reads event options. Values of --start, --end and
// --until may be followed by a separate time token ("2024-05-01 09:30").
func parseEventFlags(args []string) (eventFlags, error) {
	var f eventFlags
	for i := 0; i < len(args); i++ {
		flag := args[i]
		next := func() (string, error) {
			if i+1 >= len(args) {
				return "", fmt.Errorf("%s requires a value", flag)
			}
			i++
			return args[i], nil
		}
		// dateTime joins a following clock token, including an AM/PM suffix.
		dateTime := func() (string, error) {
			v, err := next()
			if err != nil {
				return "", err
			}
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") && isClock(args[i+1]) && !isClock(v) {
				v += " " + args[i+1]
				i++
				if i+1 < len(args) && isMeridiem(args[i+1]) {
					v += " " + args[i+1]
					i++
				}
			}
			return v, nil
		}
		number := func(lo, hi int) (int, error) {
			v, err := next()
			if err != nil {
				return 0, err
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < lo || n > hi {
				return 0, fmt.Errorf("%s must be a number between %d and %d", flag, lo, hi)
			}
			return n, nil
		}

		var err error
		switch flag {
		case "--title", "-t":
			var v string
			if v, err = next(); err == nil {
				f.title = &v
			}
		case "--description", "--desc":
			var v string
			if v, err = next(); err == nil {
				f.description = &v
			}
		case "--location", "--where":
			var v string
			if v, err = next(); err == nil {
				f.location = &v
			}
		case "--start", "-s":
			f.start, err = dateTime()
		case "--end", "-e":
			f.end, err = dateTime()
		case "--duration":
			var v string
			if v, err = next(); err == nil {
				f.duration, err = parseLength(v)
			}
		case "--all-day":
			v := true
			f.allDay = &v
		case "--timed":
			v := false
			f.allDay = &v
		case "--notify", "-n":
			var v string
			if v, err = next(); err == nil {
				var n event.NotificationSetting
				if n, err = parseNotify(v); err == nil {
					f.notify = append(f.notify, n)
				}
			}
		case "--every":
			f.every, err = next()
		case "--interval":
			f.interval, err = number(1, 1<<20)
		case "--at":
			f.at, err = next()
			if err == nil && !isClock(f.at) {
				err = fmt.Errorf("--at: invalid time %q", f.at)
			}
		case "--on":
			f.on, err = next()
		case "--day":
			f.day, err = number(1, 31)
		case "--month":
			f.month, err = number(1, 12)
		case "--until":
			f.until, err = dateTime()
		case "--once":
			f.once = true
		case "--category":
			var v string
			if v, err = next(); err == nil {
				f.categories = append(f.categories, v)
			}
		case "--attendee":
			var v string
			if v, err = next(); err == nil {
				var a event.Attendee
				if a, err = parseAttendee(v); err == nil {
					f.attendees = append(f.attendees, a)
				}
			}
		case "--json":
			f.jsonPath, err = next()
		default:
			err = fmt.Errorf("unknown option %q", flag)
		}
		if err != nil {
			return eventFlags{}, err
		}
	}
	if f.end != "" && f.duration != 0 {
		return eventFlags{}, fmt.Errorf("--end and --duration are mutually exclusive")
	}
	if f.once && (f.every != "" || f.touchesRule()) {
		return eventFlags{}, fmt.Errorf("--once cannot be combined with repetition options")
	}
	return f, nil
}

func isMeridiem(s string) bool {
	s = strings.ToUpper(s)
	return s == "AM" || s == "PM"
}

// readEventJSON decodes one event from path, or from stdin for "-".
func readEventJSON(path string, stdin io.Reader) (event.Event, error) {
	var r io.Reader = stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return event.Event{}, err
		}
		defer file.Close()
		r = file
	}
	var e event.Event
	if err := json.NewDecoder(r).Decode(&e); err != nil {
		return event.Event{}, fmt.Errorf("decoding event: %w", err)
	}
	return e, nil
}

// build creates a new event from the flags.
func (f eventFlags) build(cats *categories.List, stdin io.Reader, now time.Time) (event.Event, error) {
	if f.jsonPath != "" {
		e, err := readEventJSON(f.jsonPath, stdin)
		if err != nil {
			return event.Event{}, err
		}
		e.ID = ""
		e.Normalize()
		return e, f.apply(&e, cats, now)
	}
	if f.title == nil || strings.TrimSpace(*f.title) == "" {
		return event.Event{}, fmt.Errorf("--title is required")
	}
	if f.start == "" {
		return event.Event{}, fmt.Errorf("--start is required")
	}
	start, err := parseDateTime(f.start, now)
	if err != nil {
		return event.Event{}, err
	}
	e := event.New(*f.title, start)
	return e, f.apply(&e, cats, now)
}

// apply writes every given flag onto e through its updaters. Moving the
// start without a new end keeps the event's length.
func (f eventFlags) apply(e *event.Event, cats *categories.List, now time.Time) error {
	if f.title != nil {
		e.UpdateTitle(*f.title)
	}
	if f.description != nil {
		e.UpdateDescription(*f.description)
	}
	if f.location != nil {
		e.UpdateLocation(*f.location)
	}

	length := e.EndTime.Sub(e.StartTime)
	if length < 0 {
		length = event.DefaultDuration
	}
	if f.start != "" {
		start, err := parseDateTime(f.start, now)
		if err != nil {
			return err
		}
		e.UpdateStartTime(start)
		e.UpdateEndTime(start.Add(length))
	}
	switch {
	case f.end != "":
		end, err := parseDateTime(f.end, now)
		if err != nil {
			return err
		}
		if end.Before(e.StartTime) {
			return fmt.Errorf("end %s is before start %s", end.Format("2006-01-02 15:04"), e.StartTime.Format("2006-01-02 15:04"))
		}
		e.UpdateEndTime(end)
	case f.duration != 0:
		e.UpdateEndTime(e.StartTime.Add(f.duration))
	}
	if f.allDay != nil {
		e.UpdateAllDay(*f.allDay)
	}

	if len(f.notify) > 0 {
		e.NotificationSettings = nil
		for _, n := range f.notify {
			e.AddNotification(n)
		}
	}

	if err := f.applyRule(e); err != nil {
		return err
	}

	for _, c := range f.categories {
		name, ok := cats.Canonical(c)
		if !ok {
			return fmt.Errorf("unknown category %q (see 'planner categories')", c)
		}
		e.AddCategory(name)
	}
	for _, a := range f.attendees {
		e.AddAttendee(a)
	}
	e.Normalize()
	return nil
}

// applyRule installs or adjusts the recurrence rule. --every builds a
// fresh rule pinned to the event's start; the other options tweak it.
func (f eventFlags) applyRule(e *event.Event) error {
	if f.once {
		e.UpdateRecurrence(nil)
		return nil
	}
	var rule *event.Recurrence
	switch {
	case f.every != "":
		freq, err := event.ParseFrequency(f.every)
		if err != nil {
			return err
		}
		rule = event.NewRecurrence(freq, 1, e.StartTime)
	case f.touchesRule():
		if e.Recurrence == nil {
			return fmt.Errorf("repetition options need --every on a one-time event")
		}
		c := e.Clone()
		rule = c.Recurrence
	default:
		return nil
	}

	if f.interval != 0 {
		rule.Interval = f.interval
	}
	if f.at != "" {
		h, m, _, err := parseClock(f.at)
		if err != nil {
			return err
		}
		rule.Hour, rule.Minute = &h, &m
	}
	if f.on != "" {
		wd, err := event.ParseWeekday(f.on)
		if err != nil {
			return err
		}
		rule.WeekDay = &wd
	}
	if f.day != 0 {
		d := f.day
		rule.Day = &d
	}
	if f.month != 0 {
		m := f.month
		rule.Month = &m
	}
	if f.until != "" {
		until, err := parseDateTime(f.until, e.StartTime)
		if err != nil {
			return err
		}
		if !strings.ContainsAny(strings.TrimSpace(f.until), " T") && !isClock(f.until) {
			// A bare date includes the whole day.
			until = until.Add(24*time.Hour - time.Minute)
		}
		rule.EndDate = &until
	}
	e.UpdateRecurrence(rule)
	return nil
}
