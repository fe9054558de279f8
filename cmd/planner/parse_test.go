package main

import (
	"strings"
	"testing"
	"time"

	"github.com/Mavwarf/planner/internal/categories"
	"github.com/Mavwarf/planner/internal/event"
)

func at(y int, mo time.Month, d, h, m int) time.Time {
	return time.Date(y, mo, d, h, m, 0, 0, time.Local)
}

func defaultCats() *categories.List {
	return categories.New(categories.Defaults...)
}

func TestParseDate(t *testing.T) {
	want := at(2024, time.May, 1, 0, 0)
	for _, in := range []string{"2024-05-01", "01-05-2024", "01.05.2024", "05/01/2024", " 2024-05-01 "} {
		got, err := parseDate(in)
		if err != nil || !got.Equal(want) {
			t.Errorf("parseDate(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
	for _, in := range []string{"2024-13-01", "tomorrow", ""} {
		if _, err := parseDate(in); err == nil {
			t.Errorf("parseDate(%q) should fail", in)
		}
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in        string
		h, m, sec int
	}{
		{"09:30", 9, 30, 0},
		{"09:30:15", 9, 30, 15},
		{"03:04 PM", 15, 4, 0},
		{"3:04 pm", 15, 4, 0},
		{"12:00 AM", 0, 0, 0},
	}
	for _, tt := range tests {
		h, m, sec, err := parseClock(tt.in)
		if err != nil || h != tt.h || m != tt.m || sec != tt.sec {
			t.Errorf("parseClock(%q) = %d:%d:%d, %v, want %d:%d:%d", tt.in, h, m, sec, err, tt.h, tt.m, tt.sec)
		}
	}
	if _, _, _, err := parseClock("25:00"); err == nil {
		t.Error("parseClock(25:00) should fail")
	}
}

func TestParseDateTime(t *testing.T) {
	now := at(2024, time.June, 10, 8, 0)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-05-01 09:30", at(2024, time.May, 1, 9, 30)},
		{"2024-05-01T09:30", at(2024, time.May, 1, 9, 30)},
		{"2024-05-01", at(2024, time.May, 1, 0, 0)},
		{"01.05.2024 3:04 PM", at(2024, time.May, 1, 15, 4)},
		{"14:00", at(2024, time.June, 10, 14, 0)},
		{"2024-05-01T09:30:00Z", time.Date(2024, time.May, 1, 9, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseDateTime(tt.in, now)
		if err != nil || !got.Equal(tt.want) {
			t.Errorf("parseDateTime(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := parseDateTime("2024-05-01 noon", now); err == nil {
		t.Error("parseDateTime with a bad clock should fail")
	}
}

func TestParseLength(t *testing.T) {
	tests := map[string]time.Duration{"45": 45 * time.Minute, "1h30m": 90 * time.Minute, "0": 0}
	for in, want := range tests {
		got, err := parseLength(in)
		if err != nil || got != want {
			t.Errorf("parseLength(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
	for _, in := range []string{"-5", "abc", "-1h"} {
		if _, err := parseLength(in); err == nil {
			t.Errorf("parseLength(%q) should fail", in)
		}
	}
}

func TestParseIndex(t *testing.T) {
	if i, err := parseIndex("1", 3); err != nil || i != 0 {
		t.Errorf("parseIndex(1) = %d, %v, want 0", i, err)
	}
	if i, err := parseIndex("#3", 3); err != nil || i != 2 {
		t.Errorf("parseIndex(#3) = %d, %v, want 2", i, err)
	}
	for _, in := range []string{"0", "4", "x", "-1"} {
		if _, err := parseIndex(in, 3); err == nil {
			t.Errorf("parseIndex(%q, 3) should fail", in)
		}
	}
}

func TestParseNotify(t *testing.T) {
	tests := []struct {
		in   string
		want event.NotificationSetting
	}{
		{"15", event.NotificationSetting{NotifyBefore: 15, Method: event.MethodPush}},
		{"60:email", event.NotificationSetting{NotifyBefore: 60, Method: event.MethodEmail}},
		{"0:SMS", event.NotificationSetting{NotifyBefore: 0, Method: event.MethodSms}},
	}
	for _, tt := range tests {
		got, err := parseNotify(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("parseNotify(%q) = %+v, %v, want %+v", tt.in, got, err, tt.want)
		}
	}
	for _, in := range []string{"-1", "soon", "5:pigeon"} {
		if _, err := parseNotify(in); err == nil {
			t.Errorf("parseNotify(%q) should fail", in)
		}
	}
}

func TestParseAttendee(t *testing.T) {
	tests := []struct {
		in          string
		name, email string
	}{
		{"Ann Lee <ann@example.com>", "Ann Lee", "ann@example.com"},
		{"<bo@example.com>", "", "bo@example.com"},
		{"cy@example.com", "", "cy@example.com"},
		{"Dee", "Dee", ""},
	}
	for _, tt := range tests {
		got, err := parseAttendee(tt.in)
		if err != nil || got.Name != tt.name || got.Email != tt.email {
			t.Errorf("parseAttendee(%q) = %+v, %v, want %q %q", tt.in, got, err, tt.name, tt.email)
		}
	}
	if _, err := parseAttendee("  "); err == nil {
		t.Error("parseAttendee(blank) should fail")
	}
}

func TestParseEventFlagsJoinsTimeToken(t *testing.T) {
	f, err := parseEventFlags([]string{"--title", "Dentist", "--start", "2024-05-01", "3:04", "PM", "--notify", "60", "--notify", "0:email"})
	if err != nil {
		t.Fatal(err)
	}
	if f.start != "2024-05-01 3:04 PM" {
		t.Errorf("start = %q, want joined date and time", f.start)
	}
	if f.title == nil || *f.title != "Dentist" {
		t.Errorf("title = %v", f.title)
	}
	if len(f.notify) != 2 || f.notify[1].Method != event.MethodEmail {
		t.Errorf("notify = %+v", f.notify)
	}
}

func TestParseEventFlagsErrors(t *testing.T) {
	tests := [][]string{
		{"--title"},
		{"--bogus"},
		{"--end", "2024-05-01", "--duration", "5m"},
		{"--once", "--every", "daily"},
		{"--day", "32"},
		{"--month", "0"},
		{"--at", "later"},
	}
	for _, args := range tests {
		if _, err := parseEventFlags(args); err == nil {
			t.Errorf("parseEventFlags(%q) should fail", strings.Join(args, " "))
		}
	}
}

func TestBuildWeeklyEveryOtherMonday(t *testing.T) {
	f, err := parseEventFlags([]string{"--title", "Gym", "--start", "2024-01-01", "07:00", "--every", "weekly", "--interval", "2"})
	if err != nil {
		t.Fatal(err)
	}
	e, err := f.build(defaultCats(), nil, at(2024, time.January, 1, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	r := e.Recurrence
	if !e.IsRecurring || r == nil || r.Frequency != event.FrequencyWeekly || r.Interval != 2 {
		t.Fatalf("Recurrence = %v", r)
	}
	if r.WeekDay == nil || time.Weekday(*r.WeekDay) != time.Monday {
		t.Errorf("WeekDay = %v, want Mon", r.WeekDay)
	}
	if !r.IsDue(at(2024, time.January, 15, 7, 0)) {
		t.Error("IsDue(Jan 15 07:00) = false, want true")
	}
	if r.IsDue(at(2024, time.January, 8, 7, 0)) {
		t.Error("IsDue(Jan 8 07:00) = true, want false")
	}
}

func TestBuildRequiresTitleAndStart(t *testing.T) {
	for _, args := range [][]string{
		{"--start", "2024-01-01"},
		{"--title", "x"},
		{"--title", " ", "--start", "2024-01-01"},
	} {
		f, err := parseEventFlags(args)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.build(defaultCats(), nil, time.Now()); err == nil {
			t.Errorf("build(%q) should fail", strings.Join(args, " "))
		}
	}
}

func TestBuildFromJSON(t *testing.T) {
	f, err := parseEventFlags([]string{"--json", "-", "--category", "work"})
	if err != nil {
		t.Fatal(err)
	}
	in := strings.NewReader(`{"event_id":"#9","title":"From JSON","start_time":"2024-03-01T10:00:00Z"}`)
	e, err := f.build(defaultCats(), in, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if e.Title != "From JSON" || e.ID != "" {
		t.Errorf("event = %q id %q, want title kept and id cleared", e.Title, e.ID)
	}
	if len(e.NotificationSettings) != 1 {
		t.Errorf("NotificationSettings = %d, want default", len(e.NotificationSettings))
	}
	if len(e.Categories) != 1 || e.Categories[0] != "Work" {
		t.Errorf("Categories = %v, want [Work]", e.Categories)
	}
}

func TestApplyMovingStartKeepsLength(t *testing.T) {
	e := event.New("review", at(2024, time.January, 1, 10, 0))
	e.EndTime = at(2024, time.January, 1, 11, 30)
	f, err := parseEventFlags([]string{"--start", "2024-01-02", "14:00"})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.apply(&e, defaultCats(), time.Now()); err != nil {
		t.Fatal(err)
	}
	if want := at(2024, time.January, 2, 15, 30); !e.EndTime.Equal(want) {
		t.Errorf("EndTime = %v, want %v", e.EndTime, want)
	}
}

func TestApplyEndBeforeStart(t *testing.T) {
	e := event.New("review", at(2024, time.January, 1, 10, 0))
	f, _ := parseEventFlags([]string{"--end", "2024-01-01", "09:00"})
	if err := f.apply(&e, defaultCats(), time.Now()); err == nil {
		t.Error("end before start should fail")
	}
}

func TestApplyCategories(t *testing.T) {
	e := event.New("x", at(2024, time.January, 1, 10, 0))
	f, _ := parseEventFlags([]string{"--category", "unknown"})
	if err := f.apply(&e, defaultCats(), time.Now()); err == nil {
		t.Error("unknown category should fail")
	}
}

func TestApplyRuleNeedsEvery(t *testing.T) {
	e := event.New("x", at(2024, time.January, 1, 10, 0))
	f, _ := parseEventFlags([]string{"--interval", "2"})
	if err := f.apply(&e, defaultCats(), time.Now()); err == nil {
		t.Error("--interval on a one-time event should fail")
	}
}

func TestApplyAdjustsExistingRule(t *testing.T) {
	e := event.New("x", at(2024, time.January, 1, 10, 0))
	e.UpdateRecurrence(event.NewRecurrence(event.FrequencyDaily, 1, e.StartTime))
	f, _ := parseEventFlags([]string{"--at", "18:45", "--until", "2024-02-01"})
	if err := f.apply(&e, defaultCats(), time.Now()); err != nil {
		t.Fatal(err)
	}
	r := e.Recurrence
	if *r.Hour != 18 || *r.Minute != 45 {
		t.Errorf("rule time = %d:%d, want 18:45", *r.Hour, *r.Minute)
	}
	if want := at(2024, time.February, 1, 23, 59); r.EndDate == nil || !r.EndDate.Equal(want) {
		t.Errorf("EndDate = %v, want %v", r.EndDate, want)
	}

	once, _ := parseEventFlags([]string{"--once"})
	if err := once.apply(&e, defaultCats(), time.Now()); err != nil {
		t.Fatal(err)
	}
	if e.IsRecurring || e.Recurrence != nil {
		t.Error("--once should drop the rule")
	}
}
