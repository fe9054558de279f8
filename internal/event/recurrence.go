package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Frequency is the period unit of a recurrence rule.
type Frequency string

const (
	FrequencyHourly  Frequency = "Hourly"
	FrequencyDaily   Frequency = "Daily"
	FrequencyWeekly  Frequency = "Weekly"
	FrequencyMonthly Frequency = "Monthly"
	FrequencyYearly  Frequency = "Yearly"
)

// ParseFrequency accepts a frequency name in any case.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hourly":
		return FrequencyHourly, nil
	case "daily":
		return FrequencyDaily, nil
	case "weekly":
		return FrequencyWeekly, nil
	case "monthly":
		return FrequencyMonthly, nil
	case "yearly":
		return FrequencyYearly, nil
	}
	return "", fmt.Errorf("unknown frequency %q (want hourly, daily, weekly, monthly or yearly)", s)
}

// Weekday is a day of the week serialized as "Mon".."Sun".
type Weekday time.Weekday

var weekdayNames = map[string]time.Weekday{
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
	"sun": time.Sunday, "sunday": time.Sunday,
}

// ParseWeekday accepts short or full weekday names in any case.
func ParseWeekday(s string) (Weekday, error) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", s)
	}
	return Weekday(wd), nil
}

func (w Weekday) String() string {
	return time.Weekday(w).String()[:3]
}

func (w Weekday) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.String())
}

func (w *Weekday) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseWeekday(s)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// Recurrence describes when a recurring event repeats. Anchors left nil
// are wildcards, except the one the frequency owns (Hourly→minute,
// Daily→hour, Weekly→week_day, Monthly→day, Yearly→month), which must be
// set for the rule to ever match.
type Recurrence struct {
	Frequency Frequency  `json:"frequency"`
	Interval  int        `json:"interval"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Minute    *int       `json:"minute,omitempty"`
	Hour      *int       `json:"hour,omitempty"`
	Day       *int       `json:"day,omitempty"`
	WeekDay   *Weekday   `json:"week_day,omitempty"`
	Month     *int       `json:"month,omitempty"`
	Year      *int       `json:"year,omitempty"`
}

// NewRecurrence builds a rule starting at start with the minute, hour
// and owning anchor pinned from start, so the rule fires at start's wall
// clock time every interval periods.
func NewRecurrence(freq Frequency, interval int, start time.Time) *Recurrence {
	start = start.Truncate(time.Minute)
	r := &Recurrence{
		Frequency: freq,
		Interval:  interval,
		StartDate: start,
		Minute:    intPtr(start.Minute()),
	}
	switch freq {
	case FrequencyDaily:
		r.Hour = intPtr(start.Hour())
	case FrequencyWeekly:
		r.Hour = intPtr(start.Hour())
		wd := Weekday(start.Weekday())
		r.WeekDay = &wd
	case FrequencyMonthly:
		r.Hour = intPtr(start.Hour())
		r.Day = intPtr(start.Day())
	case FrequencyYearly:
		r.Hour = intPtr(start.Hour())
		r.Day = intPtr(start.Day())
		r.Month = intPtr(int(start.Month()))
	}
	return r
}

func intPtr(v int) *int { return &v }

func (r Recurrence) clone() Recurrence {
	c := r
	if r.EndDate != nil {
		t := *r.EndDate
		c.EndDate = &t
	}
	for _, p := range []**int{&c.Minute, &c.Hour, &c.Day, &c.Month, &c.Year} {
		if *p != nil {
			*p = intPtr(**p)
		}
	}
	if r.WeekDay != nil {
		wd := *r.WeekDay
		c.WeekDay = &wd
	}
	return c
}

func (r *Recurrence) interval() int64 {
	if r.Interval <= 0 {
		return 1
	}
	return int64(r.Interval)
}

// IsDue reports whether the rule matches the wall-clock instant now.
// It is pure and true for every instant inside a matching minute (or
// broader window when the finer anchors are unset).
func (r *Recurrence) IsDue(now time.Time) bool {
	if r == nil {
		return false
	}
	if now.Before(r.StartDate) {
		return false
	}
	if r.EndDate != nil && now.After(*r.EndDate) {
		return false
	}
	if r.Year != nil && *r.Year != now.Year() {
		return false
	}
	if !r.anchorsMatch(now) {
		return false
	}
	elapsed, ok := r.elapsed(now)
	return ok && elapsed%r.interval() == 0
}

func anchor(v *int, actual int, owned bool) bool {
	if v == nil {
		return !owned
	}
	return *v == actual
}

func (r *Recurrence) anchorsMatch(now time.Time) bool {
	f := r.Frequency
	minute := anchor(r.Minute, now.Minute(), f == FrequencyHourly)
	switch f {
	case FrequencyHourly:
		return minute
	case FrequencyDaily:
		return minute && anchor(r.Hour, now.Hour(), true)
	case FrequencyWeekly:
		weekday := r.WeekDay != nil && time.Weekday(*r.WeekDay) == now.Weekday()
		return minute && anchor(r.Hour, now.Hour(), false) && weekday
	case FrequencyMonthly:
		return minute && anchor(r.Hour, now.Hour(), false) && anchor(r.Day, now.Day(), true)
	case FrequencyYearly:
		return minute && anchor(r.Hour, now.Hour(), false) &&
			anchor(r.Day, now.Day(), false) && anchor(r.Month, int(now.Month()), true)
	}
	return false
}

// elapsed counts whole periods between the start date and now. Hourly
// counts elapsed time at minute resolution. The others count calendar
// days in now's location; Monthly and Yearly step by day.
func (r *Recurrence) elapsed(now time.Time) (int64, bool) {
	if r.Frequency == FrequencyHourly {
		d := now.Truncate(time.Minute).Sub(r.StartDate.Truncate(time.Minute))
		if d < 0 {
			d = 0
		}
		return int64(d / time.Hour), true
	}
	days := civilDays(r.StartDate.In(now.Location()), now)
	if days < 0 {
		days = 0
	}
	switch r.Frequency {
	case FrequencyDaily, FrequencyMonthly, FrequencyYearly:
		return days, true
	case FrequencyWeekly:
		return days / 7, true
	}
	return 0, false
}

// civilDays is the number of calendar days from a's date to b's date.
func civilDays(a, b time.Time) int64 {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int64(to.Sub(from) / (24 * time.Hour))
}

// String renders the rule the way the list command prints it.
func (r *Recurrence) String() string {
	if r == nil {
		return "none"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s every %d", r.Frequency, r.interval())
	if r.WeekDay != nil {
		fmt.Fprintf(&b, " on %s", r.WeekDay)
	}
	if r.Day != nil {
		fmt.Fprintf(&b, " day %d", *r.Day)
	}
	if r.Month != nil {
		fmt.Fprintf(&b, " month %d", *r.Month)
	}
	if r.Hour != nil || r.Minute != nil {
		h, m := "**", "**"
		if r.Hour != nil {
			h = fmt.Sprintf("%02d", *r.Hour)
		}
		if r.Minute != nil {
			m = fmt.Sprintf("%02d", *r.Minute)
		}
		fmt.Fprintf(&b, " at %s:%s", h, m)
	}
	fmt.Fprintf(&b, " from %s", r.StartDate.Format("2006-01-02"))
	if r.EndDate != nil {
		fmt.Fprintf(&b, " until %s", r.EndDate.Format("2006-01-02"))
	}
	return b.String()
}
