package event

import (
	"time"

	"github.com/google/uuid"
)

// DefaultDuration is the length given to events created without an end.
const DefaultDuration = time.Hour

// Attendee is a person invited to an event.
type Attendee struct {
	ID    string `json:"attendee_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Event is a single calendar entry, one-time or recurring. The JSON
// field names are the on-disk format of the events file.
type Event struct {
	ID                   string                `json:"event_id"`
	Title                string                `json:"title"`
	Description          string                `json:"description"`
	Location             string                `json:"location"`
	StartTime            time.Time             `json:"start_time"`
	EndTime              time.Time             `json:"end_time"`
	IsRecurring          bool                  `json:"is_recurring"`
	Recurrence           *Recurrence           `json:"recurrence,omitempty"`
	Attendees            []Attendee            `json:"attendees"`
	NotificationSettings []NotificationSetting `json:"notification_settings"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
	IsAllDay             bool                  `json:"is_all_day"`
	Categories           []string              `json:"categories"`
}

// New returns an event starting at start, lasting DefaultDuration, with
// the default push notification.
func New(title string, start time.Time) Event {
	now := time.Now()
	e := Event{
		Title:     title,
		StartTime: start,
		EndTime:   start.Add(DefaultDuration),
		CreatedAt: now,
		UpdatedAt: now,
	}
	e.Normalize()
	return e
}

// Normalize restores the invariants every stored event must satisfy:
// at least one notification setting, recurrence present iff recurring,
// non-nil lists, timestamps and attendee ids filled in.
func (e *Event) Normalize() {
	if len(e.NotificationSettings) == 0 {
		e.NotificationSettings = []NotificationSetting{DefaultNotification()}
	}
	if e.Recurrence != nil {
		e.IsRecurring = true
	} else if e.IsRecurring {
		e.IsRecurring = false
	}
	if e.Attendees == nil {
		e.Attendees = []Attendee{}
	}
	if e.Categories == nil {
		e.Categories = []string{}
	}
	for i := range e.Attendees {
		if e.Attendees[i].ID == "" {
			e.Attendees[i].ID = uuid.NewString()
		}
	}
	if e.EndTime.IsZero() && !e.StartTime.IsZero() {
		e.EndTime = e.StartTime.Add(DefaultDuration)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}
}

// Clone returns a deep copy; the store hands out clones so callers
// never alias its state.
func (e Event) Clone() Event {
	c := e
	if e.Recurrence != nil {
		r := e.Recurrence.clone()
		c.Recurrence = &r
	}
	c.Attendees = append([]Attendee(nil), e.Attendees...)
	c.NotificationSettings = append([]NotificationSetting(nil), e.NotificationSettings...)
	c.Categories = append([]string(nil), e.Categories...)
	return c
}

func (e *Event) touch() {
	e.UpdatedAt = time.Now()
}

func (e *Event) UpdateTitle(title string) {
	e.Title = title
	e.touch()
}

func (e *Event) UpdateDescription(description string) {
	e.Description = description
	e.touch()
}

func (e *Event) UpdateLocation(location string) {
	e.Location = location
	e.touch()
}

func (e *Event) UpdateStartTime(start time.Time) {
	e.StartTime = start
	e.touch()
}

func (e *Event) UpdateEndTime(end time.Time) {
	e.EndTime = end
	e.touch()
}

func (e *Event) UpdateAllDay(allDay bool) {
	e.IsAllDay = allDay
	e.touch()
}

// UpdateRecurrence replaces the recurrence rule; nil makes the event
// one-time again.
func (e *Event) UpdateRecurrence(r *Recurrence) {
	e.Recurrence = r
	e.IsRecurring = r != nil
	e.touch()
}

// UpdateIsRecurring toggles recurrence. Turning it on without a rule
// installs a daily rule pinned to the start time.
func (e *Event) UpdateIsRecurring(recurring bool) {
	switch {
	case !recurring:
		e.Recurrence = nil
	case e.Recurrence == nil:
		e.Recurrence = NewRecurrence(FrequencyDaily, 1, e.StartTime)
	}
	e.IsRecurring = recurring
	e.touch()
}

func (e *Event) AddAttendee(a Attendee) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	e.Attendees = append(e.Attendees, a)
	e.touch()
}

// RemoveAttendee removes the attendee at index i. It reports false when
// i is out of range.
func (e *Event) RemoveAttendee(i int) (Attendee, bool) {
	if i < 0 || i >= len(e.Attendees) {
		return Attendee{}, false
	}
	a := e.Attendees[i]
	e.Attendees = append(e.Attendees[:i], e.Attendees[i+1:]...)
	e.touch()
	return a, true
}

func (e *Event) AddNotification(n NotificationSetting) {
	e.NotificationSettings = append(e.NotificationSettings, n)
	e.touch()
}

// RemoveNotification removes the setting at index i. Removing the last
// setting re-injects the default so the list never goes empty.
func (e *Event) RemoveNotification(i int) (NotificationSetting, bool) {
	if i < 0 || i >= len(e.NotificationSettings) {
		return NotificationSetting{}, false
	}
	n := e.NotificationSettings[i]
	e.NotificationSettings = append(e.NotificationSettings[:i], e.NotificationSettings[i+1:]...)
	if len(e.NotificationSettings) == 0 {
		e.NotificationSettings = []NotificationSetting{DefaultNotification()}
	}
	e.touch()
	return n, true
}

// AddCategory adds a label unless the event already carries it.
func (e *Event) AddCategory(category string) {
	for _, c := range e.Categories {
		if c == category {
			return
		}
	}
	e.Categories = append(e.Categories, category)
	e.touch()
}

func (e *Event) RemoveCategory(category string) bool {
	for i, c := range e.Categories {
		if c == category {
			e.Categories = append(e.Categories[:i], e.Categories[i+1:]...)
			e.touch()
			return true
		}
	}
	return false
}
