// Package deliver turns fired reminders into user-visible side effects:
// desktop toasts, a chime, MQTT messages, chat messages or log lines.
package deliver

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/Mavwarf/planner/internal/event"
	"github.com/Mavwarf/planner/internal/tmpl"
)

// Notification is one reminder ready for delivery.
type Notification struct {
	Title       string       `json:"title"`
	Body        string       `json:"body"`
	Description string       `json:"description,omitempty"`
	Location    string       `json:"location,omitempty"`
	EventID     string       `json:"event_id"`
	Setting     int          `json:"setting"`
	Method      event.Method `json:"method"`
	Lead        int          `json:"lead_minutes"`
	Start       time.Time    `json:"start"`
	FiredAt     time.Time    `json:"fired_at"`
}

// TextFunc renders the one-line message sent by the chat sinks.
type TextFunc func(Notification) string

// PlainText is "title: body".
func PlainText(n Notification) string {
	return n.Title + ": " + n.Body
}

// Template renders notifications through a message template with the
// placeholders of package tmpl. An empty template means PlainText.
func Template(s string) TextFunc {
	if s == "" {
		return PlainText
	}
	return func(n Notification) string {
		return tmpl.Expand(s, tmpl.Vars{
			Title:       n.Title,
			Body:        n.Body,
			Description: n.Description,
			Location:    n.Location,
			Start:       n.Start.Format("15:04"),
			Date:        n.Start.Format("Mon 2006-01-02"),
			Method:      string(n.Method),
			Lead:        tmpl.ShortMinutes(n.Lead),
			LeadSay:     tmpl.SayMinutes(n.Lead),
		})
	}
}

// Notifier delivers a notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, n Notification) error

func (f Func) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }

// Compose builds the notification for setting i of e fired at now. For
// recurring events the start is the occurrence the lead time points at.
// The body is the timing line followed by the description, if any.
func Compose(e event.Event, i int, now time.Time) Notification {
	s := e.NotificationSettings[i]
	lead := time.Duration(s.NotifyBefore) * time.Minute
	start := e.StartTime
	if e.IsRecurring {
		start = now.Add(lead).Truncate(time.Minute)
	}

	var body string
	switch {
	case s.NotifyBefore > 0:
		body = fmt.Sprintf("Starts in %d min at %s", s.NotifyBefore, start.Format("15:04"))
	case e.IsAllDay:
		body = "Today, all day"
	default:
		body = fmt.Sprintf("Starting now (%s)", start.Format("15:04"))
	}
	if e.Location != "" {
		body += " @ " + e.Location
	}
	if e.Description != "" {
		body += "\n" + e.Description
	}
	return Notification{
		Title:       e.Title,
		Body:        body,
		Description: e.Description,
		Location:    e.Location,
		EventID:     e.ID,
		Setting:     i,
		Method:      s.Method,
		Lead:        s.NotifyBefore,
		Start:       start,
		FiredAt:     now,
	}
}

// Multi fans a notification out to every sink. All sinks run even when
// some fail; the failures are combined into one error.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var result *multierror.Error
	for _, sink := range m {
		if err := sink.Notify(ctx, n); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Log writes each notification as an info line. It is the sink of last
// resort for headless machines.
func Log(log logrus.FieldLogger) Notifier {
	return Func(func(_ context.Context, n Notification) error {
		log.WithFields(logrus.Fields{
			"event_id": n.EventID,
			"setting":  n.Setting,
			"method":   n.Method,
		}).Infof("reminder: %s: %s", n.Title, n.Body)
		return nil
	})
}

// Quiet wraps sink so it is skipped while silent reports true for the
// notification's firing time.
func Quiet(sink Notifier, silent func(time.Time) bool) Notifier {
	return Func(func(ctx context.Context, n Notification) error {
		if silent(n.FiredAt) {
			return nil
		}
		return sink.Notify(ctx, n)
	})
}
