package event

import (
	"sort"
	"time"
)

// Due is the tracker's verdict for one notification setting.
type Due struct {
	Index int  // position in NotificationSettings
	Fire  bool // deliver now and latch
	Reset bool // recurring window passed, clear the latch
}

// Transition folds the verdict back into a latch move.
func (d Due) Transition() Transition {
	switch {
	case d.Fire:
		return TransitionFire
	case d.Reset:
		return TransitionReset
	}
	return TransitionNone
}

func lead(n NotificationSetting) time.Duration {
	return time.Duration(n.NotifyBefore) * time.Minute
}

// Predicate reports whether setting n is inside its notification window
// at now. One-time events open the window notify_before minutes before
// start and never close it; recurring events ask the rule about
// now+notify_before.
func (e *Event) Predicate(n NotificationSetting, now time.Time) bool {
	if e.IsRecurring {
		return e.Recurrence.IsDue(now.Add(lead(n)))
	}
	return !e.StartTime.Add(-lead(n)).After(now)
}

// DueNotifications evaluates every setting at now, in order. It reads
// the latches but does not move them.
func (e *Event) DueNotifications(now time.Time) []Due {
	out := make([]Due, 0, len(e.NotificationSettings))
	for i, n := range e.NotificationSettings {
		t := n.Transition(e.IsRecurring, e.Predicate(n, now))
		out = append(out, Due{
			Index: i,
			Fire:  t == TransitionFire,
			Reset: t == TransitionReset,
		})
	}
	return out
}

// Occurrence is a future instant at which a setting would fire.
type Occurrence struct {
	At      time.Time
	Setting int
	Method  Method
}

// maxScan bounds Occurrences so a long horizon over a dense rule cannot
// spin for minutes.
const maxScan = 366 * 24 * 60

// Occurrences lists the instants in [from, from+horizon) at which the
// event's settings would fire, assuming every latch has been reset
// between windows. Recurring events are scanned minute by minute with
// the same predicate the scheduler uses.
func Occurrences(e Event, from time.Time, horizon time.Duration) []Occurrence {
	to := from.Add(horizon)
	var out []Occurrence
	if !e.IsRecurring {
		for i, n := range e.NotificationSettings {
			at := e.StartTime.Add(-lead(n))
			if !at.Before(from) && at.Before(to) && !n.HasNotified {
				out = append(out, Occurrence{At: at, Setting: i, Method: n.Method})
			}
		}
		sortOccurrences(out)
		return out
	}

	start := from.Truncate(time.Minute)
	if start.Before(from) {
		start = start.Add(time.Minute)
	}
	for i, n := range e.NotificationSettings {
		prev := e.Predicate(n, start.Add(-time.Minute))
		steps := 0
		for t := start; t.Before(to) && steps < maxScan; t = t.Add(time.Minute) {
			cur := e.Predicate(n, t)
			if cur && !prev {
				out = append(out, Occurrence{At: t, Setting: i, Method: n.Method})
			}
			prev = cur
			steps++
		}
	}
	sortOccurrences(out)
	return out
}

// Reminder is one occurrence of the event at Index in a list.
type Reminder struct {
	Index int
	Event Event
	Occurrence
}

// Upcoming lists every reminder instant in [from, from+horizon) across
// events, soonest first.
func Upcoming(events []Event, from time.Time, horizon time.Duration) []Reminder {
	var out []Reminder
	for i, e := range events {
		for _, o := range Occurrences(e, from, horizon) {
			out = append(out, Reminder{Index: i, Event: e, Occurrence: o})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}

func sortOccurrences(o []Occurrence) {
	sort.SliceStable(o, func(i, j int) bool { return o[i].At.Before(o[j].At) })
}
