// Package dashboard serves a small JSON API over the daemon's state:
// the event list, upcoming reminders, fired-reminder history and the
// silent mode switch. It is mounted next to /metrics.
package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Mavwarf/planner/internal/event"
	"github.com/Mavwarf/planner/internal/history"
	"github.com/Mavwarf/planner/internal/logger"
	"github.com/Mavwarf/planner/internal/silent"
)

// Events is the read side of the event store.
type Events interface {
	Events() []event.Event
}

// History is the read side of the history database.
type History interface {
	Entries(days int) ([]history.Entry, error)
}

// Options wires the handlers to their data.
type Options struct {
	Events  Events
	History History // nil when history is disabled
	Silent  silent.Mode
	Log     logrus.FieldLogger
	Now     func() time.Time
	Poll    time.Duration // /api/stream poll period, default 2s
}

// JSON response types used by API handlers.

type jsonEvent struct {
	Index     int       `json:"index"`
	ID        string    `json:"event_id"`
	Title     string    `json:"title"`
	Start     time.Time `json:"start_time"`
	End       time.Time `json:"end_time"`
	AllDay    bool      `json:"is_all_day"`
	Repeats   string    `json:"repeats,omitempty"`
	Location  string    `json:"location,omitempty"`
	Reminders int       `json:"reminders"`
}

type jsonReminder struct {
	At      string `json:"at"`
	Index   int    `json:"index"`
	EventID string `json:"event_id"`
	Title   string `json:"title"`
	Setting int    `json:"setting"`
	Method  string `json:"method"`
}

type jsonEntry struct {
	Time    string `json:"time"`
	EventID string `json:"event_id"`
	Title   string `json:"title"`
	Setting int    `json:"setting"`
	Method  string `json:"method"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

type silentResponse struct {
	Active bool    `json:"active"`
	Until  *string `json:"until"`
}

func entryToJSON(e history.Entry) jsonEntry {
	return jsonEntry{
		Time:    e.FiredAt.Format(time.RFC3339),
		EventID: e.EventID,
		Title:   e.Title,
		Setting: e.Setting,
		Method:  e.Method,
		Outcome: string(e.Outcome),
		Error:   e.Error,
	}
}

// Register adds the API routes to mux.
func Register(mux *http.ServeMux, o Options) {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Poll <= 0 {
		o.Poll = 2 * time.Second
	}
	if o.Log == nil {
		o.Log = logger.Discard()
	}
	mux.HandleFunc("/api/events", o.handleEvents)
	mux.HandleFunc("/api/upcoming", o.handleUpcoming)
	mux.HandleFunc("/api/history", o.handleHistory)
	mux.HandleFunc("/api/stream", o.handleStream)
	mux.HandleFunc("/api/silent", o.handleSilent)
}

func (o Options) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		o.Log.WithError(err).Debug("dashboard: write response")
	}
}

// intParam reads a non-negative integer query parameter, falling back
// to def when it is absent.
func intParam(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return v, nil
}

func (o Options) handleEvents(w http.ResponseWriter, r *http.Request) {
	events := o.Events.Events()
	out := make([]jsonEvent, len(events))
	for i, e := range events {
		out[i] = jsonEvent{
			Index:     i + 1,
			ID:        e.ID,
			Title:     e.Title,
			Start:     e.StartTime,
			End:       e.EndTime,
			AllDay:    e.IsAllDay,
			Location:  e.Location,
			Reminders: len(e.NotificationSettings),
		}
		if e.IsRecurring && e.Recurrence != nil {
			out[i].Repeats = e.Recurrence.String()
		}
	}
	o.writeJSON(w, out)
}

func (o Options) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	hours, err := intParam(r, "hours", 24)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	reminders := event.Upcoming(o.Events.Events(), o.Now(), time.Duration(hours)*time.Hour)
	out := make([]jsonReminder, len(reminders))
	for i, u := range reminders {
		out[i] = jsonReminder{
			At:      u.At.Format(time.RFC3339),
			Index:   u.Index + 1,
			EventID: u.Event.ID,
			Title:   u.Event.Title,
			Setting: u.Setting,
			Method:  string(u.Method),
		}
	}
	o.writeJSON(w, out)
}

func (o Options) handleHistory(w http.ResponseWriter, r *http.Request) {
	if o.History == nil {
		http.Error(w, "history is disabled", http.StatusNotFound)
		return
	}
	days, err := intParam(r, "days", 7)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	entries, err := o.History.Entries(days)
	if err != nil {
		o.Log.WithError(err).Warn("dashboard: read history")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	out := make([]jsonEntry, len(entries))
	for i, e := range entries {
		out[i] = entryToJSON(e)
	}
	o.writeJSON(w, out)
}

// handleStream pushes newly recorded history entries as server-sent
// events until the client goes away.
func (o Options) handleStream(w http.ResponseWriter, r *http.Request) {
	if o.History == nil {
		http.Error(w, "history is disabled", http.StatusNotFound)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Flush headers immediately so the client fires onopen.
	flusher.Flush()

	// Snapshot the current count so only new entries are sent.
	initial, _ := o.History.Entries(0)
	seen := len(initial)

	ticker := time.NewTicker(o.Poll)
	defer ticker.Stop()
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			all, err := o.History.Entries(0)
			if err != nil {
				continue
			}
			if len(all) < seen {
				// History was cleared or pruned.
				seen = len(all)
				continue
			}
			if len(all) == seen {
				continue
			}
			fresh := all[seen:]
			seen = len(all)

			out := make([]jsonEntry, len(fresh))
			for i, e := range fresh {
				out[i] = entryToJSON(e)
			}
			data, err := json.Marshal(out)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (o Options) silentState() silentResponse {
	var resp silentResponse
	if t, ok := o.Silent.Until(o.Now()); ok {
		s := t.Format(time.RFC3339)
		resp.Active = true
		resp.Until = &s
	}
	return resp
}

func (o Options) handleSilent(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		o.writeJSON(w, o.silentState())

	case http.MethodPost:
		var req struct {
			Minutes int  `json:"minutes"`
			Disable bool `json:"disable"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		var err error
		switch {
		case req.Disable:
			err = o.Silent.Disable()
		case req.Minutes > 0:
			_, err = o.Silent.Enable(o.Now(), time.Duration(req.Minutes)*time.Minute)
		default:
			http.Error(w, "provide minutes > 0 or disable: true", http.StatusBadRequest)
			return
		}
		if err != nil {
			o.Log.WithError(err).Warn("dashboard: silent")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		o.writeJSON(w, o.silentState())

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
