package dashboard

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Mavwarf/planner/internal/event"
	"github.com/Mavwarf/planner/internal/history"
	"github.com/Mavwarf/planner/internal/silent"
)

var (
	_ Events  = eventList(nil)
	_ History = (*fakeHistory)(nil)
	_ History = (*history.Store)(nil)
)

type eventList []event.Event

func (l eventList) Events() []event.Event { return l }

type fakeHistory struct {
	mu      sync.Mutex
	entries []history.Entry
	err     error
}

func (f *fakeHistory) Entries(int) ([]history.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]history.Entry(nil), f.entries...), f.err
}

func (f *fakeHistory) add(e history.Entry) {
	f.mu.Lock()
	f.entries = append(f.entries, e)
	f.mu.Unlock()
}

var testNow = time.Date(2024, 5, 1, 8, 0, 0, 0, time.Local)

func testEvents() eventList {
	dentist := event.New("Dentist", time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local))
	dentist.ID = "#1"
	standup := event.New("Standup", time.Date(2024, 4, 1, 9, 0, 0, 0, time.Local))
	standup.ID = "#2"
	standup.UpdateRecurrence(event.NewRecurrence(event.FrequencyDaily, 1, standup.StartTime))
	return eventList{dentist, standup}
}

func testMux(t *testing.T, h History) (*http.ServeMux, Options) {
	t.Helper()
	o := Options{
		Events:  testEvents(),
		History: h,
		Silent:  silent.At(filepath.Join(t.TempDir(), "silent.json")),
		Now:     func() time.Time { return testNow },
		Poll:    10 * time.Millisecond,
	}
	mux := http.NewServeMux()
	Register(mux, o)
	return mux, o
}

func get(t *testing.T, mux http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	return w
}

func TestHandleEvents(t *testing.T) {
	mux, _ := testMux(t, nil)
	w := get(t, mux, "/api/events")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got []jsonEvent
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Index != 1 || got[1].ID != "#2" {
		t.Fatalf("events = %+v", got)
	}
	if got[0].Repeats != "" || got[1].Repeats == "" {
		t.Errorf("repeats = %q, %q", got[0].Repeats, got[1].Repeats)
	}
}

func TestHandleUpcoming(t *testing.T) {
	mux, _ := testMux(t, nil)
	w := get(t, mux, "/api/upcoming?hours=4")
	var got []jsonReminder
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	// Default reminders fire at the start: standup 09:00, dentist 10:00.
	if len(got) != 2 {
		t.Fatalf("upcoming = %+v, want 2", got)
	}
	if got[0].Title != "Standup" || got[0].Index != 2 || got[1].Title != "Dentist" {
		t.Errorf("upcoming order = %+v", got)
	}

	if w := get(t, mux, "/api/upcoming?hours=-1"); w.Code != http.StatusBadRequest {
		t.Errorf("negative hours status = %d, want 400", w.Code)
	}
}

func TestHandleHistory(t *testing.T) {
	h := &fakeHistory{entries: []history.Entry{
		{FiredAt: testNow, EventID: "#1", Title: "Dentist", Method: "Push", Outcome: history.Delivered},
		{FiredAt: testNow, EventID: "#3", Title: "Invoice", Method: "Email", Outcome: history.Failed, Error: "not implemented"},
	}}
	mux, _ := testMux(t, h)
	w := get(t, mux, "/api/history?days=1")
	var got []jsonEntry
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].Outcome != "failed" || got[1].Error != "not implemented" {
		t.Errorf("history = %+v", got)
	}

	h.err = errors.New("disk full")
	if w := get(t, mux, "/api/history"); w.Code != http.StatusInternalServerError {
		t.Errorf("failing store status = %d, want 500", w.Code)
	}
	if w := get(t, mux, "/api/history?days=x"); w.Code != http.StatusBadRequest {
		t.Errorf("bad days status = %d, want 400", w.Code)
	}
}

func TestHandleHistoryDisabled(t *testing.T) {
	mux, _ := testMux(t, nil)
	for _, url := range []string{"/api/history", "/api/stream"} {
		if w := get(t, mux, url); w.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", url, w.Code)
		}
	}
}

func TestHandleStream(t *testing.T) {
	h := &fakeHistory{entries: []history.Entry{{Title: "old", Outcome: history.Delivered}}}
	mux, _ := testMux(t, h)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	h.add(history.Entry{Title: "new", Outcome: history.Delivered})
	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(line, "data: ") || !strings.Contains(line, `"new"`) || strings.Contains(line, `"old"`) {
		t.Errorf("stream line = %q, want only the new entry", line)
	}
}

func TestHandleSilent(t *testing.T) {
	mux, o := testMux(t, nil)
	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/silent", strings.NewReader(body)))
		return w
	}

	var resp silentResponse
	json.NewDecoder(get(t, mux, "/api/silent").Body).Decode(&resp)
	if resp.Active {
		t.Error("silent should start off")
	}

	w := post(`{"minutes": 30}`)
	json.NewDecoder(w.Body).Decode(&resp)
	if !resp.Active || resp.Until == nil || !o.Silent.Active(testNow) {
		t.Errorf("after enable = %+v", resp)
	}

	post(`{"disable": true}`)
	if o.Silent.Active(testNow) {
		t.Error("silent still active after disable")
	}

	if w := post(`{}`); w.Code != http.StatusBadRequest {
		t.Errorf("empty request status = %d, want 400", w.Code)
	}
	if w := post(`not json`); w.Code != http.StatusBadRequest {
		t.Errorf("bad JSON status = %d, want 400", w.Code)
	}
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/silent", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE status = %d, want 405", w.Code)
	}
}
