package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Mavwarf/planner/internal/deliver"
	"github.com/Mavwarf/planner/internal/event"
	"github.com/Mavwarf/planner/internal/history"
	"github.com/Mavwarf/planner/internal/store"
)

// fakeNotifier records deliveries and optionally fails.
type fakeNotifier struct {
	mu   sync.Mutex
	got  []deliver.Notification
	fail map[string]error // by title
}

func (f *fakeNotifier) Notify(_ context.Context, n deliver.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, n)
	return f.fail[n.Title]
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (r *fakeRecorder) Record(e history.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func clock(h, m int) time.Time {
	return time.Date(2024, 1, 1, h, m, 0, 0, time.Local)
}

func tempStore(t *testing.T, events ...event.Event) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "dates.json"), false, store.Active, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	for _, e := range events {
		s.Add(e)
	}
	return s
}

func withLead(title string, start time.Time, lead int, method event.Method) event.Event {
	e := event.New(title, start)
	e.NotificationSettings = []event.NotificationSetting{{NotifyBefore: lead, Method: method}}
	return e
}

func TestTickFiresOnceAtLeadTime(t *testing.T) {
	st := tempStore(t, withLead("Dentist", clock(10, 0), 15, event.MethodPush))
	n := &fakeNotifier{}
	l := New(st, n, Config{}, nil)

	if res := l.Tick(context.Background(), clock(9, 44)); res.Fired != 0 || res.Saved {
		t.Errorf("09:44: %+v, want nothing", res)
	}
	res := l.Tick(context.Background(), clock(9, 45))
	if res.Fired != 1 || !res.Saved || res.Err != nil {
		t.Errorf("09:45: %+v, want one fired and saved", res)
	}
	if res := l.Tick(context.Background(), clock(9, 46)); res.Fired != 0 {
		t.Errorf("09:46: %+v, want nothing", res)
	}
	if n.count() != 1 {
		t.Fatalf("deliveries = %d, want 1", n.count())
	}
	if n.got[0].Title != "Dentist" || n.got[0].Method != event.MethodPush {
		t.Errorf("delivered %+v", n.got[0])
	}

	var onDisk []event.Event
	data, _ := os.ReadFile(st.Path())
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatal(err)
	}
	if !onDisk[0].NotificationSettings[0].HasNotified {
		t.Error("latch not persisted")
	}
}

func TestTickRecurringResetCycle(t *testing.T) {
	e := event.New("Standup", clock(9, 0))
	e.UpdateRecurrence(event.NewRecurrence(event.FrequencyDaily, 1, clock(9, 0)))
	st := tempStore(t, e)
	n := &fakeNotifier{}
	l := New(st, n, Config{}, nil)

	fired, reset := 0, 0
	for now := clock(8, 58); now.Before(clock(8, 58).Add(48 * time.Hour)); now = now.Add(10 * time.Second) {
		res := l.Tick(context.Background(), now)
		fired += res.Fired
		reset += res.Reset
	}
	if fired != 2 || reset != 2 {
		t.Errorf("over two days fired %d reset %d, want 2 and 2", fired, reset)
	}
}

func TestTickUnimplementedMethods(t *testing.T) {
	st := tempStore(t,
		withLead("mail", clock(10, 0), 0, event.MethodEmail),
		withLead("text", clock(10, 0), 0, event.MethodSms),
		withLead("push", clock(10, 0), 0, event.MethodPush),
	)
	n := &fakeNotifier{}
	rec := &fakeRecorder{}
	l := New(st, n, Config{Recorder: rec}, nil)

	res := l.Tick(context.Background(), clock(10, 0))
	if res.Fired != 3 || res.Failed != 2 {
		t.Errorf("Tick = %+v, want 3 fired 2 failed", res)
	}
	if !errors.Is(res.Err, ErrMethodNotImplemented) {
		t.Errorf("Err = %v, want ErrMethodNotImplemented", res.Err)
	}
	if n.count() != 1 {
		t.Errorf("notifier got %d, want only the push", n.count())
	}
	for _, e := range st.Events() {
		if !e.NotificationSettings[0].HasNotified {
			t.Errorf("%s: latch not set after failed delivery", e.Title)
		}
	}
	if len(rec.entries) != 3 {
		t.Fatalf("history entries = %d, want 3", len(rec.entries))
	}
	failed := 0
	for _, e := range rec.entries {
		if e.Outcome == history.Failed {
			failed++
		}
	}
	if failed != 2 {
		t.Errorf("failed history entries = %d, want 2", failed)
	}
}

func TestTickOneFailureDoesNotBlockOthers(t *testing.T) {
	st := tempStore(t,
		withLead("a", clock(10, 0), 0, event.MethodPush),
		withLead("b", clock(10, 0), 0, event.MethodPush),
		withLead("c", clock(10, 0), 0, event.MethodPush),
	)
	n := &fakeNotifier{fail: map[string]error{"b": errors.New("display gone")}}
	l := New(st, n, Config{}, nil)

	res := l.Tick(context.Background(), clock(10, 0))
	if res.Fired != 3 || res.Failed != 1 || n.count() != 3 {
		t.Errorf("Tick = %+v, deliveries %d", res, n.count())
	}
}

func TestTickPassiveStoreSavesFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dates.json")
	data, _ := json.Marshal([]event.Event{withLead("x", clock(10, 0), 0, event.MethodPush)})
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	st, err := store.New(path, false, store.Passive, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	res := New(st, &fakeNotifier{}, Config{}, nil).Tick(context.Background(), clock(10, 0))
	if !res.Saved {
		t.Errorf("Tick on passive store = %+v, want saved", res)
	}
}

func TestTickMetrics(t *testing.T) {
	st := tempStore(t,
		withLead("a", clock(10, 0), 0, event.MethodPush),
		withLead("b", clock(10, 0), 0, event.MethodSms),
	)
	m := NewMetrics(prometheus.NewRegistry())
	l := New(st, &fakeNotifier{}, Config{Metrics: m}, nil)
	l.Tick(context.Background(), clock(10, 0))

	if got := testutil.ToFloat64(m.Ticks); got != 1 {
		t.Errorf("ticks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Fired.WithLabelValues("Push")); got != 1 {
		t.Errorf("fired{Push} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Failed.WithLabelValues("Sms")); got != 1 {
		t.Errorf("failed{Sms} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Events); got != 2 {
		t.Errorf("events = %v, want 2", got)
	}
}

func TestRunStops(t *testing.T) {
	st := tempStore(t)
	l := New(st, &fakeNotifier{}, Config{Period: time.Hour}, nil)
	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	l.Stop()
	l.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestRunHonorsContext(t *testing.T) {
	st := tempStore(t)
	l := New(st, &fakeNotifier{}, Config{Period: time.Hour}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunTicksRepeatedly(t *testing.T) {
	st := tempStore(t, withLead("a", clock(10, 0), 0, event.MethodPush))
	var mu sync.Mutex
	ticks := 0
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		ticks++
		return clock(9, 0).Add(time.Duration(ticks) * time.Minute * 30)
	}
	n := &fakeNotifier{}
	l := New(st, n, Config{Period: 5 * time.Millisecond, Now: now}, nil)
	done := make(chan struct{})
	go func() {
		l.Run(context.Background())
		close(done)
	}()
	defer func() {
		l.Stop()
		<-done
	}()

	deadline := time.Now().Add(2 * time.Second)
	for n.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n.count() != 1 {
		t.Errorf("deliveries = %d, want 1", n.count())
	}
}
