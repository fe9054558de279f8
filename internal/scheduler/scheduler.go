// Package scheduler runs the periodic pass that decides which reminders
// are due, latches them in the store and hands them to a notifier.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/Mavwarf/planner/internal/deliver"
	"github.com/Mavwarf/planner/internal/event"
	"github.com/Mavwarf/planner/internal/history"
	"github.com/Mavwarf/planner/internal/logger"
	"github.com/Mavwarf/planner/internal/store"
)

// DefaultPeriod is the time between tick starts.
const DefaultPeriod = 10 * time.Second

// ErrMethodNotImplemented is returned for notification methods that
// have no delivery path.
var ErrMethodNotImplemented = errors.New("notification method not implemented")

// Config tunes a Loop. Zero values pick defaults.
type Config struct {
	Period   time.Duration
	Now      func() time.Time
	Recorder history.Recorder // optional
	Metrics  *Metrics         // optional
}

// Result summarizes one tick.
type Result struct {
	Fired  int
	Reset  int
	Failed int
	Saved  bool
	Err    error
}

// Loop is the scheduler.
type Loop struct {
	st       *store.Store
	notifier deliver.Notifier
	cfg      Config
	log      logrus.FieldLogger
	stopped  atomic.Bool
	wake     chan struct{}
}

// New creates a loop over st delivering Push reminders to n.
func New(st *store.Store, n deliver.Notifier, cfg Config, log logrus.FieldLogger) *Loop {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Loop{
		st:       st,
		notifier: n,
		cfg:      cfg,
		log:      log.WithField("component", "scheduler"),
		wake:     make(chan struct{}, 1),
	}
}

// Run ticks until Stop is called or ctx is done. Cancellation is only
// observed between ticks so a save in progress always completes. Tick
// starts are spaced Period apart regardless of how long a tick takes.
func (l *Loop) Run(ctx context.Context) error {
	l.log.WithField("period", l.cfg.Period).Info("scheduler started")
	defer l.log.Info("scheduler stopped")
	for {
		if l.stopped.Load() || ctx.Err() != nil {
			return nil
		}
		began := time.Now()
		res := l.Tick(ctx, l.cfg.Now())
		if res.Err != nil {
			l.log.WithError(res.Err).Warn("tick finished with errors")
		}

		wait := l.cfg.Period - time.Since(began)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-l.wake:
			timer.Stop()
		case <-ctx.Done():
			timer.Stop()
		}
	}
}

// Stop asks Run to return before its next tick. Safe to call from any
// goroutine, including a signal handler, and more than once.
func (l *Loop) Stop() {
	l.stopped.Store(true)
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Tick runs one pass at now: latches are moved and saved under the
// store lock, then fired reminders are delivered concurrently outside
// it.
func (l *Loop) Tick(ctx context.Context, now time.Time) Result {
	began := time.Now()
	var (
		res  Result
		jobs []deliver.Notification
	)
	saved, err := l.st.Update(func(i int, e *event.Event) bool {
		dues, ok := l.evaluate(e, now)
		if !ok {
			return false
		}
		changed := false
		for _, d := range dues {
			if !e.NotificationSettings[d.Index].Apply(d.Transition()) {
				continue
			}
			changed = true
			if d.Fire {
				jobs = append(jobs, deliver.Compose(*e, d.Index, now))
			} else {
				res.Reset++
			}
		}
		return changed
	})
	res.Saved = saved && err == nil
	res.Fired = len(jobs)

	var errs *multierror.Error
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, n := range jobs {
		wg.Add(1)
		go func(n deliver.Notification) {
			defer wg.Done()
			if err := l.deliver(ctx, n); err != nil {
				mu.Lock()
				res.Failed++
				errs = multierror.Append(errs, err)
				mu.Unlock()
			}
		}(n)
	}
	wg.Wait()
	res.Err = errs.ErrorOrNil()

	if m := l.cfg.Metrics; m != nil {
		m.Ticks.Inc()
		m.Resets.Add(float64(res.Reset))
		m.Events.Set(float64(l.st.Len()))
		m.TickDuration.Observe(time.Since(began).Seconds())
	}
	return res
}

// evaluate runs the tracker for one event, recovering from a panic so a
// single bad event cannot stop the pass.
func (l *Loop) evaluate(e *event.Event, now time.Time) (dues []event.Due, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			l.log.WithFields(logrus.Fields{"event_id": e.ID, "panic": r}).Error("evaluating event")
			dues, ok = nil, false
		}
	}()
	return e.DueNotifications(now), true
}

func (l *Loop) deliver(ctx context.Context, n deliver.Notification) (err error) {
	log := l.log.WithFields(logrus.Fields{
		"event_id": n.EventID,
		"title":    n.Title,
		"method":   n.Method,
	})
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s %s: panic: %v", n.EventID, n.Method, r)
		}
		l.account(n, err)
		if err != nil {
			log.WithError(err).Error("notification failed")
		} else {
			log.Info("notification sent")
		}
	}()

	switch n.Method {
	case event.MethodPush:
		if err := l.notifier.Notify(ctx, n); err != nil {
			return fmt.Errorf("%s push: %w", n.EventID, err)
		}
		return nil
	default:
		return fmt.Errorf("%s %s: %w", n.EventID, n.Method, ErrMethodNotImplemented)
	}
}

// account feeds metrics and history. History failures are logged only.
func (l *Loop) account(n deliver.Notification, err error) {
	if m := l.cfg.Metrics; m != nil {
		m.Fired.WithLabelValues(string(n.Method)).Inc()
		if err != nil {
			m.Failed.WithLabelValues(string(n.Method)).Inc()
		}
	}
	if l.cfg.Recorder == nil {
		return
	}
	entry := history.Entry{
		FiredAt: n.FiredAt,
		EventID: n.EventID,
		Title:   n.Title,
		Setting: n.Setting,
		Method:  string(n.Method),
		Outcome: history.Delivered,
	}
	if err != nil {
		entry.Outcome = history.Failed
		entry.Error = err.Error()
	}
	if rerr := l.cfg.Recorder.Record(entry); rerr != nil {
		l.log.WithError(rerr).Warn("history record failed")
	}
}
