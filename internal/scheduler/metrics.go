package scheduler

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the scheduler's Prometheus instruments.
type Metrics struct {
	Ticks        prometheus.Counter
	Fired        *prometheus.CounterVec
	Failed       *prometheus.CounterVec
	Resets       prometheus.Counter
	Events       prometheus.Gauge
	TickDuration prometheus.Histogram
}

// NewMetrics creates the instruments and registers them with reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "planner",
			Name:      "scheduler_ticks_total",
			Help:      "Scheduler passes over the event store.",
		}),
		Fired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planner",
			Name:      "notifications_fired_total",
			Help:      "Notifications whose latch was set, by method.",
		}, []string{"method"}),
		Failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planner",
			Name:      "notifications_failed_total",
			Help:      "Fired notifications that could not be delivered, by method.",
		}, []string{"method"}),
		Resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "planner",
			Name:      "notifications_reset_total",
			Help:      "Recurring notification latches cleared after their window.",
		}),
		Events: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "planner",
			Name:      "events",
			Help:      "Events in the store at the last tick.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "planner",
			Name:      "scheduler_tick_seconds",
			Help:      "Time spent in one scheduler pass including delivery.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Ticks, m.Fired, m.Failed, m.Resets, m.Events, m.TickDuration)
	}
	return m
}
