// Package prom provides a Prometheus observer for scopes and task groups.
package prom

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/NetPo4ki/go-taskgroup/scope"
)

// Outcome label values of the tasks_finished_total counter.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
	OutcomePanic     = "panic"
)

// Metrics implements scope.Observer on top of Prometheus collectors.
type Metrics struct {
	activeTasks   prometheus.Gauge
	tasksStarted  prometheus.Counter
	tasksFinished *prometheus.CounterVec
	taskDuration  prometheus.Histogram

	scopesCreated   prometheus.Counter
	scopesCancelled prometheus.Counter
	joinWait        prometheus.Histogram
}

var _ scope.Observer = (*Metrics)(nil)

// New creates the collectors under namespace and registers them with reg.
func New(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		activeTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_active",
			Help:      "Tasks currently executing.",
		}),
		tasksStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_started_total",
			Help:      "Tasks whose work function started.",
		}),
		tasksFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_finished_total",
			Help:      "Tasks finished, by outcome.",
		}, []string{"outcome"}),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Wall time of task work functions.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		scopesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scopes_created_total",
			Help:      "Scopes created.",
		}),
		scopesCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scopes_cancelled_total",
			Help:      "Scopes cancelled.",
		}),
		joinWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scope_join_wait_seconds",
			Help:      "Time spent blocked in Wait.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	for _, c := range []prometheus.Collector{
		m.activeTasks, m.tasksStarted, m.tasksFinished, m.taskDuration,
		m.scopesCreated, m.scopesCancelled, m.joinWait,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNew is New that panics on registration errors.
func MustNew(reg prometheus.Registerer, namespace string) *Metrics {
	m, err := New(reg, namespace)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Metrics) ScopeCreated(_ context.Context) {
	m.scopesCreated.Inc()
}

func (m *Metrics) ScopeCancelled(_ context.Context, _ error) {
	m.scopesCancelled.Inc()
}

func (m *Metrics) ScopeJoined(_ context.Context, wait time.Duration) {
	m.joinWait.Observe(wait.Seconds())
}

func (m *Metrics) TaskStarted(_ context.Context) {
	m.activeTasks.Inc()
	m.tasksStarted.Inc()
}

func (m *Metrics) TaskFinished(_ context.Context, dur time.Duration, err error, panicked bool) {
	m.activeTasks.Dec()
	m.tasksFinished.WithLabelValues(outcome(err, panicked)).Inc()
	m.taskDuration.Observe(dur.Seconds())
}

func outcome(err error, panicked bool) string {
	switch {
	case panicked:
		return OutcomePanic
	case err == nil:
		return OutcomeOK
	case errors.Is(err, scope.ErrCancelled),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	default:
		return OutcomeError
	}
}
