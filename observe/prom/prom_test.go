package prom

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"

	"github.com/NetPo4ki/go-taskgroup/taskgroup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMetricsCountOutcomes(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewPedanticRegistry()
	m := MustNew(reg, "tg")

	g := taskgroup.New[int](context.Background(), taskgroup.Supervisor, taskgroup.WithObserver(m))
	_ = g.Spawn(func(context.Context) (int, error) { return 1, nil })
	_ = g.Spawn(func(context.Context) (int, error) { return 2, nil })
	_ = g.Spawn(func(context.Context) (int, error) { return 0, errors.New("bad") })
	_ = g.Spawn(func(context.Context) (int, error) { panic("boom") })
	if _, err := g.Collect(context.Background()); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	_ = g.Close()

	checks := map[string]float64{
		OutcomeOK:    2,
		OutcomeError: 1,
		OutcomePanic: 1,
	}
	for label, want := range checks {
		if got := testutil.ToFloat64(m.tasksFinished.WithLabelValues(label)); got != want {
			t.Fatalf("tasks_finished_total{outcome=%q} = %v, want %v", label, got, want)
		}
	}
	if got := testutil.ToFloat64(m.tasksStarted); got != 4 {
		t.Fatalf("tasks_started_total = %v, want 4", got)
	}
	if got := testutil.ToFloat64(m.activeTasks); got != 0 {
		t.Fatalf("tasks_active = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.scopesCreated); got != 1 {
		t.Fatalf("scopes_created_total = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.joinWait); n != 1 {
		t.Fatalf("expected join histogram to be collected, got %d series", n)
	}
}

func TestMetricsCountCancellation(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := MustNew(reg, "tg")

	g := taskgroup.New[int](context.Background(), taskgroup.FailFast, taskgroup.WithObserver(m))
	_ = g.Spawn(func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	g.Cancel(errors.New("stop"))
	_ = g.Close()

	if got := testutil.ToFloat64(m.tasksFinished.WithLabelValues(OutcomeCancelled)); got != 1 {
		t.Fatalf("cancelled = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.scopesCancelled); got != 1 {
		t.Fatalf("scopes_cancelled_total = %v, want 1", got)
	}
}

func TestNewRejectsDuplicateRegistration(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	if _, err := New(reg, "dup"); err != nil {
		t.Fatalf("first New: %v", err)
	}
	if _, err := New(reg, "dup"); err == nil {
		t.Fatal("expected AlreadyRegisteredError on second New")
	}
}
