package otel

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/goleak"

	"github.com/NetPo4ki/go-taskgroup/taskgroup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordingSpan captures what the observer writes; everything else falls
// through to the no-op span.
type recordingSpan struct {
	noop.Span

	mu     sync.Mutex
	events []string
	errs   []error
	status codes.Code
}

func (s *recordingSpan) IsRecording() bool { return true }

func (s *recordingSpan) AddEvent(name string, _ ...trace.EventOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, name)
}

func (s *recordingSpan) RecordError(err error, _ ...trace.EventOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *recordingSpan) SetStatus(code codes.Code, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = code
}

func (s *recordingSpan) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e == name {
			n++
		}
	}
	return n
}

func TestObserverEmitsEvents(t *testing.T) {
	t.Parallel()
	span := &recordingSpan{}
	ctx := trace.ContextWithSpan(context.Background(), span)
	errBad := errors.New("bad")

	g := taskgroup.New[int](ctx, taskgroup.Supervisor, taskgroup.WithObserver(New()))
	_ = g.Spawn(func(context.Context) (int, error) { return 1, nil })
	_ = g.Spawn(func(context.Context) (int, error) { return 0, errBad })
	_ = g.Spawn(func(context.Context) (int, error) { panic("boom") })
	_, _ = g.Collect(context.Background())
	_ = g.Close()

	for name, want := range map[string]int{
		EventScopeCreated:   1,
		EventTaskStarted:    3,
		EventTaskFinished:   3,
		EventScopeJoined:    1,
		EventScopeCancelled: 0,
	} {
		if got := span.count(name); got != want {
			t.Fatalf("event %s: got %d, want %d", name, got, want)
		}
	}
	span.mu.Lock()
	defer span.mu.Unlock()
	if len(span.errs) != 2 {
		t.Fatalf("expected 2 recorded errors, got %v", span.errs)
	}
	if span.status != codes.Error {
		t.Fatalf("expected error status after panic, got %v", span.status)
	}
}

func TestObserverSkipsCancellationErrors(t *testing.T) {
	t.Parallel()
	span := &recordingSpan{}
	ctx := trace.ContextWithSpan(context.Background(), span)

	g := taskgroup.New[int](ctx, taskgroup.Supervisor, taskgroup.WithObserver(New()))
	_ = g.Spawn(func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	g.Cancel(errors.New("stop"))
	_ = g.Close()

	if got := span.count(EventScopeCancelled); got != 1 {
		t.Fatalf("expected one cancel event, got %d", got)
	}
	span.mu.Lock()
	defer span.mu.Unlock()
	if len(span.errs) != 0 {
		t.Fatalf("cancellation should not be recorded as span error: %v", span.errs)
	}
}

func TestObserverWithoutSpanIsNoop(t *testing.T) {
	t.Parallel()
	g := taskgroup.New[int](context.Background(), taskgroup.FailFast, taskgroup.WithObserver(New()))
	_ = g.Spawn(func(context.Context) (int, error) { return 0, errors.New("bad") })
	_ = g.Close()
}
