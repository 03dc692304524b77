package taskgroup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/NetPo4ki/go-taskgroup/scope"
)

// Work is a unit of work run by a group.
type Work[T any] func(ctx context.Context) (T, error)

// Result is the outcome of one task. ID is the task's 1-based submission
// number within its group.
type Result[T any] struct {
	ID    uint64
	Value T
	Err   error
}

// State is the lifecycle stage of a group.
type State int

const (
	// Open accepts Spawn.
	Open State = iota
	// Draining rejects Spawn; outstanding tasks still resolve and Next
	// keeps delivering them.
	Draining
	// Closed is terminal: every task has resolved.
	Closed
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Draining:
		return "draining"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Group owns a set of concurrently running tasks producing T.
//
// All bookkeeping (state, outstanding count, result queue) is guarded by
// a single mutex; task bodies run on goroutines of the underlying scope.
type Group[T any] struct {
	sc  *scope.Scope
	log *slog.Logger

	mu          sync.Mutex
	state       State
	seq         uint64
	outstanding int
	results     []Result[T]
	// ready is closed and replaced whenever results or state change.
	ready chan struct{}
}

// New creates an open group. The policy is required so that sibling
// cancellation on failure is always an explicit choice.
func New[T any](ctx context.Context, policy Policy, opts ...Option) *Group[T] {
	sc := scope.New(ctx, policy, opts...)
	return &Group[T]{
		sc:    sc,
		log:   sc.Logger().With("component", "taskgroup"),
		ready: make(chan struct{}),
	}
}

// Context returns the context passed to every task of the group.
func (g *Group[T]) Context() context.Context { return g.sc.Context() }

func (g *Group[T]) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Outstanding reports how many spawned tasks have not resolved yet.
func (g *Group[T]) Outstanding() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.outstanding
}

// Spawn schedules work for concurrent execution. It fails with ErrNotOpen
// once the group is draining or closed.
func (g *Group[T]) Spawn(work Work[T]) error {
	if work == nil {
		return ErrNilWork
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Open {
		g.log.Debug("spawn rejected", "state", g.state.String())
		return fmt.Errorf("%w: %s", ErrNotOpen, g.state)
	}
	g.seq++
	id := g.seq
	g.outstanding++

	// Registered with the scope under g.mu so that Close, which flips the
	// state under the same lock, always waits for this task.
	var value T
	g.sc.GoNotify(func(ctx context.Context) error {
		v, err := execute(ctx, id, work)
		value = v
		return err
	}, func(out scope.Outcome) {
		g.resolve(Result[T]{ID: id, Value: value, Err: classify(g.sc, id, out)})
	})
	return nil
}

func (g *Group[T]) resolve(res Result[T]) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.outstanding--
	g.results = append(g.results, res)
	g.broadcastLocked()
}

func (g *Group[T]) broadcastLocked() {
	close(g.ready)
	g.ready = make(chan struct{})
}

// Next blocks until an outstanding task resolves and returns its result.
// Results come in completion order. Once nothing is outstanding or
// buffered, Next returns ErrDone and the group stops accepting tasks, so
// every later call returns ErrDone too. If ctx ends first, Next returns
// ctx.Err() and the group is left untouched.
func (g *Group[T]) Next(ctx context.Context) (Result[T], error) {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		g.mu.Lock()
		if len(g.results) > 0 {
			res := g.results[0]
			g.results[0] = Result[T]{}
			g.results = g.results[1:]
			g.mu.Unlock()
			return res, nil
		}
		if g.outstanding == 0 {
			if g.state == Open {
				g.state = Draining
				g.log.Debug("group drained", "spawned", g.seq)
			}
			g.mu.Unlock()
			return Result[T]{}, ErrDone
		}
		ready := g.ready
		g.mu.Unlock()

		select {
		case <-ready:
		case <-ctx.Done():
			return Result[T]{}, ctx.Err()
		}
	}
}

// Cancel propagates cancellation to every outstanding task. Each of them
// still resolves, with a *CancelledError carrying cause.
func (g *Group[T]) Cancel(cause error) {
	g.sc.Cancel(cause)
}

// Close stops new submissions and blocks until every outstanding task has
// resolved. Tasks are run to completion, not discarded.
//
// Close returns the first failure that was not retrieved through Next and
// removes it from the queue, so it is reported exactly once; every other
// unretrieved result can still be read with Next. Calling Close again
// returns nil. Close must not be called from inside one of the group's
// own tasks.
func (g *Group[T]) Close() error {
	g.mu.Lock()
	if g.state == Open {
		g.state = Draining
	}
	g.mu.Unlock()

	_ = g.sc.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == Closed {
		return nil
	}
	g.state = Closed
	err := g.takeFirstErrLocked()
	g.broadcastLocked()
	g.log.Debug("group closed", "spawned", g.seq, "unretrieved", len(g.results), "error", err)
	return err
}

func (g *Group[T]) takeFirstErrLocked() error {
	for i, res := range g.results {
		if res.Err == nil {
			continue
		}
		g.results = append(g.results[:i], g.results[i+1:]...)
		return res.Err
	}
	return nil
}

func execute[T any](ctx context.Context, id uint64, work Work[T]) (T, error) {
	if ctx.Err() != nil {
		var zero T
		return zero, &CancelledError{ID: id, Cause: context.Cause(ctx)}
	}
	v, err := work(ctx)
	if err == nil {
		return v, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return v, &CancelledError{ID: id, Cause: context.Cause(ctx)}
	}
	return v, &WorkError{ID: id, Err: err}
}

// classify turns a scope outcome into the error stored on the result.
// Errors returned by execute are already classified.
func classify(sc *scope.Scope, id uint64, out scope.Outcome) error {
	switch {
	case out.Err == nil:
		return nil
	case out.Skipped:
		return &CancelledError{ID: id, Cause: context.Cause(sc.Context())}
	case out.Panicked:
		return &WorkError{ID: id, Err: out.Err}
	default:
		return out.Err
	}
}
