package taskgroup

import (
	"context"

	"github.com/NetPo4ki/go-taskgroup/scope"
)

// Task is a single piece of work started with Async. It is the
// one-element form of a Group: spawn now, await the result later.
type Task[T any] struct {
	sc   *scope.Scope
	done chan struct{}
	res  Result[T]
}

// Async starts work on its own scope and returns a handle to await it.
// A nil work resolves immediately with ErrNilWork.
func Async[T any](ctx context.Context, work Work[T], opts ...Option) *Task[T] {
	t := &Task[T]{
		sc:   scope.New(ctx, Supervisor, opts...),
		done: make(chan struct{}),
	}
	if work == nil {
		t.res = Result[T]{ID: 1, Err: ErrNilWork}
		close(t.done)
		return t
	}

	var value T
	t.sc.GoNotify(func(ctx context.Context) error {
		v, err := execute(ctx, 1, work)
		value = v
		return err
	}, func(out scope.Outcome) {
		t.res = Result[T]{ID: 1, Value: value, Err: classify(t.sc, 1, out)}
		close(t.done)
	})
	return t
}

// Done is closed once the task has resolved.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Cancel asks the task to stop. It still resolves, with a *CancelledError.
func (t *Task[T]) Cancel(cause error) { t.sc.Cancel(cause) }

// Await blocks until the task resolves or ctx ends. It may be called any
// number of times and from several goroutines; all see the same result.
func (t *Task[T]) Await(ctx context.Context) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-t.done:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	_ = t.sc.Wait()
	return t.res.Value, t.res.Err
}
