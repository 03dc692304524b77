// Package errgroup provides an adapter that mimics golang.org/x/sync/errgroup
// semantics on top of taskgroup. It lets errgroup call sites move to
// structured task groups without rewriting their control flow.
package errgroup

import (
	"context"
	"errors"
	"sync"

	"github.com/NetPo4ki/go-taskgroup/taskgroup"
)

// Group is an errgroup-like wrapper over taskgroup.Group (FailFast).
type Group struct {
	g   *taskgroup.Group[struct{}]
	ctx context.Context

	mu     sync.Mutex
	waited bool
	err    error
}

// WithContext creates a Group bound to ctx. Returned context is canceled when
// any function passed to Go returns a non-nil error.
func WithContext(ctx context.Context, opts ...taskgroup.Option) (*Group, context.Context) {
	g := &Group{g: taskgroup.New[struct{}](ctx, taskgroup.FailFast, opts...)}
	g.ctx = g.g.Context()
	return g, g.ctx
}

// Go starts a function. It should return a non-nil error to signal failure.
// Calls after Wait are ignored, as the underlying group no longer accepts
// work.
func (g *Group) Go(f func() error) {
	_ = g.TryGo(f)
}

// TryGo is Go that reports whether f was accepted.
func (g *Group) TryGo(f func() error) bool {
	if f == nil {
		return false
	}
	err := g.g.Spawn(func(context.Context) (struct{}, error) {
		return struct{}{}, f()
	})
	return err == nil
}

// Wait blocks until all functions have returned. It returns the first non-nil
// error (FailFast semantics) or nil on success. Errors are unwrapped from the
// taskgroup result types so callers see what f returned.
//
// Like errgroup, the context from WithContext is cancelled once Wait
// returns. Later calls return the same error as the first one.
func (g *Group) Wait() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.waited {
		return g.err
	}
	g.err = unwrap(g.g.Close())
	// Remaining results are never read; release them.
	_, _ = g.g.Collect(context.Background())
	g.waited = true
	return g.err
}

func unwrap(err error) error {
	var werr *taskgroup.WorkError
	if errors.As(err, &werr) {
		return werr.Err
	}
	var cerr *taskgroup.CancelledError
	if errors.As(err, &cerr) && cerr.Cause != nil {
		return cerr.Cause
	}
	return err
}
