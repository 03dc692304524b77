package taskgroup

import (
	"context"
	"errors"
	"fmt"
	"iter"
)

// All returns a lazy sequence over Next. Each step yields the value and
// error of one result in completion order. The sequence ends at ErrDone;
// if ctx ends first, it yields ctx.Err() once and stops.
func (g *Group[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			res, err := g.Next(ctx)
			if errors.Is(err, ErrDone) {
				return
			}
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !yield(res.Value, res.Err) {
				return
			}
		}
	}
}

// Collect drains the group with Next and returns the results in
// completion order.
func (g *Group[T]) Collect(ctx context.Context) ([]Result[T], error) {
	var out []Result[T]
	for {
		res, err := g.Next(ctx)
		if errors.Is(err, ErrDone) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
}

// Run creates a group, calls body with it and closes the group on every
// exit path. If body fails or panics the group is cancelled first; the
// tasks still resolve before Run returns or re-panics.
//
// Run returns the body's error, or else the first failure Close surfaced.
func Run[T any](ctx context.Context, policy Policy, body func(ctx context.Context, g *Group[T]) error, opts ...Option) (err error) {
	g := New[T](ctx, policy, opts...)
	defer func() {
		if r := recover(); r != nil {
			g.Cancel(fmt.Errorf("taskgroup: body panicked: %v", r))
			_ = g.Close()
			panic(r)
		}
		if err != nil {
			g.Cancel(err)
			_ = g.Close()
			return
		}
		err = g.Close()
	}()
	return body(g.Context(), g)
}
