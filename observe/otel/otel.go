package otel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/NetPo4ki/go-taskgroup/scope"
)

// Event names emitted on the active span.
const (
	EventScopeCreated   = "scope.created"
	EventScopeCancelled = "scope.cancelled"
	EventScopeJoined    = "scope.joined"
	EventTaskStarted    = "task.started"
	EventTaskFinished   = "task.finished"
)

// Observer implements scope.Observer by annotating the span found in the
// scope context. Without a recording span every hook is a no-op.
type Observer struct {
	attrs []attribute.KeyValue
}

var _ scope.Observer = (*Observer)(nil)

// New returns an Observer that adds attrs to every event it emits.
func New(attrs ...attribute.KeyValue) *Observer {
	return &Observer{attrs: attrs}
}

func (o *Observer) event(ctx context.Context, name string, extra ...attribute.KeyValue) trace.Span {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return span
	}
	attrs := make([]attribute.KeyValue, 0, len(o.attrs)+len(extra))
	attrs = append(attrs, o.attrs...)
	attrs = append(attrs, extra...)
	span.AddEvent(name, trace.WithAttributes(attrs...))
	return span
}

func (o *Observer) ScopeCreated(ctx context.Context) {
	o.event(ctx, EventScopeCreated)
}

func (o *Observer) ScopeCancelled(ctx context.Context, cause error) {
	var extra []attribute.KeyValue
	if cause != nil {
		extra = append(extra, attribute.String("scope.cause", cause.Error()))
	}
	o.event(ctx, EventScopeCancelled, extra...)
}

func (o *Observer) ScopeJoined(ctx context.Context, wait time.Duration) {
	o.event(ctx, EventScopeJoined, attribute.Int64("scope.wait_ns", wait.Nanoseconds()))
}

func (o *Observer) TaskStarted(ctx context.Context) {
	o.event(ctx, EventTaskStarted)
}

func (o *Observer) TaskFinished(ctx context.Context, dur time.Duration, err error, panicked bool) {
	cancelled := errors.Is(err, scope.ErrCancelled) || errors.Is(err, context.Canceled)
	span := o.event(ctx, EventTaskFinished,
		attribute.Int64("task.duration_ns", dur.Nanoseconds()),
		attribute.Bool("task.panicked", panicked),
		attribute.Bool("task.cancelled", cancelled),
	)
	if !span.IsRecording() {
		return
	}
	// cancellations are expected control flow, not span errors
	if err != nil && !cancelled {
		span.RecordError(err)
	}
	if panicked {
		span.SetStatus(codes.Error, fmt.Sprintf("task panicked: %v", err))
	}
}
