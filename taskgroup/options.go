package taskgroup

import (
	"log/slog"
	"time"

	"github.com/NetPo4ki/go-taskgroup/scope"
)

// Policy selects what happens to siblings when a task fails.
type Policy = scope.Policy

const (
	// FailFast cancels every outstanding sibling on the first work failure.
	FailFast = scope.FailFast
	// Supervisor lets siblings run to completion after a failure.
	Supervisor = scope.Supervisor
)

// Option configures the scope a group runs its tasks on.
type Option = scope.Option

// WithMaxConcurrency bounds how many work functions execute at once.
// Zero means unbounded.
func WithMaxConcurrency(n int) Option { return scope.WithMaxConcurrency(n) }

// WithTimeout cancels the group d after it was created.
func WithTimeout(d time.Duration) Option { return scope.WithTimeout(d) }

// WithPanicAsError controls whether a panicking task resolves with a
// *WorkError (true, the default) or re-panics.
func WithPanicAsError(v bool) Option { return scope.WithPanicAsError(v) }

func WithObserver(obs scope.Observer) Option { return scope.WithObserver(obs) }

func WithLogger(l *slog.Logger) Option { return scope.WithLogger(l) }
