package scope

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
)

// Policy decides what a scope does when one of its tasks fails.
type Policy int

const (
	// FailFast cancels the remaining tasks on the first error.
	FailFast Policy = iota
	// Supervisor records the first error and lets siblings finish.
	Supervisor
)

func (p Policy) String() string {
	switch p {
	case FailFast:
		return "failfast"
	case Supervisor:
		return "supervisor"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ErrCancelled marks a task that was cancelled before or during execution.
var ErrCancelled = errors.New("scope: task cancelled")

type Option func(*Options)

type Options struct {
	PanicAsError   bool
	Observer       Observer
	MaxConcurrency int
	Timeout        time.Duration
	Logger         *slog.Logger
}

func defaultOptions() Options { return Options{PanicAsError: true} }

func WithPanicAsError(v bool) Option { return func(o *Options) { o.PanicAsError = v } }

func WithObserver(obs Observer) Option { return func(o *Options) { o.Observer = obs } }

func WithMaxConcurrency(n int) Option { return func(o *Options) { o.MaxConcurrency = n } }

// WithTimeout cancels the scope once d has elapsed since creation.
func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }

func WithLogger(l *slog.Logger) Option { return func(o *Options) { o.Logger = l } }

type Observer interface {
	ScopeCreated(ctx context.Context)
	ScopeCancelled(ctx context.Context, cause error)
	ScopeJoined(ctx context.Context, wait time.Duration)
	TaskStarted(ctx context.Context)
	TaskFinished(ctx context.Context, dur time.Duration, err error, panicked bool)
}

// Outcome is how a single task resolved. It is handed to the notify
// callback of GoNotify before the task is counted as finished by Wait.
type Outcome struct {
	Err      error
	Duration time.Duration
	Panicked bool
	// Skipped is set when the scope was cancelled while the task waited
	// for a concurrency slot; fn was never invoked.
	Skipped bool
}

type Scope struct {
	ctx      context.Context
	cancel   context.CancelCauseFunc
	stop     context.CancelFunc
	parent   *Scope
	policy   Policy
	wg       sync.WaitGroup
	mu       sync.Mutex
	firstErr error
	canceled bool

	opts Options
	obs  Observer
	lim  Limiter
	log  *slog.Logger
}

func New(parent context.Context, policy Policy, optFns ...Option) *Scope {
	if parent == nil {
		parent = context.Background()
	}
	opts := defaultOptions()
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}
	return newScope(parent, nil, policy, opts)
}

func newScope(parentCtx context.Context, parent *Scope, policy Policy, opts Options) *Scope {
	ctx, cancel := context.WithCancelCause(parentCtx)
	s := &Scope{ctx: ctx, cancel: cancel, parent: parent, policy: policy, opts: opts, obs: opts.Observer}
	if opts.Timeout > 0 {
		s.ctx, s.stop = context.WithTimeout(ctx, opts.Timeout)
	}
	s.log = opts.Logger
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	if opts.MaxConcurrency > 0 {
		s.lim = newSemaphoreLimiter(opts.MaxConcurrency)
	}
	if s.obs != nil {
		s.obs.ScopeCreated(s.ctx)
	}
	s.log.Debug("scope created", "policy", policy.String(), "max_concurrency", opts.MaxConcurrency)
	return s
}

func (s *Scope) Context() context.Context { return s.ctx }

func (s *Scope) Policy() Policy { return s.policy }

func (s *Scope) Logger() *slog.Logger { return s.log }

// Go runs fn in its own goroutine owned by the scope.
func (s *Scope) Go(fn func(ctx context.Context) error) {
	s.GoNotify(fn, nil)
}

// GoNotify is Go with a completion callback. notify runs exactly once per
// accepted fn, on the task's goroutine, before Wait can observe the task as
// finished. It also runs for tasks that never started because the scope was
// cancelled while they waited for a concurrency slot.
func (s *Scope) GoNotify(fn func(ctx context.Context) error, notify func(Outcome)) {
	if fn == nil {
		return
	}
	s.track(1)
	go func() {
		defer s.track(-1)
		out, rec := s.run(fn)
		if notify != nil {
			notify(out)
		}
		if rec != nil && !s.opts.PanicAsError {
			panic(rec)
		}
		s.fail(out.Err)
	}()
}

// track adjusts the join counters of s and every ancestor, so a parent's
// Wait also joins tasks started on its children.
func (s *Scope) track(delta int) {
	for p := s; p != nil; p = p.parent {
		p.wg.Add(delta)
	}
}

func (s *Scope) run(fn func(ctx context.Context) error) (Outcome, *panics.Recovered) {
	if s.lim != nil {
		if err := s.lim.Acquire(s.ctx); err != nil {
			return Outcome{Err: fmt.Errorf("%w: %w", ErrCancelled, context.Cause(s.ctx)), Skipped: true}, nil
		}
		defer s.lim.Release()
	}

	start := time.Now()
	if s.obs != nil {
		s.obs.TaskStarted(s.ctx)
	}

	var (
		pc  panics.Catcher
		err error
	)
	pc.Try(func() { err = fn(s.ctx) })
	out := Outcome{Err: err, Duration: time.Since(start)}

	rec := pc.Recovered()
	if rec != nil {
		out.Panicked = true
		out.Err = rec.AsError()
		s.log.Warn("task panicked", "panic", fmt.Sprint(rec.Value), "rethrow", !s.opts.PanicAsError)
	}
	if s.obs != nil {
		obsErr := out.Err
		if out.Panicked && !s.opts.PanicAsError {
			obsErr = nil
		}
		s.obs.TaskFinished(s.ctx, out.Duration, obsErr, out.Panicked)
	}
	return out, rec
}

// Cancel cancels the scope. The first non-nil err becomes both the
// context cause and the error returned by Wait.
func (s *Scope) Cancel(err error) {
	s.mu.Lock()
	wasCanceled := s.canceled
	s.canceled = true
	if s.firstErr == nil && err != nil {
		s.firstErr = err
	}
	cause := s.firstErr
	s.mu.Unlock()

	if wasCanceled {
		return
	}
	if cause == nil {
		s.cancel(context.Canceled)
	} else {
		s.cancel(cause)
	}
	if s.obs != nil {
		s.obs.ScopeCancelled(s.ctx, cause)
	}
	s.log.Debug("scope cancelled", "cause", cause)
}

// Wait blocks until every task of the scope and of its children has
// finished and returns the first recorded error. The scope context is
// cancelled once Wait returns; an earlier cancellation cause is kept.
func (s *Scope) Wait() error {
	start := time.Now()
	s.wg.Wait()
	wait := time.Since(start)
	if s.obs != nil {
		s.obs.ScopeJoined(s.ctx, wait)
	}
	s.mu.Lock()
	firstErr := s.firstErr
	s.mu.Unlock()
	s.log.Debug("scope joined", "wait", wait, "error", firstErr)

	s.cancel(context.Canceled)
	if s.stop != nil {
		s.stop()
	}
	return firstErr
}

func (s *Scope) fail(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	if s.firstErr == nil {
		s.firstErr = err
	}
	shouldCancel := s.policy == FailFast
	cause := s.firstErr
	s.mu.Unlock()
	if shouldCancel {
		s.Cancel(cause)
	}
}

// Child creates a scope whose context derives from s. Options not given
// are inherited, except the timeout: the child already observes the
// parent's deadline through its context.
func (s *Scope) Child(policy Policy, optFns ...Option) *Scope {
	childOpts := s.opts
	childOpts.Timeout = 0
	for _, fn := range optFns {
		if fn != nil {
			fn(&childOpts)
		}
	}
	return newScope(s.ctx, s, policy, childOpts)
}

type multiObserver []Observer

// Observers fans every hook out to each non-nil observer in order.
func Observers(obs ...Observer) Observer {
	m := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func (m multiObserver) ScopeCreated(ctx context.Context) {
	for _, o := range m {
		o.ScopeCreated(ctx)
	}
}

func (m multiObserver) ScopeCancelled(ctx context.Context, cause error) {
	for _, o := range m {
		o.ScopeCancelled(ctx, cause)
	}
}

func (m multiObserver) ScopeJoined(ctx context.Context, wait time.Duration) {
	for _, o := range m {
		o.ScopeJoined(ctx, wait)
	}
}

func (m multiObserver) TaskStarted(ctx context.Context) {
	for _, o := range m {
		o.TaskStarted(ctx)
	}
}

func (m multiObserver) TaskFinished(ctx context.Context, dur time.Duration, err error, panicked bool) {
	for _, o := range m {
		o.TaskFinished(ctx, dur, err, panicked)
	}
}
