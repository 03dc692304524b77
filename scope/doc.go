// Package scope provides structured-concurrency primitives for Go.
// Scopes own the tasks they spawn, provide a join point (Wait), and
// propagate cancellation and errors predictably according to a policy.
//
// A Scope is also the executor behind package taskgroup: GoNotify runs
// an opaque unit of work on its own goroutine and reports the Outcome
// back, even when the work was skipped because the scope was cancelled
// first.
package scope
