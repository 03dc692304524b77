package taskgroup

import (
	"errors"
	"fmt"

	"github.com/NetPo4ki/go-taskgroup/scope"
)

var (
	// ErrDone is returned by Next once no task is outstanding and no
	// result is left to deliver.
	ErrDone = errors.New("taskgroup: no outstanding tasks")

	// ErrNotOpen is returned by Spawn after the group started draining.
	ErrNotOpen = errors.New("taskgroup: group is not accepting tasks")

	// ErrNilWork is returned by Spawn when the work function is nil.
	ErrNilWork = errors.New("taskgroup: nil work")

	// ErrCancelled matches every *CancelledError.
	ErrCancelled = scope.ErrCancelled
)

// WorkError reports a task whose work function failed or panicked.
type WorkError struct {
	ID  uint64
	Err error
}

func (e *WorkError) Error() string {
	return fmt.Sprintf("taskgroup: task %d failed: %v", e.ID, e.Err)
}

func (e *WorkError) Unwrap() error { return e.Err }

// CancelledError reports a task that was cancelled before or during
// execution. Cause is the cancellation cause of the group.
type CancelledError struct {
	ID    uint64
	Cause error
}

func (e *CancelledError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("taskgroup: task %d cancelled", e.ID)
	}
	return fmt.Sprintf("taskgroup: task %d cancelled: %v", e.ID, e.Cause)
}

func (e *CancelledError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrCancelled}
	}
	return []error{ErrCancelled, e.Cause}
}
