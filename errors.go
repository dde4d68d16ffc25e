package taskz

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel rejections. Per spec §7, capacity/uniqueness and state
// rejections are reported as bool/option returns, not errors - these
// sentinels exist only where a rejection has to travel through a Future's
// error (Run on a stopped pool, observed via Future.Get/Wait) rather than a
// second bool.
var (
	// ErrPoolNotRunning is the error a Future returned by Run resolves with,
	// immediately, when the pool's queue has been closed by Stop and not
	// reopened by a later Start. A never-started pool does not produce it:
	// the task is enqueued and runs once the pool starts.
	ErrPoolNotRunning = errors.New("taskz: pool is not running")
)

// TaskError provides rich context about a failed task execution: what ran,
// when, how long it took, and whether the failure was a panic, a timeout,
// or a plain error returned by the callable.
type TaskError struct {
	Timestamp time.Time
	Err       error
	Name      string
	Duration  time.Duration
	Timeout   bool
	Canceled  bool
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	if e == nil {
		return "<nil>"
	}
	name := e.Name
	if name == "" {
		name = "task"
	}
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s timed out after %v: %v", name, e.Duration, e.Err)
	case e.Canceled:
		return fmt.Sprintf("%s canceled after %v: %v", name, e.Duration, e.Err)
	default:
		return fmt.Sprintf("%s failed after %v: %v", name, e.Duration, e.Err)
	}
}

// Unwrap supports errors.Is/errors.As against the underlying cause.
func (e *TaskError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTimeout reports whether the failure was a timeout, including a plain
// context.DeadlineExceeded from the underlying error.
func (e *TaskError) IsTimeout() bool {
	if e == nil {
		return false
	}
	return e.Timeout || errors.Is(e.Err, context.DeadlineExceeded)
}

// IsCanceled reports whether the failure was a cancellation.
func (e *TaskError) IsCanceled() bool {
	if e == nil {
		return false
	}
	return e.Canceled || errors.Is(e.Err, context.Canceled)
}

// IsPanic reports whether the failure originated from a recovered panic
// inside the user callable.
func (e *TaskError) IsPanic() bool {
	if e == nil {
		return false
	}
	var panicErr *PanicError
	return errors.As(e.Err, &panicErr)
}
