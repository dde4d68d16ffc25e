package taskz

import "time"

// Task is a type-erased, parameterless unit of work. It is created by an
// enqueuer, moved into a Queue[Task], moved out by a worker, invoked exactly
// once, and discarded. Go has no move semantics, so "move-only" here is a
// convention: a Task should be handed off once (enqueued) and invoked once;
// reusing one after Invoke is a programming error, not a runtime-checked one.
//
// Return values are not carried by Task itself - a caller who needs a result
// embeds a promise/future pair inside the wrapped closure (see Future[R] and
// Run).
type Task struct {
	fn        func()
	createdAt time.Time
}

// NewTask wraps fn as a Task. fn must be parameterless and return nothing;
// results are surfaced out-of-band through a Future.
func NewTask(fn func()) Task {
	return Task{fn: fn, createdAt: time.Now()}
}

// Invoke runs the wrapped callable. It does not recover panics - callers
// that need panic containment (Pool workers, the Timer's worker loop) wrap
// Invoke in their own recover boundary so a failure can be attributed and
// reported in context (a failed Future, a capitan debug signal) rather than
// silently swallowed here.
func (t Task) Invoke() {
	t.fn()
}

// CreatedAt returns when the Task was constructed, used only for
// observability timestamps (capitan signal fields), not scheduling.
func (t Task) CreatedAt() time.Time {
	return t.createdAt
}

// IsZero reports whether t is the zero Task (no callable set).
func (t Task) IsZero() bool {
	return t.fn == nil
}
