// Package taskz provides a concurrent execution SDK built around four
// tightly coupled subsystems: a bounded thread pool, a time-triggered task
// scheduler, a high-precision periodic timer, and a typed event dispatcher.
//
// # Overview
//
// The SDK is organized leaf-first:
//
//   - Task: a move-by-convention, parameterless unit of work (task.go).
//   - Queue[T]: a bounded, blocking FIFO used internally by Pool and exposed
//     directly as a standalone primitive (queue.go).
//   - Pool: a fixed-size worker set consuming a Queue[Task], returning
//     Future[R] values for asynchronous results (pool.go, future.go).
//   - Timer: a single periodic callback driver with drift-corrected
//     scheduling and invoked/missed counters (timer.go).
//   - Scheduler: a time-ordered collection of schedulables dispatched
//     through a Pool, with identity-based enable/disable/remove/retune
//     (scheduler.go).
//   - Dispatcher: a typed event-name + argument-signature -> handler-list
//     registry dispatched through a Pool (dispatcher.go, signature.go).
//   - Observable[T]: an equality-gated value with a synchronous callback
//     plus optional hookz-based subscribers (observable.go).
//
// # Time and observability
//
// Every time-aware component takes a github.com/zoobzio/clockz.Clock and
// defaults to clockz.RealClock, so tests can drive scheduling deterministically
// with clockz.NewFakeClock(). State transitions are emitted as
// github.com/zoobzio/capitan signals rather than ad-hoc logging; counters are
// mirrored into a github.com/zoobzio/metricz registry; the pool, scheduler,
// and dispatcher wrap their work in github.com/zoobzio/tracez spans; and
// typed, hookz-based subscriptions are layered on top of the spec-required
// synchronous callbacks wherever a component exposes one.
//
// # Error handling
//
// Capacity and uniqueness rejections (a full queue's TryPush, a scheduler id
// collision, stopping an already-stopped component) are reported as boolean
// or (value, bool) returns, never as errors or panics. A panic inside a
// user-supplied callable is recovered at the worker boundary, logged as a
// capitan debug signal, and surfaced as a failed Future; it never kills a
// pool worker or the scheduler/timer goroutine.
//
// # Usage example
//
//	pool := taskz.NewPool()
//	pool.Start(4)
//	defer pool.Stop()
//
//	future := taskz.Run(pool, func(_ context.Context) (int, error) {
//	    return 42, nil
//	})
//	result, err := future.Get(context.Background())
package taskz
