package taskz

import (
	"context"
	"sync"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
)

// changeKey is the single hookz key every Observable instance emits on,
// scoped per-instance by the hookz.Hooks[T] registry each Observable owns.
const changeKey = hookz.Key("observable.changed")

// ObservableChange carries both sides of a transition to OnChange
// subscribers, since hookz.Hooks[T] hooks deliver a single payload value.
type ObservableChange[T any] struct {
	Old T
	New T
}

// Observable holds a comparable value and serializes notification of its
// changes. Assignment that doesn't change the value (new == current) is a
// no-op: no callback invocation, no OnChange emission.
//
//nolint:govet // fieldalignment: readability over an 8-byte padding difference
type Observable[T comparable] struct {
	mu              sync.Mutex
	value           T
	callback        func(old, new T)
	hooks           *hookz.Hooks[ObservableChange[T]]
	clock           clockz.Clock
	callbackEnabled bool
}

// NewObservable constructs an Observable holding initial, with callback as
// the primary, synchronous-under-lock change handler. callback may be nil,
// in which case only OnChange subscribers (if any) are notified.
func NewObservable[T comparable](initial T, callback func(old, new T)) *Observable[T] {
	return &Observable[T]{
		value:           initial,
		callback:        callback,
		callbackEnabled: true,
		hooks:           hookz.New[ObservableChange[T]](),
		clock:           clockz.RealClock,
	}
}

// WithClock sets the clock implementation used for signal timestamps. This
// method is primarily intended for testing with clockz.NewFakeClock.
func (o *Observable[T]) WithClock(clock clockz.Clock) *Observable[T] {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clock = clock
	return o
}

// Value returns the current value.
func (o *Observable[T]) Value() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.value
}

// CallbackEnabled reports whether the primary callback currently fires on
// change.
func (o *Observable[T]) CallbackEnabled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.callbackEnabled
}

// SetCallbackEnabled toggles whether the primary callback fires on change.
// OnChange subscribers are unaffected.
func (o *Observable[T]) SetCallbackEnabled(enabled bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.callbackEnabled = enabled
}

// Set stores newValue if it differs from the current value. While still
// holding the lock, it invokes the primary callback (if enabled) and emits
// to every OnChange subscriber, so concurrent Set calls observe a
// serialized callback sequence matching the order their assignments took
// effect.
func (o *Observable[T]) Set(newValue T) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if newValue == o.value {
		return
	}
	old := o.value
	o.value = newValue

	if o.callbackEnabled && o.callback != nil {
		o.callback(old, newValue)
	}

	_ = o.hooks.Emit(context.Background(), changeKey, ObservableChange[T]{Old: old, New: newValue}) //nolint:errcheck

	capitan.Debug(context.Background(), SignalObservableChanged,
		FieldTimestamp.Field(float64(o.clock.Now().Unix())),
	)
}

// OnChange registers an additional subscriber notified after the primary
// callback, under the same lock-held serialization as Set.
func (o *Observable[T]) OnChange(handler func(context.Context, ObservableChange[T]) error) (hookz.HookID, error) {
	return o.hooks.Hook(changeKey, handler)
}

// Close releases the Observable's hook registry. Call it once the
// Observable is no longer in use.
func (o *Observable[T]) Close() {
	o.hooks.Close()
}
