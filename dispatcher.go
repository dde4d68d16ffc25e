package taskz

import (
	"context"
	"strings"
	"sync"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability keys for Dispatcher.
var (
	MetricDispatcherEmitsTotal = metricz.Key("taskz.dispatcher.emits.total")

	SpanDispatcherEmit = tracez.Key("dispatcher.emit")
)

// HandlerID identifies a registered handler for the lifetime of one
// start/stop cycle. Ids are reused across cycles: Stop resets the counter,
// matching spec §4.F/§9 "ids are unique per run between start and stop."
type HandlerID int

type handlerRecord struct {
	invoke func(args any)
	id     HandlerID
}

// Dispatcher is a typed pub/sub registry keyed on (event name, argument
// type). Handlers registered for one argument type never see emits carrying
// a different, even structurally similar, argument type.
//
//nolint:govet // fieldalignment: readability over an 8-byte padding difference
type Dispatcher struct {
	mu       sync.Mutex
	handlers map[string][]*handlerRecord
	pool     *Pool
	clock    clockz.Clock
	metrics  *metricz.Registry
	tracer   *tracez.Tracer
	nextID   int
	running  bool
}

// NewDispatcher constructs a Dispatcher backed by its own internal Pool.
func NewDispatcher() *Dispatcher {
	metrics := metricz.New()
	metrics.Counter(MetricDispatcherEmitsTotal)

	return &Dispatcher{
		handlers: make(map[string][]*handlerRecord),
		pool:     NewPool(),
		clock:    clockz.RealClock,
		metrics:  metrics,
		tracer:   tracez.New(),
	}
}

// WithClock sets the clock implementation used for signal timestamps, and
// propagates it to the internal Pool. This method is primarily intended
// for testing with clockz.NewFakeClock.
func (d *Dispatcher) WithClock(clock clockz.Clock) *Dispatcher {
	d.mu.Lock()
	d.clock = clock
	d.mu.Unlock()
	d.pool.WithClock(clock)
	return d
}

// Start starts the internal thread pool with n workers. Returns false if
// already running.
func (d *Dispatcher) Start(n int) bool {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return false
	}
	d.running = true
	d.mu.Unlock()

	d.pool.Start(n)
	capitan.Info(context.Background(), SignalDispatcherStarted,
		FieldWorkerCount.Field(n),
		FieldTimestamp.Field(float64(d.clock.Now().Unix())),
	)
	return true
}

// Stop stops the internal pool and clears every registered handler,
// resetting the id counter. Returns false if not running.
func (d *Dispatcher) Stop() bool {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return false
	}
	d.running = false
	d.handlers = make(map[string][]*handlerRecord)
	d.nextID = 0
	d.mu.Unlock()

	d.pool.Stop()
	capitan.Info(context.Background(), SignalDispatcherStopped,
		FieldTimestamp.Field(float64(d.clock.Now().Unix())),
	)
	return true
}

// AddHandler registers handler under the composite key of eventName and the
// decayed type Args, returning a fresh id for later removal.
func AddHandler[Args any](d *Dispatcher, eventName string, handler func(Args)) HandlerID {
	key := eventKey[Args](eventName)

	d.mu.Lock()
	id := HandlerID(d.nextID)
	d.nextID++
	rec := &handlerRecord{
		id: id,
		invoke: func(args any) {
			handler(args.(Args)) //nolint:forcetypeassert // key encodes the exact Args type
		},
	}
	d.handlers[key] = append(d.handlers[key], rec)
	size := len(d.handlers[key])
	d.mu.Unlock()

	capitan.Info(context.Background(), SignalDispatcherHandlerAdded,
		FieldEventName.Field(eventName),
		FieldHandlerID.Field(int(id)),
		FieldHandlerSize.Field(size),
		FieldTimestamp.Field(float64(d.clock.Now().Unix())),
	)
	return id
}

// Emit snapshots the handlers registered for (eventName, Args) under the
// lock, releases it, and submits one pool task per handler carrying args.
// Returns false if no handler is currently registered for this exact
// composite key - a mismatched Args type is indistinguishable from no
// handlers at all, per spec §4.F's "wrong type" cases.
func Emit[Args any](d *Dispatcher, eventName string, args Args) bool {
	key := eventKey[Args](eventName)

	d.mu.Lock()
	recs, ok := d.handlers[key]
	var snapshot []*handlerRecord
	if ok {
		snapshot = make([]*handlerRecord, len(recs))
		copy(snapshot, recs)
	}
	d.mu.Unlock()

	if !ok {
		capitan.Debug(context.Background(), SignalDispatcherEmitUnknown,
			FieldEventName.Field(eventName),
			FieldTimestamp.Field(float64(d.clock.Now().Unix())),
		)
		return false
	}

	_, span := d.tracer.StartSpan(context.Background(), SpanDispatcherEmit)
	defer span.Finish()

	d.metrics.Counter(MetricDispatcherEmitsTotal).Inc()
	for _, rec := range snapshot {
		rec := rec
		d.pool.Submit(NewTask(func() {
			var err error
			func() {
				defer recoverTask("dispatcher.handler", &err)
				rec.invoke(args)
			}()
		}))
	}

	capitan.Info(context.Background(), SignalDispatcherEmitted,
		FieldEventName.Field(eventName),
		FieldHandlerSize.Field(len(snapshot)),
		FieldTimestamp.Field(float64(d.clock.Now().Unix())),
	)
	return true
}

// RemoveHandler scans every key for the first matching id and removes it,
// deleting the key entirely if its handler list becomes empty. Returns
// false if no handler with id exists.
func (d *Dispatcher) RemoveHandler(id HandlerID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, recs := range d.handlers {
		for i, rec := range recs {
			if rec.id != id {
				continue
			}
			d.handlers[key] = append(recs[:i:i], recs[i+1:]...)
			if len(d.handlers[key]) == 0 {
				delete(d.handlers, key)
			}
			capitan.Info(context.Background(), SignalDispatcherHandlerRemoved,
				FieldHandlerID.Field(int(id)),
				FieldTimestamp.Field(float64(d.clock.Now().Unix())),
			)
			return true
		}
	}
	return false
}

// RemoveEvent removes every key whose event-name component matches
// eventName, regardless of argument type. Returns false if no key matched.
func (d *Dispatcher) RemoveEvent(eventName string) bool {
	prefix := eventKeyPrefix(eventName)

	d.mu.Lock()
	defer d.mu.Unlock()

	removed := false
	for key := range d.handlers {
		if strings.HasPrefix(key, prefix) {
			delete(d.handlers, key)
			removed = true
		}
	}
	if removed {
		capitan.Info(context.Background(), SignalDispatcherHandlerRemoved,
			FieldEventName.Field(eventName),
			FieldTimestamp.Field(float64(d.clock.Now().Unix())),
		)
	}
	return removed
}

// HandlerCount returns the total number of handlers registered for
// eventName across every argument type.
func (d *Dispatcher) HandlerCount(eventName string) int {
	prefix := eventKeyPrefix(eventName)

	d.mu.Lock()
	defer d.mu.Unlock()

	count := 0
	for key, recs := range d.handlers {
		if strings.HasPrefix(key, prefix) {
			count += len(recs)
		}
	}
	return count
}

// EventNames returns the distinct event names with at least one registered
// handler, regardless of argument type.
func (d *Dispatcher) EventNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	seen := make(map[string]struct{})
	names := make([]string, 0, len(d.handlers))
	for key := range d.handlers {
		name := key
		if i := strings.IndexByte(key, '#'); i >= 0 {
			name = key[:i]
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
