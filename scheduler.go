package taskz

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability keys for Scheduler.
var (
	MetricSchedulerTasksSize = metricz.Key("taskz.scheduler.tasks.size")

	SpanSchedulerTick = tracez.Key("scheduler.tick")
)

// schedulable is one entry in the scheduler's fire-time-ordered heap.
type schedulable struct {
	fireAt    time.Time
	submit    func(pool *Pool)
	ident     identity
	seq       int64
	interval  time.Duration
	recurring bool
	hasID     bool
	enabled   bool
	index     int
}

// schedulableHeap implements container/heap.Interface, ordered by fire time
// with insertion-order (seq) as the tiebreaker, matching spec §5's "ties
// broken by insertion order" ordering guarantee.
type schedulableHeap []*schedulable

func (h schedulableHeap) Len() int { return len(h) }
func (h schedulableHeap) Less(i, j int) bool {
	if h[i].fireAt.Equal(h[j].fireAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].fireAt.Before(h[j].fireAt)
}
func (h schedulableHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *schedulableHeap) Push(x any) {
	s := x.(*schedulable) //nolint:forcetypeassert // container/heap contract
	s.index = len(*h)
	*h = append(*h, s)
}
func (h *schedulableHeap) Pop() any {
	old := *h
	n := len(old)
	s := old[n-1]
	old[n-1] = nil
	s.index = -1
	*h = old[:n-1]
	return s
}

// TaskInfo is a point-in-time snapshot of one identity-carrying schedulable,
// returned by Scheduler.Tasks for introspection.
type TaskInfo struct {
	NextFireTime time.Time
	ID           string
	Interval     time.Duration
	Recurring    bool
	Enabled      bool
}

// Scheduler dispatches one-shot and recurring tasks at caller-specified
// times by handing them to an internal Pool when their fire time arrives.
//
//nolint:govet // fieldalignment: readability over an 8-byte padding difference
type Scheduler struct {
	mu      sync.Mutex
	pool    *Pool
	heap    schedulableHeap
	byID    map[uint64][]*schedulable
	wake    chan struct{}
	stopCh  chan struct{}
	done    chan struct{}
	clock   clockz.Clock
	metrics *metricz.Registry
	tracer  *tracez.Tracer
	running bool
	nextSeq int64
}

// NewScheduler constructs a Scheduler whose pool workers are allocated
// lazily, by Start(n).
func NewScheduler() *Scheduler {
	metrics := metricz.New()
	metrics.Gauge(MetricSchedulerTasksSize)

	return &Scheduler{
		pool:    NewPool(),
		byID:    make(map[uint64][]*schedulable),
		wake:    make(chan struct{}, 1),
		clock:   clockz.RealClock,
		metrics: metrics,
		tracer:  tracez.New(),
	}
}

// findLocked resolves ident to its schedulable, if any. byID buckets
// entries by hash, so a lookup first narrows to the (rare) bucket of
// hash-colliding entries, then confirms identity with identity.equal -
// a hash match alone is never treated as sufficient.
func (s *Scheduler) findLocked(ident identity) (*schedulable, bool) {
	for _, candidate := range s.byID[ident.hash] {
		if candidate.ident.equal(ident) {
			return candidate, true
		}
	}
	return nil, false
}

func (s *Scheduler) insertLocked(entry *schedulable) {
	s.byID[entry.ident.hash] = append(s.byID[entry.ident.hash], entry)
}

func (s *Scheduler) removeLocked(ident identity) {
	bucket := s.byID[ident.hash]
	for i, candidate := range bucket {
		if !candidate.ident.equal(ident) {
			continue
		}
		remaining := append(bucket[:i:i], bucket[i+1:]...)
		if len(remaining) == 0 {
			delete(s.byID, ident.hash)
		} else {
			s.byID[ident.hash] = remaining
		}
		return
	}
}

// WithClock sets the clock implementation used for fire-time computation
// and signal timestamps, and propagates it to the internal Pool. This
// method is primarily intended for testing with clockz.NewFakeClock, and
// must be called before Start.
func (s *Scheduler) WithClock(clock clockz.Clock) *Scheduler {
	s.mu.Lock()
	s.clock = clock
	s.mu.Unlock()
	s.pool.WithClock(clock)
	return s
}

// Start starts the internal thread pool with n workers, then spawns the
// scheduler goroutine. Returns false if already running.
func (s *Scheduler) Start(n int) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return false
	}
	s.running = true
	s.stopCh = make(chan struct{})
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	s.pool.Start(n)

	ready := make(chan struct{})
	go s.loop(ready, s.stopCh, done)
	<-ready

	capitan.Info(context.Background(), SignalSchedulerStarted,
		FieldWorkerCount.Field(n),
		FieldTimestamp.Field(float64(s.clock.Now().Unix())),
	)
	return true
}

// Stop stops the internal pool, wakes the scheduler goroutine, clears every
// pending schedulable (their futures, if any, never resolve), and joins the
// scheduler goroutine. Returns false if not running.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return false
	}
	s.running = false
	stopCh := s.stopCh
	done := s.done
	s.mu.Unlock()

	close(stopCh)
	<-done

	s.mu.Lock()
	s.heap = nil
	s.byID = make(map[uint64][]*schedulable)
	s.mu.Unlock()
	s.metrics.Gauge(MetricSchedulerTasksSize).Set(0)

	s.pool.Stop()

	capitan.Info(context.Background(), SignalSchedulerStopped,
		FieldTimestamp.Field(float64(s.clock.Now().Unix())),
	)
	return true
}

// At schedules fn to run once, anonymously, at when.
func (s *Scheduler) At(when time.Time, fn func()) bool {
	return s.schedule(identity{}, false, when, 0, false, fn)
}

// AtID schedules fn to run once at when, under id. Rejected if id already
// exists.
func (s *Scheduler) AtID(id string, when time.Time, fn func()) bool {
	return s.schedule(newIdentity(id), true, when, 0, false, fn)
}

// In schedules fn to run once, anonymously, after delay.
func (s *Scheduler) In(delay time.Duration, fn func()) bool {
	return s.schedule(identity{}, false, s.clock.Now().Add(delay), 0, false, fn)
}

// InID schedules fn to run once after delay, under id. Rejected if id
// already exists.
func (s *Scheduler) InID(id string, delay time.Duration, fn func()) bool {
	return s.schedule(newIdentity(id), true, s.clock.Now().Add(delay), 0, false, fn)
}

// Every schedules fn to run anonymously on a recurring cadence, first
// firing one interval from now.
func (s *Scheduler) Every(interval time.Duration, fn func()) bool {
	return s.schedule(identity{}, false, s.clock.Now().Add(interval), interval, true, fn)
}

// EveryID schedules fn to run on a recurring cadence under id, first
// firing one interval from now. Rejected if id already exists.
func (s *Scheduler) EveryID(id string, interval time.Duration, fn func()) bool {
	return s.schedule(newIdentity(id), true, s.clock.Now().Add(interval), interval, true, fn)
}

// EveryIDDelay schedules fn to run on a recurring cadence under id, with
// the first firing offset by initialDelay instead of a full interval.
// Rejected if id already exists.
func (s *Scheduler) EveryIDDelay(id string, interval, initialDelay time.Duration, fn func()) bool {
	return s.schedule(newIdentity(id), true, s.clock.Now().Add(initialDelay), interval, true, fn)
}

func (s *Scheduler) schedule(ident identity, hasID bool, when time.Time, interval time.Duration, recurring bool, fn func()) bool {
	if recurring && interval <= 0 {
		capitan.Warn(context.Background(), SignalSchedulerTaskRejected,
			FieldTaskID.Field(ident.id),
			FieldTimestamp.Field(float64(s.clock.Now().Unix())),
		)
		return false
	}

	s.mu.Lock()
	if hasID {
		if _, exists := s.findLocked(ident); exists {
			s.mu.Unlock()
			capitan.Warn(context.Background(), SignalSchedulerTaskRejected,
				FieldTaskID.Field(ident.id),
				FieldTimestamp.Field(float64(s.clock.Now().Unix())),
			)
			return false
		}
	}

	entry := &schedulable{
		fireAt:    when,
		ident:     ident,
		hasID:     hasID,
		seq:       s.nextSeq,
		interval:  interval,
		recurring: recurring,
		enabled:   true,
		submit: func(pool *Pool) {
			pool.Submit(NewTask(fn))
		},
	}
	s.nextSeq++
	heap.Push(&s.heap, entry)
	if hasID {
		s.insertLocked(entry)
	}
	size := len(s.heap)
	s.mu.Unlock()

	s.metrics.Gauge(MetricSchedulerTasksSize).Set(float64(size))
	capitan.Info(context.Background(), SignalSchedulerTaskScheduled,
		FieldTaskID.Field(ident.id),
		FieldRecurring.Field(boolField(recurring)),
		FieldTasksSize.Field(size),
		FieldTimestamp.Field(float64(s.clock.Now().Unix())),
	)
	s.notify()
	return true
}

// ScheduleAt schedules a one-shot, result-bearing callable at an absolute
// time and returns its Future alongside an acceptance bool. An empty id is
// the anonymous convention; a non-empty id that collides with an existing
// schedulable is rejected, returning a nil Future.
func ScheduleAt[R any](s *Scheduler, id string, when time.Time, fn func(context.Context) (R, error)) (*Future[R], bool) {
	future, resolve := newFuture[R]()
	ok := s.scheduleFuture(id, when, 0, false, func(pool *Pool) {
		submitGuarded(pool, "scheduler.task", fn, resolve)
	})
	if !ok {
		return nil, false
	}
	return future, true
}

// ScheduleIn schedules a one-shot, result-bearing callable after delay and
// returns its Future alongside an acceptance bool, with the same id
// convention as ScheduleAt.
func ScheduleIn[R any](s *Scheduler, id string, delay time.Duration, fn func(context.Context) (R, error)) (*Future[R], bool) {
	return ScheduleAt(s, id, s.clock.Now().Add(delay), fn)
}

// submitGuarded submits fn to pool and routes its result through resolve.
// It is the glue ScheduleAt/ScheduleIn use to hand a schedulable's callable
// to the scheduler's internal pool while still producing a Future.
func submitGuarded[R any](pool *Pool, name string, fn func(context.Context) (R, error), resolve func(R, error)) {
	pool.Submit(NewTask(func() {
		result, err := invokeGuarded(name, pool.clock, fn)
		resolve(result, err)
	}))
}

func (s *Scheduler) scheduleFuture(id string, when time.Time, interval time.Duration, recurring bool, submit func(*Pool)) bool {
	hasID := id != ""
	ident := newIdentity(id)

	s.mu.Lock()
	if hasID {
		if _, exists := s.findLocked(ident); exists {
			s.mu.Unlock()
			return false
		}
	}

	entry := &schedulable{
		fireAt:    when,
		ident:     ident,
		hasID:     hasID,
		seq:       s.nextSeq,
		interval:  interval,
		recurring: recurring,
		enabled:   true,
		submit:    submit,
	}
	s.nextSeq++
	heap.Push(&s.heap, entry)
	if hasID {
		s.insertLocked(entry)
	}
	size := len(s.heap)
	s.mu.Unlock()

	s.metrics.Gauge(MetricSchedulerTasksSize).Set(float64(size))
	s.notify()
	return true
}

// TasksSize returns the number of schedulables currently held, identity-
// carrying and anonymous alike.
func (s *Scheduler) TasksSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.heap)
}

// IsScheduled reports whether an identity-carrying schedulable with id
// currently exists.
func (s *Scheduler) IsScheduled(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.findLocked(newIdentity(id))
	return ok
}

// IsEnabled reports whether the schedulable with id is enabled. Unknown ids
// return false.
func (s *Scheduler) IsEnabled(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.findLocked(newIdentity(id))
	if !ok {
		return false
	}
	return entry.enabled
}

// SetEnabled toggles whether the schedulable with id dispatches on its next
// fire, without removing its slot. Returns false for unknown ids.
func (s *Scheduler) SetEnabled(id string, enabled bool) bool {
	s.mu.Lock()
	entry, ok := s.findLocked(newIdentity(id))
	if !ok {
		s.mu.Unlock()
		return false
	}
	entry.enabled = enabled
	s.mu.Unlock()

	capitan.Info(context.Background(), SignalSchedulerTaskScheduled,
		FieldTaskID.Field(id),
		FieldEnabled.Field(boolField(enabled)),
		FieldTimestamp.Field(float64(s.clock.Now().Unix())),
	)
	return true
}

// RemoveTask removes the schedulable with id entirely. Returns false for
// unknown ids.
func (s *Scheduler) RemoveTask(id string) bool {
	ident := newIdentity(id)

	s.mu.Lock()
	entry, ok := s.findLocked(ident)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.removeLocked(ident)
	if entry.index >= 0 && entry.index < len(s.heap) {
		heap.Remove(&s.heap, entry.index)
	}
	size := len(s.heap)
	s.mu.Unlock()

	s.metrics.Gauge(MetricSchedulerTasksSize).Set(float64(size))
	capitan.Info(context.Background(), SignalSchedulerTaskRemoved,
		FieldTaskID.Field(id),
		FieldTasksSize.Field(size),
		FieldTimestamp.Field(float64(s.clock.Now().Unix())),
	)
	s.notify()
	return true
}

// GetInterval returns the recurring interval for the identity-carrying
// schedulable with id. The second return is false for unknown ids or
// one-shot schedulables (which carry no interval).
func (s *Scheduler) GetInterval(id string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.findLocked(newIdentity(id))
	if !ok || !entry.recurring {
		return 0, false
	}
	return entry.interval, true
}

// UpdateInterval is valid only for recurring, identity-carrying
// schedulables. It recomputes the next fire time as
// current_next_fire - old_interval + new_interval, advanced past now if
// that lands in the past, and re-heapifies the entry. Returns false for
// unknown ids or non-recurring entries.
func (s *Scheduler) UpdateInterval(id string, newInterval time.Duration) bool {
	s.mu.Lock()
	entry, ok := s.findLocked(newIdentity(id))
	if !ok || !entry.recurring {
		s.mu.Unlock()
		return false
	}

	next := entry.fireAt.Add(-entry.interval).Add(newInterval)
	now := s.clock.Now()
	for !next.After(now) {
		next = next.Add(newInterval)
	}
	entry.fireAt = next
	entry.interval = newInterval
	if entry.index >= 0 {
		heap.Fix(&s.heap, entry.index)
	}
	s.mu.Unlock()

	capitan.Info(context.Background(), SignalSchedulerIntervalUpdate,
		FieldTaskID.Field(id),
		FieldInterval.Field(newInterval.Seconds()),
		FieldTimestamp.Field(float64(s.clock.Now().Unix())),
	)
	s.notify()
	return true
}

// Tasks returns a snapshot of every identity-carrying schedulable.
func (s *Scheduler) Tasks() []TaskInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]TaskInfo, 0, len(s.byID))
	for _, bucket := range s.byID {
		for _, entry := range bucket {
			infos = append(infos, TaskInfo{
				ID:           entry.ident.id,
				NextFireTime: entry.fireAt,
				Interval:     entry.interval,
				Recurring:    entry.recurring,
				Enabled:      entry.enabled,
			})
		}
	}
	return infos
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop(ready, stopCh, done chan struct{}) {
	defer close(done)
	close(ready)

	for {
		s.mu.Lock()
		empty := len(s.heap) == 0
		var next time.Time
		if !empty {
			next = s.heap[0].fireAt
		}
		s.mu.Unlock()

		if empty {
			select {
			case <-stopCh:
				return
			case <-s.wake:
				continue
			}
		}

		wait := next.Sub(s.clock.Now())
		if wait < 0 {
			wait = 0
		}

		select {
		case <-stopCh:
			return
		case <-s.wake:
			continue
		case <-s.clock.After(wait):
			s.tick()
		}
	}
}

// tick detaches every entry whose fire time has arrived, submits the
// enabled ones to the pool, and re-inserts recurring entries at their next
// fixed-phase fire time.
func (s *Scheduler) tick() {
	_, span := s.tracer.StartSpan(context.Background(), SpanSchedulerTick)
	defer span.Finish()

	now := s.clock.Now()

	s.mu.Lock()
	var ready []*schedulable
	for len(s.heap) > 0 && !s.heap[0].fireAt.After(now) {
		entry := heap.Pop(&s.heap).(*schedulable) //nolint:forcetypeassert // container/heap contract
		ready = append(ready, entry)
	}

	for _, entry := range ready {
		if entry.recurring {
			next := entry.fireAt
			for !next.After(now) {
				next = next.Add(entry.interval)
			}
			entry.fireAt = next
			heap.Push(&s.heap, entry)
		} else if entry.hasID {
			s.removeLocked(entry.ident)
		}
	}
	size := len(s.heap)
	s.mu.Unlock()

	s.metrics.Gauge(MetricSchedulerTasksSize).Set(float64(size))

	for _, entry := range ready {
		if !entry.enabled {
			continue
		}
		entry.submit(s.pool)
		capitan.Debug(context.Background(), SignalSchedulerTaskFired,
			FieldTaskID.Field(entry.ident.id),
			FieldTimestamp.Field(float64(now.Unix())),
		)
	}
}

func boolField(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
