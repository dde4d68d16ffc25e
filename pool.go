package taskz

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability keys for Pool.
var (
	MetricPoolTasksTotal    = metricz.Key("taskz.pool.tasks.total")
	MetricPoolActiveWorkers = metricz.Key("taskz.pool.active.workers")

	SpanPoolRun = tracez.Key("pool.run")
)

// defaultPoolQueueCapacity bounds the number of tasks a Pool will hold
// before Push blocks the submitter. There is no such limit in spec §4.C -
// the source's queue is unbounded - but Module B is specified as a bounded
// primitive, so Pool picks a generous fixed capacity rather than
// reintroducing an unbounded container.
const defaultPoolQueueCapacity = 4096

// Pool is a fixed-size thread pool: a bounded Queue[Task] drained by n
// worker goroutines. It is the execution substrate every other component in
// the package (Scheduler, Dispatcher) submits onto.
//
//nolint:govet // fieldalignment: readability over an 8-byte padding difference
type Pool struct {
	mu      sync.Mutex
	queue   *Queue[Task]
	clock   clockz.Clock
	metrics *metricz.Registry
	tracer  *tracez.Tracer
	wg      sync.WaitGroup
	running bool
	workers int
	active  int
}

// NewPool constructs a Pool. It is not running until Start is called.
func NewPool() *Pool {
	metrics := metricz.New()
	metrics.Counter(MetricPoolTasksTotal)
	metrics.Gauge(MetricPoolActiveWorkers)

	return &Pool{
		queue:   NewQueue[Task](defaultPoolQueueCapacity),
		clock:   clockz.RealClock,
		metrics: metrics,
		tracer:  tracez.New(),
	}
}

// WithClock sets the clock implementation used for signal timestamps. This
// method is primarily intended for testing with clockz.NewFakeClock.
func (p *Pool) WithClock(clock clockz.Clock) *Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clock = clock
	return p
}

// Start clamps n to [1, runtime.NumCPU()], spawns n workers, and blocks the
// caller until every worker has entered its wait loop. It returns false if
// the pool is already running.
func (p *Pool) Start(n int) bool {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return false
	}
	if n < 1 {
		n = 1
	}
	if max := runtime.NumCPU(); n > max {
		n = max
	}

	p.queue.Reopen()
	p.running = true
	p.workers = n
	p.mu.Unlock()

	var ready sync.WaitGroup
	ready.Add(n)
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker(&ready)
	}
	ready.Wait()

	capitan.Info(context.Background(), SignalPoolStarted,
		FieldWorkerCount.Field(n),
		FieldTimestamp.Field(float64(p.clock.Now().Unix())),
	)
	return true
}

// Stop marks the pool not running, discards pending-but-not-started tasks,
// wakes every worker blocked in the queue, and joins them all before
// returning. Futures belonging to discarded tasks are never resolved.
// Returns false if the pool is not running.
func (p *Pool) Stop() bool {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return false
	}
	p.running = false
	p.mu.Unlock()

	p.queue.Drain()
	p.queue.Close()
	p.wg.Wait()

	capitan.Info(context.Background(), SignalPoolStopped,
		FieldTimestamp.Field(float64(p.clock.Now().Unix())),
	)
	return true
}

// Submit enqueues task for execution and returns true, or false if the pool
// has been stopped and its queue stays closed until the next Start. A task
// submitted while the pool has never been started simply waits in the
// queue until a worker is available; per spec §4.C this is a caller error
// to rely on, not a rejected submission.
func (p *Pool) Submit(task Task) bool {
	return p.queue.Push(task)
}

// ThreadsCount returns the number of workers spawned by the most recent
// Start call, or 0 if the pool has never been started.
func (p *Pool) ThreadsCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workers
}

// IsRunning reports whether the pool is currently accepting and executing
// tasks.
func (p *Pool) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Metrics returns the pool's metric registry.
func (p *Pool) Metrics() *metricz.Registry {
	return p.metrics
}

// Tracer returns the pool's tracer.
func (p *Pool) Tracer() *tracez.Tracer {
	return p.tracer
}

func (p *Pool) worker(ready *sync.WaitGroup) {
	defer p.wg.Done()
	capitan.Debug(context.Background(), SignalPoolWorkerReady,
		FieldTimestamp.Field(float64(p.clock.Now().Unix())),
	)
	ready.Done()

	for {
		task, ok := p.queue.Pop()
		if !ok {
			capitan.Info(context.Background(), SignalPoolWorkerStopped,
				FieldTimestamp.Field(float64(p.clock.Now().Unix())),
			)
			return
		}
		p.runTask(task)
	}
}

func (p *Pool) runTask(t Task) {
	ctx, span := p.tracer.StartSpan(context.Background(), SpanPoolRun)
	defer span.Finish()

	p.metrics.Counter(MetricPoolTasksTotal).Inc()
	p.adjustActive(1)
	defer p.adjustActive(-1)

	var err error
	func() {
		defer recoverTask("pool.task", &err)
		t.Invoke()
	}()
	_ = ctx
}

func (p *Pool) adjustActive(delta int) {
	p.mu.Lock()
	p.active += delta
	active := p.active
	p.mu.Unlock()
	p.metrics.Gauge(MetricPoolActiveWorkers).Set(float64(active))
}

// Run packages fn as a Task, submits it to p, and returns a Future for its
// result. fn is invoked with a background context; a panic inside fn is
// recovered and surfaced as the Future's error rather than killing the
// worker. If p's queue has been permanently closed (p was stopped and not
// restarted), the Future resolves immediately with ErrPoolNotRunning. Any
// other failure - a returned error or a recovered panic - resolves the
// Future with a *TaskError carrying the task's name, run duration, and
// timeout/canceled classification.
func Run[R any](p *Pool, fn func(context.Context) (R, error)) *Future[R] {
	future, resolve := newFuture[R]()

	task := NewTask(func() {
		result, err := invokeGuarded("pool.run", p.clock, fn)
		resolve(result, err)
	})

	if !p.Submit(task) {
		var zero R
		resolve(zero, ErrPoolNotRunning)
	}
	return future
}

// invokeGuarded runs fn behind the panic boundary and, on any failure -
// returned error or recovered panic - wraps it as a *TaskError stamped with
// name, elapsed duration, and timeout/canceled classification derived from
// the underlying error.
func invokeGuarded[R any](name string, clock clockz.Clock, fn func(context.Context) (R, error)) (result R, err error) {
	started := clock.Now()
	defer func() {
		if err == nil {
			return
		}
		err = &TaskError{
			Timestamp: clock.Now(),
			Err:       err,
			Name:      name,
			Duration:  clock.Now().Sub(started),
			Timeout:   errors.Is(err, context.DeadlineExceeded),
			Canceled:  errors.Is(err, context.Canceled),
		}
	}()
	defer recoverTask(name, &err)
	result, err = fn(context.Background())
	return result, err
}
