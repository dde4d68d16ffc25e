package taskz

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/metricz"
)

// Observability keys for Timer.
var (
	MetricTimerInvokedTotal = metricz.Key("taskz.timer.invoked.total")
	MetricTimerMissedTotal  = metricz.Key("taskz.timer.missed.total")
)

// Timer invokes a single stored callback on a fixed cadence anchored to its
// original start time, not to the end of the previous invocation: a slow
// callback causes intervening ticks to be skipped (counted as missed)
// rather than queued up or run back-to-back.
//
//nolint:govet // fieldalignment: readability over an 8-byte padding difference
type Timer struct {
	mu          sync.Mutex
	callback    Task
	hasCallback bool
	interval    time.Duration
	running     bool
	stopCh      chan struct{}
	done        chan struct{}
	clock       clockz.Clock
	metrics     *metricz.Registry

	invoked int64
	missed  int64
}

// NewTimer constructs a Timer with no callback set and not running.
func NewTimer() *Timer {
	metrics := metricz.New()
	metrics.Counter(MetricTimerInvokedTotal)
	metrics.Counter(MetricTimerMissedTotal)
	return &Timer{clock: clockz.RealClock, metrics: metrics}
}

// WithClock sets the clock implementation used for scheduling and signal
// timestamps. This method is primarily intended for testing with
// clockz.NewFakeClock, and must be called before Start.
func (t *Timer) WithClock(clock clockz.Clock) *Timer {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clock = clock
	return t
}

// SetCallback stores fn as the Timer's Task. It does not start the Timer.
func (t *Timer) SetCallback(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callback = NewTask(fn)
	t.hasCallback = true
}

// Start requires a callback to already be set, returning false otherwise.
// It stops any run already in progress, resets both counters to zero, anchors
// the first fire to now+interval, spawns the worker goroutine, and blocks
// until that goroutine has entered its wait loop.
func (t *Timer) Start(interval time.Duration) bool {
	t.mu.Lock()
	if !t.hasCallback {
		t.mu.Unlock()
		return false
	}
	t.mu.Unlock()

	t.Stop()

	t.mu.Lock()
	atomic.StoreInt64(&t.invoked, 0)
	atomic.StoreInt64(&t.missed, 0)
	t.interval = interval
	t.running = true
	t.stopCh = make(chan struct{})
	done := make(chan struct{})
	t.done = done
	stopCh := t.stopCh
	nextFire := t.clock.Now().Add(interval)
	t.mu.Unlock()

	ready := make(chan struct{})
	go t.run(nextFire, ready, stopCh, done)
	<-ready

	capitan.Info(context.Background(), SignalTimerStarted,
		FieldInterval.Field(interval.Seconds()),
		FieldTimestamp.Field(float64(t.clock.Now().Unix())),
	)
	return true
}

// Stop halts the worker goroutine, if one is running, and joins it before
// returning. Calling Stop when the Timer is not running is a no-op.
func (t *Timer) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	stopCh := t.stopCh
	done := t.done
	t.mu.Unlock()

	close(stopCh)
	<-done

	capitan.Info(context.Background(), SignalTimerStopped,
		FieldInvokedCount.Field(int(atomic.LoadInt64(&t.invoked))),
		FieldMissedCount.Field(int(atomic.LoadInt64(&t.missed))),
		FieldTimestamp.Field(float64(t.clock.Now().Unix())),
	)
}

// InvokedCallbackCount returns a snapshot of how many times the callback
// has fired since the most recent Start.
func (t *Timer) InvokedCallbackCount() int64 {
	return atomic.LoadInt64(&t.invoked)
}

// MissedCallbackCount returns a snapshot of how many scheduled ticks were
// skipped (because the callback overran its interval) since the most
// recent Start.
func (t *Timer) MissedCallbackCount() int64 {
	return atomic.LoadInt64(&t.missed)
}

func (t *Timer) run(nextFire time.Time, ready, stopCh, done chan struct{}) {
	defer close(done)
	close(ready)

	for {
		now := t.clock.Now()
		wait := nextFire.Sub(now)
		if wait < 0 {
			wait = 0
		}

		select {
		case <-stopCh:
			return
		case <-t.clock.After(wait):
		}

		t.mu.Lock()
		if !t.running {
			t.mu.Unlock()
			return
		}
		cb := t.callback
		interval := t.interval
		t.mu.Unlock()

		var err error
		func() {
			defer recoverTask("timer.callback", &err)
			cb.Invoke()
		}()
		atomic.AddInt64(&t.invoked, 1)
		t.metrics.Counter(MetricTimerInvokedTotal).Inc()

		// Advance to the next scheduled tick, anchored to the original
		// start+k*interval sequence. The first advance always happens -
		// it is the tick we just serviced moving to the one ahead of it;
		// any further advances needed to get past "now" are ticks that
		// were skipped because the callback overran its interval.
		now = t.clock.Now()
		nextFire = nextFire.Add(interval)
		var missedThisTick int64
		for now.After(nextFire) {
			nextFire = nextFire.Add(interval)
			missedThisTick++
		}
		if missedThisTick > 0 {
			atomic.AddInt64(&t.missed, missedThisTick)
			t.metrics.Counter(MetricTimerMissedTotal).Add(float64(missedThisTick))
			capitan.Warn(context.Background(), SignalTimerMissed,
				FieldMissedCount.Field(int(missedThisTick)),
				FieldTimestamp.Field(float64(now.Unix())),
			)
		}
	}
}
