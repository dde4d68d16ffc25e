package taskz

import (
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

func TestTimerStart(t *testing.T) {
	t.Run("FailsWithoutCallback", func(t *testing.T) {
		tm := NewTimer()
		if tm.Start(time.Second) {
			t.Error("expected Start without a callback to return false")
		}
	})

	t.Run("SucceedsWithCallback", func(t *testing.T) {
		tm := NewTimer()
		tm.SetCallback(func() {})
		if !tm.Start(time.Hour) {
			t.Fatal("expected Start with a callback to succeed")
		}
		tm.Stop()
	})

	t.Run("ResetsCountersOnRestart", func(t *testing.T) {
		clock := clockz.NewFakeClock()
		tm := NewTimer().WithClock(clock)

		fired := make(chan struct{}, 8)
		tm.SetCallback(func() { fired <- struct{}{} })
		tm.Start(10 * time.Millisecond)

		clock.Advance(10 * time.Millisecond)
		clock.BlockUntilReady()
		waitForSignal(t, fired)

		if tm.InvokedCallbackCount() < 1 {
			t.Fatalf("expected at least one invocation, got %d", tm.InvokedCallbackCount())
		}

		tm.Start(time.Hour) // restart
		if tm.InvokedCallbackCount() != 0 {
			t.Errorf("expected counters reset on restart, got invoked=%d", tm.InvokedCallbackCount())
		}
		tm.Stop()
	})
}

func TestTimerFiring(t *testing.T) {
	t.Run("FiresOnSchedule", func(t *testing.T) {
		clock := clockz.NewFakeClock()
		tm := NewTimer().WithClock(clock)

		fired := make(chan struct{}, 8)
		tm.SetCallback(func() { fired <- struct{}{} })
		tm.Start(50 * time.Millisecond)
		defer tm.Stop()

		clock.Advance(50 * time.Millisecond)
		clock.BlockUntilReady()
		waitForSignal(t, fired)

		if tm.InvokedCallbackCount() != 1 {
			t.Errorf("expected invoked count 1, got %d", tm.InvokedCallbackCount())
		}
		if tm.MissedCallbackCount() != 0 {
			t.Errorf("expected missed count 0, got %d", tm.MissedCallbackCount())
		}
	})

	t.Run("CountsMissedTicksOnOverrun", func(t *testing.T) {
		clock := clockz.NewFakeClock()
		tm := NewTimer().WithClock(clock)

		fired := make(chan struct{}, 8)
		tm.SetCallback(func() {
			clock.Advance(250 * time.Millisecond) // simulate a slow callback
			fired <- struct{}{}
		})
		tm.Start(100 * time.Millisecond)
		defer tm.Stop()

		clock.Advance(100 * time.Millisecond)
		clock.BlockUntilReady()
		waitForSignal(t, fired)

		if tm.InvokedCallbackCount() != 1 {
			t.Fatalf("expected invoked count 1, got %d", tm.InvokedCallbackCount())
		}
		if tm.MissedCallbackCount() == 0 {
			t.Error("expected at least one missed tick after a 250ms callback on a 100ms interval")
		}
	})

	t.Run("PanicInCallbackDoesNotStopTimer", func(t *testing.T) {
		clock := clockz.NewFakeClock()
		tm := NewTimer().WithClock(clock)

		calls := make(chan struct{}, 8)
		tm.SetCallback(func() {
			calls <- struct{}{}
			panic("timer boom")
		})
		tm.Start(10 * time.Millisecond)
		defer tm.Stop()

		clock.Advance(10 * time.Millisecond)
		clock.BlockUntilReady()
		waitForSignal(t, calls)

		clock.Advance(10 * time.Millisecond)
		clock.BlockUntilReady()
		waitForSignal(t, calls)

		if tm.InvokedCallbackCount() < 2 {
			t.Errorf("expected timer to keep firing after a panic, invoked=%d", tm.InvokedCallbackCount())
		}
	})
}

func TestTimerStop(t *testing.T) {
	t.Run("StopIsANoOpWhenNotRunning", func(t *testing.T) {
		tm := NewTimer()
		tm.Stop() // must not panic or block
	})

	t.Run("StopJoinsWorker", func(t *testing.T) {
		tm := NewTimer()
		tm.SetCallback(func() {})
		tm.Start(time.Hour)
		tm.Stop()
		// A second Stop must also be a safe no-op.
		tm.Stop()
	})
}

func waitForSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for signal")
	}
}
