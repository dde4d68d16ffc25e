package taskz

import (
	"sync"
	"testing"
	"time"
)

func TestQueue(t *testing.T) {
	t.Run("PushPopFIFO", func(t *testing.T) {
		q := NewQueue[int](4)
		for i := 0; i < 4; i++ {
			if !q.Push(i) {
				t.Fatalf("Push(%d) should succeed", i)
			}
		}
		for i := 0; i < 4; i++ {
			v, ok := q.Pop()
			if !ok || v != i {
				t.Fatalf("expected Pop to return %d, got %d (ok=%v)", i, v, ok)
			}
		}
	})

	t.Run("CapacityClampedToAtLeastOne", func(t *testing.T) {
		q := NewQueue[int](0)
		if q.Capacity() != 1 {
			t.Errorf("expected capacity clamped to 1, got %d", q.Capacity())
		}
	})

	t.Run("TryPushFailsWhenFull", func(t *testing.T) {
		q := NewQueue[int](1)
		if !q.TryPush(1) {
			t.Fatal("expected first TryPush to succeed")
		}
		if q.TryPush(2) {
			t.Fatal("expected TryPush on a full queue to fail")
		}
	})

	t.Run("TryPopFailsWhenEmpty", func(t *testing.T) {
		q := NewQueue[int](1)
		if _, ok := q.TryPop(); ok {
			t.Fatal("expected TryPop on an empty queue to fail")
		}
	})

	t.Run("PushBlocksUntilSpaceAvailable", func(t *testing.T) {
		q := NewQueue[int](1)
		q.Push(1)

		done := make(chan struct{})
		go func() {
			q.Push(2)
			close(done)
		}()

		select {
		case <-done:
			t.Fatal("Push should have blocked on a full queue")
		case <-time.After(20 * time.Millisecond):
		}

		q.Pop()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Push should have unblocked after room was freed")
		}
	})

	t.Run("PopBlocksUntilItemAvailable", func(t *testing.T) {
		q := NewQueue[int](4)
		result := make(chan int, 1)
		go func() {
			v, _ := q.Pop()
			result <- v
		}()

		select {
		case <-result:
			t.Fatal("Pop should have blocked on an empty queue")
		case <-time.After(20 * time.Millisecond):
		}

		q.Push(42)
		select {
		case v := <-result:
			if v != 42 {
				t.Errorf("expected 42, got %d", v)
			}
		case <-time.After(time.Second):
			t.Fatal("Pop should have unblocked after an item was pushed")
		}
	})

	t.Run("Drain", func(t *testing.T) {
		q := NewQueue[int](4)
		q.Push(1)
		q.Push(2)
		q.Push(3)

		drained := q.Drain()
		if len(drained) != 3 {
			t.Fatalf("expected 3 drained items, got %d", len(drained))
		}
		if q.Size() != 0 {
			t.Fatalf("expected queue empty after Drain, got size %d", q.Size())
		}
	})

	t.Run("CloseWakesBlockedPush", func(t *testing.T) {
		q := NewQueue[int](1)
		q.Push(1) // fill it

		result := make(chan bool, 1)
		go func() {
			result <- q.Push(2)
		}()
		time.Sleep(20 * time.Millisecond)
		q.Close()

		select {
		case ok := <-result:
			if ok {
				t.Error("expected blocked Push on a closed queue to return false")
			}
		case <-time.After(time.Second):
			t.Fatal("Close should have woken the blocked Push")
		}
	})

	t.Run("CloseDrainsThenReturnsFalseOnPop", func(t *testing.T) {
		q := NewQueue[int](4)
		q.Push(1)
		q.Close()

		v, ok := q.Pop()
		if !ok || v != 1 {
			t.Fatalf("expected remaining item 1 to still be poppable, got %d (ok=%v)", v, ok)
		}
		if _, ok := q.Pop(); ok {
			t.Fatal("expected Pop on an empty, closed queue to return false")
		}
	})

	t.Run("ReopenAllowsReuse", func(t *testing.T) {
		q := NewQueue[int](2)
		q.Close()
		if q.Push(1) {
			t.Fatal("expected Push on a closed queue to fail")
		}
		q.Reopen()
		if !q.Push(1) {
			t.Fatal("expected Push after Reopen to succeed")
		}
	})

	t.Run("ConcurrentProducersConsumers", func(t *testing.T) {
		q := NewQueue[int](8)
		const n = 200
		var wg sync.WaitGroup
		wg.Add(2)

		go func() {
			defer wg.Done()
			for i := 0; i < n; i++ {
				q.Push(i)
			}
		}()

		sum := 0
		go func() {
			defer wg.Done()
			for i := 0; i < n; i++ {
				v, _ := q.Pop()
				sum += v
			}
		}()

		wg.Wait()
		expected := n * (n - 1) / 2
		if sum != expected {
			t.Errorf("expected sum %d, got %d", expected, sum)
		}
	})
}
