package taskz

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFuture(t *testing.T) {
	t.Run("GetReturnsResolvedValue", func(t *testing.T) {
		future, resolve := newFuture[int]()
		resolve(42, nil)

		result, err := future.Get(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != 42 {
			t.Errorf("expected 42, got %d", result)
		}
	})

	t.Run("GetReturnsResolvedError", func(t *testing.T) {
		boom := errors.New("boom")
		future, resolve := newFuture[int]()
		resolve(0, boom)

		_, err := future.Get(context.Background())
		if !errors.Is(err, boom) {
			t.Errorf("expected %v, got %v", boom, err)
		}
	})

	t.Run("ResolveIsIdempotent", func(t *testing.T) {
		future, resolve := newFuture[int]()
		resolve(1, nil)
		resolve(2, nil)

		result, _ := future.Get(context.Background())
		if result != 1 {
			t.Errorf("expected first resolution to win, got %d", result)
		}
	})

	t.Run("GetRespectsContextCancellation", func(t *testing.T) {
		future, _ := newFuture[int]()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := future.Get(ctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected DeadlineExceeded, got %v", err)
		}
	})

	t.Run("DoneClosesOnResolution", func(t *testing.T) {
		future, resolve := newFuture[int]()
		select {
		case <-future.Done():
			t.Fatal("expected Done to not be closed before resolution")
		default:
		}

		resolve(7, nil)
		select {
		case <-future.Done():
		case <-time.After(time.Second):
			t.Fatal("expected Done to close after resolution")
		}
	})

	t.Run("WaitBlocksUntilResolved", func(t *testing.T) {
		future, resolve := newFuture[string]()
		go func() {
			time.Sleep(10 * time.Millisecond)
			resolve("done", nil)
		}()

		result, err := future.Wait()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != "done" {
			t.Errorf("expected 'done', got %q", result)
		}
	})
}
