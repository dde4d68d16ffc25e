package taskz

import (
	"context"
	"sync"
)

// Future holds the eventual result of a Task submitted through Pool.Run.
// A Future produced by a task that is dropped (e.g. the pool stopped with
// it still queued) never resolves; callers must pair Get with a context
// deadline rather than awaiting it unconditionally.
type Future[R any] struct {
	done   chan struct{}
	once   sync.Once
	result R
	err    error
}

func newFuture[R any]() (*Future[R], func(R, error)) {
	f := &Future[R]{done: make(chan struct{})}
	resolve := func(result R, err error) {
		f.once.Do(func() {
			f.result = result
			f.err = err
			close(f.done)
		})
	}
	return f, resolve
}

// Done returns a channel that closes once the Future has resolved.
func (f *Future[R]) Done() <-chan struct{} {
	return f.done
}

// Get blocks until the Future resolves or ctx is done, whichever comes
// first. If ctx is canceled first, it returns the zero value of R and
// ctx.Err().
func (f *Future[R]) Get(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// Wait blocks uninterruptibly until the Future resolves. Prefer Get with a
// bounded context in production code; Wait is for call sites that already
// guarantee resolution (e.g. tests against a running pool).
func (f *Future[R]) Wait() (R, error) {
	<-f.done
	return f.result, f.err
}
