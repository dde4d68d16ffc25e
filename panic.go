package taskz

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/zoobzio/capitan"
)

// PanicError wraps a recovered panic value from inside a user-supplied
// callable. It is never allowed to propagate past a Pool worker or the
// Timer's worker loop; it is surfaced instead as a failed Future or simply
// logged, per spec: a misbehaving task must not cost the pool a worker.
type PanicError struct {
	Recovered interface{}
	Stack     []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("taskz: task panicked: %v", e.Recovered)
}

// recoverTask is the panic boundary every task invocation runs behind. On
// a recovered panic it records *errp and emits a debug-level capitan signal
// instead of letting the panic kill the calling goroutine.
func recoverTask(name string, errp *error) {
	if r := recover(); r != nil {
		*errp = &PanicError{Recovered: r, Stack: debug.Stack()}
		capitan.Debug(context.Background(), SignalTaskPanicked,
			FieldName.Field(name),
			FieldError.Field(fmt.Sprint(r)),
		)
	}
}
