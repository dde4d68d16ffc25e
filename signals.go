package taskz

import "github.com/zoobzio/capitan"

// Signal constants for taskz state transitions.
// Signals follow the pattern: <component>.<event>.
const (
	// Pool signals.
	SignalPoolStarted       capitan.Signal = "pool.started"
	SignalPoolStopped       capitan.Signal = "pool.stopped"
	SignalPoolWorkerReady   capitan.Signal = "pool.worker.ready"
	SignalPoolWorkerStopped capitan.Signal = "pool.worker.stopped"
	SignalTaskPanicked      capitan.Signal = "task.panicked"

	// Timer signals.
	SignalTimerStarted capitan.Signal = "timer.started"
	SignalTimerStopped capitan.Signal = "timer.stopped"
	SignalTimerMissed  capitan.Signal = "timer.missed"

	// Scheduler signals.
	SignalSchedulerStarted        capitan.Signal = "scheduler.started"
	SignalSchedulerStopped        capitan.Signal = "scheduler.stopped"
	SignalSchedulerTaskScheduled  capitan.Signal = "scheduler.task.scheduled"
	SignalSchedulerTaskRejected   capitan.Signal = "scheduler.task.rejected"
	SignalSchedulerTaskFired      capitan.Signal = "scheduler.task.fired"
	SignalSchedulerTaskRemoved    capitan.Signal = "scheduler.task.removed"
	SignalSchedulerIntervalUpdate capitan.Signal = "scheduler.task.interval_updated"

	// Dispatcher signals.
	SignalDispatcherStarted        capitan.Signal = "dispatcher.started"
	SignalDispatcherStopped        capitan.Signal = "dispatcher.stopped"
	SignalDispatcherHandlerAdded   capitan.Signal = "dispatcher.handler.added"
	SignalDispatcherHandlerRemoved capitan.Signal = "dispatcher.handler.removed"
	SignalDispatcherEmitted        capitan.Signal = "dispatcher.emitted"
	SignalDispatcherEmitUnknown    capitan.Signal = "dispatcher.emit.unknown"

	// Observable signals.
	SignalObservableChanged capitan.Signal = "observable.changed"
)

// Common field keys using capitan primitive types.
// All keys use primitive types to avoid custom struct serialization.
var (
	// Common fields.
	FieldName      = capitan.NewStringKey("name")       // Component/task name
	FieldError     = capitan.NewStringKey("error")      // Error message
	FieldTimestamp = capitan.NewFloat64Key("timestamp") // Unix timestamp

	// Pool fields.
	FieldWorkerCount   = capitan.NewIntKey("worker_count")   // Total worker slots
	FieldActiveWorkers = capitan.NewIntKey("active_workers") // Currently busy workers
	FieldQueueSize     = capitan.NewIntKey("queue_size")     // Pending task count

	// Timer fields.
	FieldInterval     = capitan.NewFloat64Key("interval_seconds") // Configured interval
	FieldInvokedCount = capitan.NewIntKey("invoked_count")        // invoked_callback_count snapshot
	FieldMissedCount  = capitan.NewIntKey("missed_count")         // missed_callback_count snapshot

	// Scheduler fields.
	FieldTaskID    = capitan.NewStringKey("task_id")  // Caller-supplied identity
	FieldEnabled   = capitan.NewStringKey("enabled")  // "true"/"false"
	FieldRecurring = capitan.NewStringKey("recurring") // "true"/"false"
	FieldTasksSize = capitan.NewIntKey("tasks_size")  // Scheduler map size

	// Dispatcher fields.
	FieldEventName   = capitan.NewStringKey("event_name")   // Event name component of the key
	FieldHandlerID   = capitan.NewIntKey("handler_id")      // Assigned handler id
	FieldHandlerSize = capitan.NewIntKey("handler_count")   // Handlers registered for a key
)
