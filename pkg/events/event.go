package events

import "time"

// Event is the contract for everything emitted on the event bus.
type Event interface {
	// EventType returns the unique code for this event (e.g. "TASK_FINISHED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic implementation the constructors below build.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

const (
	TypeTaskFinished  = "TASK_FINISHED"
	TypeTaskFailed    = "TASK_FAILED"
	TypeTaskCancelled = "TASK_CANCELLED"
)

// NewTaskFinished records a task completing with its attempt count.
func NewTaskFinished(taskID, kind string, attempts int) Event {
	return BaseEvent{
		Type: TypeTaskFinished,
		Data: map[string]interface{}{
			"task_id":  taskID,
			"kind":     kind,
			"attempts": attempts,
		},
		OccurredAt: time.Now(),
	}
}

// NewTaskFailed records a task exhausting its retry budget.
func NewTaskFailed(taskID, kind string, attempts int, lastError string) Event {
	return BaseEvent{
		Type: TypeTaskFailed,
		Data: map[string]interface{}{
			"task_id":    taskID,
			"kind":       kind,
			"attempts":   attempts,
			"last_error": lastError,
		},
		OccurredAt: time.Now(),
	}
}

// NewTaskCancelled records a caller-initiated cancellation.
func NewTaskCancelled(taskID, kind string) Event {
	return BaseEvent{
		Type: TypeTaskCancelled,
		Data: map[string]interface{}{
			"task_id": taskID,
			"kind":    kind,
		},
		OccurredAt: time.Now(),
	}
}
