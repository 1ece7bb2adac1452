package taskqueue

import (
	"encoding/json"
	"time"
)

// Status is the task lifecycle. QUEUED -> RUNNING -> FINISHED or
// FAILED; CANCELLED is reachable from QUEUED directly and from RUNNING
// on a best-effort basis.
type Status string

const (
	StatusQueued    Status = "QUEUED"
	StatusRunning   Status = "RUNNING"
	StatusFinished  Status = "FINISHED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether the task will never change status again.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusFailed || s == StatusCancelled
}

// Task is one unit of asynchronous work. Kind selects the registered
// handler; Payload is opaque to the queue. Attempts counts handler
// invocations including retries.
type Task struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Status     Status          `json:"status"`
	Progress   int             `json:"progress"`
	Attempts   int             `json:"attempts"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Result     interface{}     `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	Err        error           `json:"-"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

func (t *Task) clone() *Task {
	c := *t
	return &c
}
