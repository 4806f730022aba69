package model

import (
	"encoding/json"
	"errors"
	"time"
)

// TaskStatus is either one of the built-in queue states or a custom phase
// label set by the task handler.
type TaskStatus string

const (
	// TaskStatusPending is reported for tasks that have not reported anything yet,
	// including ids the queue has never seen.
	TaskStatusPending TaskStatus = "PENDING"
	// TaskStatusSuccess is written by the runner when a handler returns nil.
	TaskStatusSuccess TaskStatus = "SUCCESS"
	// TaskStatusFailure is written by the runner when a handler fails or panics.
	TaskStatusFailure TaskStatus = "FAILURE"
)

// ErrIgnoreTask is returned by a task handler to finish without the runner
// overwriting the last custom state with SUCCESS.
var ErrIgnoreTask = errors.New("task result ignored")

// ErrNoTasksAvailable is returned when a reservation times out with an empty queue.
var ErrNoTasksAvailable = errors.New("no tasks available")

// TaskMessage is the queued representation of one task invocation.
type TaskMessage struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Args       json.RawMessage `json:"args"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// TaskState is the status document tracked per task id.
type TaskState struct {
	TaskID    string          `json:"task_id"`
	Status    TaskStatus      `json:"status"`
	Meta      json.RawMessage `json:"meta,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PendingState is the default state for unknown ids.
func PendingState(id string) *TaskState {
	return &TaskState{TaskID: id, Status: TaskStatusPending}
}

// MetaString returns the meta value when it is a JSON string.
func (s *TaskState) MetaString() (string, bool) {
	if s == nil || len(s.Meta) == 0 {
		return "", false
	}
	var v string
	if err := json.Unmarshal(s.Meta, &v); err != nil {
		return "", false
	}
	return v, true
}

// TaskFailure is the meta stored with a FAILURE state.
type TaskFailure struct {
	Error      string `json:"error"`
	ErrorClass string `json:"error_class,omitempty"`
}

// BookingArgs are the arguments of the appointment booking task.
type BookingArgs struct {
	Doctor string `json:"doctor"`
}

// TaskNameCreateRecord is the registered name of the booking task.
const TaskNameCreateRecord = "create_record"
