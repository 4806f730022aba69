package core

import (
	"context"
	"time"

	"github.com/d0ggzi/celery-clinic/internal/domain/model"
)

// This file contains the port definitions shared by the service and data layers.
// Services depend on these interfaces, never on the concrete Redis or PostgreSQL adapters.

// RecordStore persists completed appointment records keyed by task id.
type RecordStore interface {
	// Save writes the result once; a second write for the same id returns model.ErrRecordExists.
	Save(ctx context.Context, id string, res model.AppointmentResult) error
	// Get loads one record or returns model.ErrRecordNotFound.
	Get(ctx context.Context, id string) (*model.Record, error)
	// Scan returns every completed record in no particular order.
	Scan(ctx context.Context) ([]model.Record, error)
}

// TaskQueue hands task messages from producers to the worker pool.
type TaskQueue interface {
	Enqueue(ctx context.Context, msg *model.TaskMessage) error
	// Reserve blocks up to timeout and returns model.ErrNoTasksAvailable when the queue stays empty.
	Reserve(ctx context.Context, timeout time.Duration) (*model.TaskMessage, error)
}

// SetTaskStateParams groups the arguments of TaskStateStore.SetState.
type SetTaskStateParams struct {
	TaskID string
	Status model.TaskStatus
	Meta   any
}

// TaskStateStore tracks the latest reported state per task id.
type TaskStateStore interface {
	SetState(ctx context.Context, params SetTaskStateParams) error
	// GetState returns model.PendingState for ids it has never seen.
	GetState(ctx context.Context, taskID string) (*model.TaskState, error)
}

// StateReporter is the narrow view of TaskStateStore handed to task handlers.
type StateReporter interface {
	UpdateState(ctx context.Context, status model.TaskStatus, meta any) error
}

// EventPublisher fans out notifications about completed appointments.
type EventPublisher interface {
	PublishRecorded(ctx context.Context, rec model.Record) error
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TimeProvider abstracts the wall clock so phase timing can be driven in tests.
type TimeProvider interface {
	Now() time.Time
	Sleep(d time.Duration)
}
