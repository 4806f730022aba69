package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/d0ggzi/celery-clinic/internal/core"
	"github.com/d0ggzi/celery-clinic/internal/domain/model"
)

// TaskServiceOptions groups dependencies for TaskService.
type TaskServiceOptions struct {
	Queue  core.TaskQueue      // Required: broker the worker pool reserves from
	States core.TaskStateStore // Required: per-task state documents
	Logger *slog.Logger        // Optional: structured logger
	NewID  func() string       // Optional: id generator, defaults to uuid.NewString
	Now    func() time.Time    // Optional: clock for enqueue timestamps
}

// TaskService enqueues tasks and tracks their reported state.
type TaskService struct {
	queue  core.TaskQueue
	states core.TaskStateStore
	logger *slog.Logger
	newID  func() string
	now    func() time.Time
}

// NewTaskService constructs a new TaskService.
func NewTaskService(opts TaskServiceOptions) (*TaskService, error) {
	if opts.Queue == nil {
		return nil, errors.New("TaskQueue is required")
	}
	if opts.States == nil {
		return nil, errors.New("TaskStateStore is required")
	}
	s := &TaskService{
		queue:  opts.Queue,
		states: opts.States,
		logger: opts.Logger,
		newID:  opts.NewID,
		now:    opts.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "task_service")
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// MustNewTaskService constructs a new TaskService and panics on error.
func MustNewTaskService(opts TaskServiceOptions) *TaskService {
	svc, err := NewTaskService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create TaskService: %v", err))
	}
	return svc
}

// Enqueue queues a task named name with JSON-encoded args and returns its id.
func (s *TaskService) Enqueue(ctx context.Context, name string, args any) (string, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("marshal task args: %w", err)
	}
	msg := &model.TaskMessage{
		ID:         s.newID(),
		Name:       name,
		Args:       raw,
		EnqueuedAt: s.now().UTC(),
	}
	if err := s.queue.Enqueue(ctx, msg); err != nil {
		return "", fmt.Errorf("enqueue %s: %w", name, err)
	}
	s.logger.DebugContext(ctx, "task enqueued", "task_id", msg.ID, "task", name)
	return msg.ID, nil
}

// State returns the latest reported state of taskID; unknown ids are PENDING.
func (s *TaskService) State(ctx context.Context, taskID string) (*model.TaskState, error) {
	state, err := s.states.GetState(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task state: %w", err)
	}
	if state == nil {
		return model.PendingState(taskID), nil
	}
	return state, nil
}

// MarkSuccess records the built-in SUCCESS state.
func (s *TaskService) MarkSuccess(ctx context.Context, taskID string) error {
	return s.states.SetState(ctx, core.SetTaskStateParams{TaskID: taskID, Status: model.TaskStatusSuccess})
}

// MarkFailure records FAILURE with the error and its class as meta.
func (s *TaskService) MarkFailure(ctx context.Context, taskID string, failure model.TaskFailure) error {
	return s.states.SetState(ctx, core.SetTaskStateParams{
		TaskID: taskID,
		Status: model.TaskStatusFailure,
		Meta:   failure,
	})
}

// Reporter returns a StateReporter bound to taskID.
func (s *TaskService) Reporter(taskID string) core.StateReporter {
	return &taskReporter{states: s.states, taskID: taskID}
}

type taskReporter struct {
	states core.TaskStateStore
	taskID string
}

func (r *taskReporter) UpdateState(ctx context.Context, status model.TaskStatus, meta any) error {
	return r.states.SetState(ctx, core.SetTaskStateParams{TaskID: r.taskID, Status: status, Meta: meta})
}
