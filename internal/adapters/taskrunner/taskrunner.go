// Package taskrunner provides the worker pool that reserves queued tasks and records their outcome.
package taskrunner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/d0ggzi/celery-clinic/internal/core"
	"github.com/d0ggzi/celery-clinic/internal/domain/booking"
	"github.com/d0ggzi/celery-clinic/internal/domain/model"
	obserrors "github.com/d0ggzi/celery-clinic/internal/observability/errors"
	"github.com/d0ggzi/celery-clinic/internal/observability/metrics"
	"github.com/d0ggzi/celery-clinic/internal/service"
)

// HandlerFunc executes one task. Returning model.ErrIgnoreTask keeps the state the handler
// last reported; nil marks the task SUCCESS; any other error marks it FAILURE.
type HandlerFunc func(ctx context.Context, msg *model.TaskMessage, reporter core.StateReporter) error

const (
	defaultReserveTimeout = time.Second
	defaultErrorBackoff   = time.Second
)

// RunnerOptions configures the task runner.
type RunnerOptions struct {
	Queue  core.TaskQueue       // Required: broker to reserve from
	Tasks  *service.TaskService // Required: state transitions
	Logger *slog.Logger

	Concurrency    int           // number of worker goroutines; defaults to 1
	ReserveTimeout time.Duration // how long one reservation blocks; defaults to 1s
	ErrorBackoff   time.Duration // pause after a broker error; defaults to 1s

	Metrics metrics.Sink
}

// Runner reserves tasks and executes them using registered handlers.
type Runner struct {
	queue          core.TaskQueue
	tasks          *service.TaskService
	logger         *slog.Logger
	workers        int
	reserveTimeout time.Duration
	errorBackoff   time.Duration
	handlers       map[string]HandlerFunc
	metrics        metrics.Sink
}

// PanicError wraps a value recovered from a panicking handler.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// NewRunner constructs a runner with no handlers registered.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Queue == nil {
		return nil, errors.New("TaskQueue is required")
	}
	if opts.Tasks == nil {
		return nil, errors.New("TaskService is required")
	}
	r := &Runner{
		queue:          opts.Queue,
		tasks:          opts.Tasks,
		logger:         opts.Logger,
		workers:        opts.Concurrency,
		reserveTimeout: opts.ReserveTimeout,
		errorBackoff:   opts.ErrorBackoff,
		handlers:       make(map[string]HandlerFunc),
		metrics:        opts.Metrics,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("component", "task_runner")
	if r.workers <= 0 {
		r.workers = 1
	}
	if r.reserveTimeout <= 0 {
		r.reserveTimeout = defaultReserveTimeout
	}
	if r.errorBackoff <= 0 {
		r.errorBackoff = defaultErrorBackoff
	}
	if r.metrics == nil {
		r.metrics = metrics.NoopSink{}
	}
	return r, nil
}

// Register binds a handler to a task name, replacing any previous one.
func (r *Runner) Register(name string, h HandlerFunc) {
	r.handlers[name] = h
}

// BookingHandler adapts a Booker to the runner's handler signature.
func BookingHandler(b *booking.Booker) HandlerFunc {
	return func(ctx context.Context, msg *model.TaskMessage, reporter core.StateReporter) error {
		var args model.BookingArgs
		if err := json.Unmarshal(msg.Args, &args); err != nil {
			return fmt.Errorf("decode booking args: %w", err)
		}
		return b.Run(ctx, msg.ID, reporter, args)
	}
}

// Run starts worker goroutines and processes tasks until ctx is cancelled. Cancellation stops
// new reservations only; tasks already reserved run to completion before Run returns.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting task runner", "workers", r.workers, "reserve_timeout", r.reserveTimeout)

	g, gctx := errgroup.WithContext(ctx)
	for range r.workers {
		g.Go(func() error {
			return r.workerLoop(gctx)
		})
	}
	err := g.Wait()
	r.logger.InfoContext(ctx, "task runner stopped")
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (r *Runner) workerLoop(ctx context.Context) error {
	for ctx.Err() == nil {
		msg, err := r.queue.Reserve(ctx, r.reserveTimeout)
		switch {
		case err == nil:
			if msg != nil {
				r.processTask(context.WithoutCancel(ctx), msg)
			}
		case errors.Is(err, model.ErrNoTasksAvailable):
		case ctx.Err() != nil:
			return nil
		default:
			r.logger.ErrorContext(ctx, "reserve task", "error", err)
			if !r.sleep(ctx, r.errorBackoff) {
				return nil
			}
		}
	}
	return nil
}

func (r *Runner) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (r *Runner) processTask(ctx context.Context, msg *model.TaskMessage) {
	start := time.Now()
	logger := r.logger.With("task_id", msg.ID, "task", msg.Name)
	emit := func(transition, result string, err error) {
		metrics.EmitTaskLifecycle(r.metrics, metrics.TaskMetric{
			Task:       msg.Name,
			Transition: transition,
			Result:     result,
			Duration:   time.Since(start),
			Err:        err,
		})
	}

	h, ok := r.handlers[msg.Name]
	if !ok {
		err := fmt.Errorf("no handler for task %q", msg.Name)
		r.fail(ctx, logger, msg.ID, err)
		emit("failed", metrics.ResultError, err)
		return
	}

	err := r.invoke(ctx, h, msg)
	switch {
	case errors.Is(err, model.ErrIgnoreTask):
		logger.InfoContext(ctx, "task finished", "duration", time.Since(start))
		emit("completed", metrics.ResultIgnored, nil)
	case err != nil:
		var perr *PanicError
		if errors.As(err, &perr) {
			logger.ErrorContext(ctx, "task panicked", "panic", perr.Value, "stack", string(perr.Stack))
		} else {
			logger.WarnContext(ctx, "task failed", "error", err)
		}
		r.fail(ctx, logger, msg.ID, err)
		emit("failed", metrics.ResultError, err)
	default:
		if serr := r.tasks.MarkSuccess(ctx, msg.ID); serr != nil {
			logger.ErrorContext(ctx, "mark task success", "error", serr)
			emit("completed", metrics.ResultError, serr)
			return
		}
		emit("completed", metrics.ResultSuccess, nil)
	}
}

func (r *Runner) invoke(ctx context.Context, h HandlerFunc, msg *model.TaskMessage) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	return h(ctx, msg, r.tasks.Reporter(msg.ID))
}

func (r *Runner) fail(ctx context.Context, logger *slog.Logger, id string, cause error) {
	failure := model.TaskFailure{Error: cause.Error(), ErrorClass: obserrors.Classify(cause)}
	if err := r.tasks.MarkFailure(ctx, id, failure); err != nil {
		logger.ErrorContext(ctx, "mark task failure", "error", err, "original_error", cause)
	}
}
