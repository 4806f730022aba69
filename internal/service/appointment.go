package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/d0ggzi/celery-clinic/internal/core"
	"github.com/d0ggzi/celery-clinic/internal/domain/model"
	apperrors "github.com/d0ggzi/celery-clinic/internal/errors"
)

// AppointmentServiceOptions groups dependencies for AppointmentService.
type AppointmentServiceOptions struct {
	Tasks     *TaskService      // Required: task queue facade
	Records   core.RecordStore  // Required: completed record store
	Evaluator JMESPathEvaluator // Optional: defaults to go-jmespath
	Logger    *slog.Logger      // Optional: structured logger
}

// AppointmentService implements the booking API on top of the task queue and record store.
type AppointmentService struct {
	tasks   *TaskService
	records core.RecordStore
	jems    JMESPathEvaluator
	logger  *slog.Logger
}

// NewAppointmentService constructs a new AppointmentService.
func NewAppointmentService(opts AppointmentServiceOptions) (*AppointmentService, error) {
	if opts.Tasks == nil {
		return nil, errors.New("TaskService is required")
	}
	if opts.Records == nil {
		return nil, errors.New("RecordStore is required")
	}
	jems := opts.Evaluator
	if jems == nil {
		jems = jmespathLibEvaluator{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AppointmentService{
		tasks:   opts.Tasks,
		records: opts.Records,
		jems:    jems,
		logger:  logger.With("component", "appointment_service"),
	}, nil
}

// MustNewAppointmentService constructs a new AppointmentService and panics on error.
func MustNewAppointmentService(opts AppointmentServiceOptions) *AppointmentService {
	svc, err := NewAppointmentService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create AppointmentService: %v", err))
	}
	return svc
}

// Submit validates the request and enqueues a booking task. It never waits for the worker.
func (s *AppointmentService) Submit(ctx context.Context, req model.SubmitRequest) (*model.SubmitResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.ValidationField("doctor", err.Error())
	}
	id, err := s.tasks.Enqueue(ctx, model.TaskNameCreateRecord, model.BookingArgs{Doctor: *req.Doctor})
	if err != nil {
		return nil, fmt.Errorf("submit appointment: %w", err)
	}
	s.logger.InfoContext(ctx, "appointment submitted", "record_id", id, "doctor", *req.Doctor)
	return &model.SubmitResponse{RecordID: id}, nil
}

// PollStatus reports the current phase of the booking task. Doctor is the last string meta the
// worker reported, and null for unknown ids or non-string meta.
func (s *AppointmentService) PollStatus(ctx context.Context, recordID string) (*model.StatusResponse, error) {
	state, err := s.tasks.State(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("poll status: %w", err)
	}
	resp := &model.StatusResponse{
		RecordID:     recordID,
		RecordStatus: string(state.Status),
	}
	if doctor, ok := state.MetaString(); ok {
		resp.Doctor = &doctor
	}
	return resp, nil
}

// ListCompleted returns every stored record sorted ascending by date.
// Records with equal dates keep their id order so the listing is stable.
func (s *AppointmentService) ListCompleted(ctx context.Context) ([]model.Record, error) {
	recs, err := s.records.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if recs == nil {
		recs = []model.Record{}
	}
	SortRecords(recs)
	return recs, nil
}

// SortRecords orders records by their date string, then by id.
// Lexical order equals chronological order because dates use model.DateLayout.
func SortRecords(recs []model.Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Date != recs[j].Date {
			return recs[i].Date < recs[j].Date
		}
		return recs[i].ID < recs[j].ID
	})
}

// GetRecord loads one completed record.
func (s *AppointmentService) GetRecord(ctx context.Context, recordID string) (*model.Record, error) {
	rec, err := s.records.Get(ctx, recordID)
	if err != nil {
		if errors.Is(err, model.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("record %s not found", recordID)
		}
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// QueryRecords returns the sorted record list, filtered through a JMESPath expression when one
// is given. An invalid expression is a validation error.
func (s *AppointmentService) QueryRecords(ctx context.Context, expr string) (any, error) {
	expr = strings.TrimSpace(expr)
	if err := s.jems.Validate(expr); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid query expression")
	}
	recs, err := s.ListCompleted(ctx)
	if err != nil {
		return nil, err
	}
	if expr == "" {
		return recs, nil
	}
	out, err := s.jems.Evaluate(expr, recordsDocument(recs))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "evaluate query expression")
	}
	return out, nil
}
