// Package booking implements the appointment booking task: the phase sequence a worker
// reports while it simulates work, computes an appointment date and persists the record.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/d0ggzi/celery-clinic/internal/core"
	"github.com/d0ggzi/celery-clinic/internal/domain/model"
)

// Phase labels reported to pollers, in order.
const (
	PhaseProcessing model.TaskStatus = "Обработка..."
	PhaseWriting    model.TaskStatus = "Запись..."
	PhaseDone       model.TaskStatus = "Успешно"
)

// Appointment offsets are whole days drawn uniformly from [MinOffsetDays, MaxOffsetDays].
const (
	MinOffsetDays = 1
	MaxOffsetDays = 10
)

// DefaultPhaseDelay is how long each intermediate phase is held.
const DefaultPhaseDelay = 10 * time.Second

// ErrStoreRequired is returned by NewBooker without a record store.
var ErrStoreRequired = errors.New("record store is required")

// Options configures a Booker.
type Options struct {
	Store      core.RecordStore
	Events     core.EventPublisher // optional
	Clock      core.TimeProvider   // defaults to the system clock
	PhaseDelay time.Duration
	// OffsetDays returns the number of days between now and the appointment.
	// Defaults to a uniform draw in [MinOffsetDays, MaxOffsetDays].
	OffsetDays func() int
	Logger     *slog.Logger
}

// Booker runs booking tasks.
type Booker struct {
	store      core.RecordStore
	events     core.EventPublisher
	clock      core.TimeProvider
	delay      time.Duration
	offsetDays func() int
	logger     *slog.Logger
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// NewBooker constructs a Booker with defaults applied.
func NewBooker(opts Options) (*Booker, error) {
	if opts.Store == nil {
		return nil, ErrStoreRequired
	}
	b := &Booker{
		store:      opts.Store,
		events:     opts.Events,
		clock:      opts.Clock,
		delay:      opts.PhaseDelay,
		offsetDays: opts.OffsetDays,
		logger:     opts.Logger,
	}
	if b.clock == nil {
		b.clock = systemClock{}
	}
	if b.delay < 0 {
		b.delay = 0
	}
	if b.offsetDays == nil {
		b.offsetDays = RandomOffsetDays
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	b.logger = b.logger.With("component", "booking")
	return b, nil
}

// RandomOffsetDays draws a day offset uniformly from [MinOffsetDays, MaxOffsetDays].
func RandomOffsetDays() int {
	return MinOffsetDays + rand.IntN(MaxOffsetDays-MinOffsetDays+1)
}

// AppointmentDate returns now shifted by days, formatted with model.DateLayout.
func AppointmentDate(now time.Time, days int) string {
	return model.FormatDate(now.AddDate(0, 0, days))
}

// Run executes one booking for taskID. On success it returns model.ErrIgnoreTask so the
// runner keeps PhaseDone as the visible final state.
func (b *Booker) Run(ctx context.Context, taskID string, reporter core.StateReporter, args model.BookingArgs) error {
	doctor := args.Doctor

	if err := reporter.UpdateState(ctx, PhaseProcessing, doctor); err != nil {
		return fmt.Errorf("report %s: %w", PhaseProcessing, err)
	}
	b.clock.Sleep(b.delay)

	if err := reporter.UpdateState(ctx, PhaseWriting, doctor); err != nil {
		return fmt.Errorf("report %s: %w", PhaseWriting, err)
	}
	result := model.AppointmentResult{
		Doctor: doctor,
		Date:   AppointmentDate(b.clock.Now(), b.clampOffset(b.offsetDays())),
	}
	b.clock.Sleep(b.delay)

	if err := reporter.UpdateState(ctx, PhaseDone, doctor); err != nil {
		return fmt.Errorf("report %s: %w", PhaseDone, err)
	}

	if err := b.store.Save(ctx, taskID, result); err != nil {
		return fmt.Errorf("save record %s: %w", taskID, err)
	}
	b.logger.InfoContext(ctx, "appointment recorded", "record_id", taskID, "doctor", doctor, "date", result.Date)

	b.publish(ctx, model.NewRecord(taskID, result))
	return model.ErrIgnoreTask
}

func (b *Booker) clampOffset(days int) int {
	if days < MinOffsetDays {
		return MinOffsetDays
	}
	if days > MaxOffsetDays {
		return MaxOffsetDays
	}
	return days
}

// publish failures are logged only; the record is already durable.
func (b *Booker) publish(ctx context.Context, rec model.Record) {
	if b.events == nil {
		return
	}
	if err := b.events.PublishRecorded(ctx, rec); err != nil {
		b.logger.WarnContext(ctx, "publish appointment event", "record_id", rec.ID, "error", err)
	}
}
