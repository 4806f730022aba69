package taskrunner

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/d0ggzi/celery-clinic/internal/core"
	"github.com/d0ggzi/celery-clinic/internal/data"
	"github.com/d0ggzi/celery-clinic/internal/domain/booking"
	"github.com/d0ggzi/celery-clinic/internal/domain/model"
	"github.com/d0ggzi/celery-clinic/internal/mocks"
	"github.com/d0ggzi/celery-clinic/internal/service"
)

const testTaskID = "7f9c2a1e-3b4d-4e5f-8a6b-1c2d3e4f5a6b"

type fixture struct {
	queue  *mocks.MockTaskQueue
	states *mocks.MockTaskStateStore
	runner *Runner
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	queue := mocks.NewMockTaskQueue(ctrl)
	states := mocks.NewMockTaskStateStore(ctrl)
	tasks := service.MustNewTaskService(service.TaskServiceOptions{Queue: queue, States: states})
	r, err := NewRunner(RunnerOptions{Queue: queue, Tasks: tasks, ReserveTimeout: 10 * time.Millisecond})
	require.NoError(t, err)
	return fixture{queue: queue, states: states, runner: r}
}

func bookingMessage(t *testing.T, doctor string) *model.TaskMessage {
	t.Helper()
	args, err := json.Marshal(model.BookingArgs{Doctor: doctor})
	require.NoError(t, err)
	return &model.TaskMessage{ID: testTaskID, Name: model.TaskNameCreateRecord, Args: args}
}

func TestNewRunner_RequiresDependencies(t *testing.T) {
	_, err := NewRunner(RunnerOptions{})
	require.Error(t, err)
}

func TestProcessTask_NilErrorMarksSuccess(t *testing.T) {
	f := newFixture(t)
	f.runner.Register("noop", func(context.Context, *model.TaskMessage, core.StateReporter) error { return nil })

	f.states.EXPECT().SetState(gomock.Any(), core.SetTaskStateParams{
		TaskID: testTaskID,
		Status: model.TaskStatusSuccess,
	}).Return(nil)

	f.runner.processTask(context.Background(), &model.TaskMessage{ID: testTaskID, Name: "noop"})
}

func TestProcessTask_IgnoreKeepsLastState(t *testing.T) {
	f := newFixture(t)
	f.runner.Register("phased", func(ctx context.Context, _ *model.TaskMessage, rep core.StateReporter) error {
		if err := rep.UpdateState(ctx, "Успешно", "Лор"); err != nil {
			return err
		}
		return model.ErrIgnoreTask
	})

	// Exactly one write: the handler's own phase. No SUCCESS overwrite follows.
	f.states.EXPECT().SetState(gomock.Any(), core.SetTaskStateParams{
		TaskID: testTaskID,
		Status: "Успешно",
		Meta:   "Лор",
	}).Return(nil)

	f.runner.processTask(context.Background(), &model.TaskMessage{ID: testTaskID, Name: "phased"})
}

func TestProcessTask_ErrorMarksFailure(t *testing.T) {
	f := newFixture(t)
	f.runner.Register("broken", func(context.Context, *model.TaskMessage, core.StateReporter) error {
		return errors.New("store unavailable")
	})

	f.states.EXPECT().SetState(gomock.Any(), core.SetTaskStateParams{
		TaskID: testTaskID,
		Status: model.TaskStatusFailure,
		Meta:   model.TaskFailure{Error: "store unavailable", ErrorClass: "errors_errorstring"},
	}).Return(nil)

	f.runner.processTask(context.Background(), &model.TaskMessage{ID: testTaskID, Name: "broken"})
}

func TestProcessTask_PanicMarksFailure(t *testing.T) {
	f := newFixture(t)
	f.runner.Register("panics", func(context.Context, *model.TaskMessage, core.StateReporter) error {
		panic("boom")
	})

	var got core.SetTaskStateParams
	f.states.EXPECT().SetState(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p core.SetTaskStateParams) error {
			got = p
			return nil
		})

	f.runner.processTask(context.Background(), &model.TaskMessage{ID: testTaskID, Name: "panics"})

	assert.Equal(t, model.TaskStatusFailure, got.Status)
	failure, ok := got.Meta.(model.TaskFailure)
	require.True(t, ok)
	assert.Equal(t, "task panicked: boom", failure.Error)
	assert.Equal(t, "taskrunner_panicerror", failure.ErrorClass)
}

func TestProcessTask_UnknownTaskMarksFailure(t *testing.T) {
	f := newFixture(t)

	f.states.EXPECT().SetState(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p core.SetTaskStateParams) error {
			assert.Equal(t, model.TaskStatusFailure, p.Status)
			return nil
		})

	f.runner.processTask(context.Background(), &model.TaskMessage{ID: testTaskID, Name: "missing"})
}

func TestBookingHandler_FullPhaseSequence(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRecordStore(ctrl)

	clock := data.NewFixedTimeProvider(time.Date(2024, 1, 10, 9, 0, 0, 0, time.Local))
	b, err := booking.NewBooker(booking.Options{
		Store:      store,
		Clock:      clock,
		PhaseDelay: time.Second,
		OffsetDays: func() int { return 1 },
	})
	require.NoError(t, err)
	f.runner.Register(model.TaskNameCreateRecord, BookingHandler(b))

	var statuses []model.TaskStatus
	f.states.EXPECT().SetState(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p core.SetTaskStateParams) error {
			statuses = append(statuses, p.Status)
			return nil
		}).Times(3)
	store.EXPECT().Save(gomock.Any(), testTaskID, model.AppointmentResult{
		Doctor: "Окулист",
		Date:   "2024-01-11 09:00:01",
	}).Return(nil)

	f.runner.processTask(context.Background(), bookingMessage(t, "Окулист"))

	assert.Equal(t, []model.TaskStatus{booking.PhaseProcessing, booking.PhaseWriting, booking.PhaseDone}, statuses)
}

func TestBookingHandler_BadArgsFail(t *testing.T) {
	f := newFixture(t)
	b, err := booking.NewBooker(booking.Options{Store: mocks.NewMockRecordStore(gomock.NewController(t))})
	require.NoError(t, err)
	f.runner.Register(model.TaskNameCreateRecord, BookingHandler(b))

	f.states.EXPECT().SetState(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p core.SetTaskStateParams) error {
			assert.Equal(t, model.TaskStatusFailure, p.Status)
			return nil
		})

	f.runner.processTask(context.Background(), &model.TaskMessage{
		ID:   testTaskID,
		Name: model.TaskNameCreateRecord,
		Args: json.RawMessage(`"not an object"`),
	})
}

func TestRun_InFlightTaskFinishesAfterCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var handlerCtxErr error
	f.runner.Register("slow", func(hctx context.Context, _ *model.TaskMessage, _ core.StateReporter) error {
		close(started)
		<-release
		mu.Lock()
		handlerCtxErr = hctx.Err()
		mu.Unlock()
		return nil
	})

	f.queue.EXPECT().Reserve(gomock.Any(), gomock.Any()).Return(&model.TaskMessage{ID: testTaskID, Name: "slow"}, nil)
	f.queue.EXPECT().Reserve(gomock.Any(), gomock.Any()).
		DoAndReturn(func(rctx context.Context, _ time.Duration) (*model.TaskMessage, error) {
			<-rctx.Done()
			return nil, rctx.Err()
		}).AnyTimes()
	f.states.EXPECT().SetState(gomock.Any(), gomock.Any()).Return(nil)

	done := make(chan error, 1)
	go func() { done <- f.runner.Run(ctx) }()

	<-started
	cancel()
	close(release)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.NoError(t, handlerCtxErr)
}

func TestWorkerLoop_BackoffOnBrokerError(t *testing.T) {
	f := newFixture(t)
	f.runner.errorBackoff = 5 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.queue.EXPECT().Reserve(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))
	f.queue.EXPECT().Reserve(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, time.Duration) (*model.TaskMessage, error) {
			cancel()
			return nil, model.ErrNoTasksAvailable
		})

	require.NoError(t, f.runner.workerLoop(ctx))
}
