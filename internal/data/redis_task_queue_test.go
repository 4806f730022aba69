package data

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d0ggzi/celery-clinic/internal/core"
	"github.com/d0ggzi/celery-clinic/internal/domain/model"
	"github.com/d0ggzi/celery-clinic/internal/testutil"
)

func TestTaskMetaKey(t *testing.T) {
	assert.Equal(t, "task-meta-abc", TaskMetaKey("abc"))
}

func TestRedisTaskQueue_FIFO(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := setupTestRedis(t)
	queue := NewRedisTaskQueue(client, "test-appointments")
	ctx := context.Background()

	first := &model.TaskMessage{ID: testutil.NewTaskID(), Name: model.TaskNameCreateRecord, Args: json.RawMessage(`{"doctor":"Лор"}`)}
	second := &model.TaskMessage{ID: testutil.NewTaskID(), Name: model.TaskNameCreateRecord, Args: json.RawMessage(`{"doctor":"Хирург"}`)}
	require.NoError(t, queue.Enqueue(ctx, first))
	require.NoError(t, queue.Enqueue(ctx, second))

	n, err := queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := queue.Reserve(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.JSONEq(t, `{"doctor":"Лор"}`, string(got.Args))

	got, err = queue.Reserve(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	_, err = queue.Reserve(ctx, 100*time.Millisecond)
	assert.ErrorIs(t, err, model.ErrNoTasksAvailable)
}

func TestRedisTaskQueue_EnqueueRequiresID(t *testing.T) {
	queue := NewRedisTaskQueue(nil, "")
	assert.Equal(t, DefaultQueueName, queue.Name())
	assert.Error(t, queue.Enqueue(context.Background(), &model.TaskMessage{}))
}

func TestRedisTaskStateStore_SetGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := setupTestRedis(t)
	clock := NewFixedTimeProvider(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	states := NewRedisTaskStateStore(client, time.Hour, clock)
	ctx := context.Background()
	id := testutil.NewTaskID()

	t.Run("unknown id is pending", func(t *testing.T) {
		state, err := states.GetState(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.TaskStatusPending, state.Status)
		_, ok := state.MetaString()
		assert.False(t, ok)
	})

	t.Run("custom phase with doctor meta", func(t *testing.T) {
		require.NoError(t, states.SetState(ctx, core.SetTaskStateParams{TaskID: id, Status: "Обработка...", Meta: "Лор"}))

		state, err := states.GetState(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.TaskStatus("Обработка..."), state.Status)
		doctor, ok := state.MetaString()
		require.True(t, ok)
		assert.Equal(t, "Лор", doctor)
		assert.Equal(t, clock.Now(), state.UpdatedAt)

		ttl := client.TTL(ctx, TaskMetaKey(id)).Val()
		assert.True(t, ttl > 0 && ttl <= time.Hour)
	})

	t.Run("failure meta", func(t *testing.T) {
		require.NoError(t, states.SetState(ctx, core.SetTaskStateParams{
			TaskID: id,
			Status: model.TaskStatusFailure,
			Meta:   model.TaskFailure{Error: "boom", ErrorClass: "errors_errorstring"},
		}))

		state, err := states.GetState(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.TaskStatusFailure, state.Status)
		assert.JSONEq(t, `{"error":"boom","error_class":"errors_errorstring"}`, string(state.Meta))
	})
}

func TestRedisTaskStateStore_ZeroTTLKeepsDocuments(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := setupTestRedis(t)
	ctx := context.Background()
	id := testutil.NewTaskID()

	for _, ttl := range []time.Duration{0, -time.Minute} {
		states := NewRedisTaskStateStore(client, ttl, nil)
		require.NoError(t, states.SetState(ctx, core.SetTaskStateParams{TaskID: id, Status: "Успешно", Meta: "Лор"}))

		// -1 means the key exists without an expiry
		assert.Equal(t, time.Duration(-1), client.TTL(ctx, TaskMetaKey(id)).Val(), "ttl=%s", ttl)

		state, err := states.GetState(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.TaskStatus("Успешно"), state.Status)
	}
}
