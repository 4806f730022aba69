package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d0ggzi/celery-clinic/internal/core"
	"github.com/d0ggzi/celery-clinic/internal/domain/model"
)

const (
	// DefaultQueueName is the Redis list task messages are pushed to.
	DefaultQueueName = "appointments"

	taskMetaPrefix = "task-meta-"
)

// TaskMetaKey returns the Redis key of the state document for taskID.
func TaskMetaKey(taskID string) string {
	return taskMetaPrefix + taskID
}

// RedisTaskQueue implements core.TaskQueue on a Redis list: producers LPUSH, workers BRPOP.
type RedisTaskQueue struct {
	client redis.UniversalClient
	name   string
}

// NewRedisTaskQueue creates a queue on the list named name.
func NewRedisTaskQueue(client redis.UniversalClient, name string) *RedisTaskQueue {
	if name == "" {
		name = DefaultQueueName
	}
	return &RedisTaskQueue{client: client, name: name}
}

// Name returns the list key.
func (q *RedisTaskQueue) Name() string { return q.name }

// Enqueue pushes msg to the head of the list.
func (q *RedisTaskQueue) Enqueue(ctx context.Context, msg *model.TaskMessage) error {
	if msg == nil || msg.ID == "" {
		return errors.New("task message requires an id")
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal task message: %w", err)
	}
	if err := q.client.LPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("redis lpush: %w", err)
	}
	return nil
}

// Reserve pops the oldest message, blocking up to timeout.
// It returns model.ErrNoTasksAvailable when nothing arrives in time.
func (q *RedisTaskQueue) Reserve(ctx context.Context, timeout time.Duration) (*model.TaskMessage, error) {
	res, err := q.client.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrNoTasksAvailable
		}
		return nil, fmt.Errorf("redis brpop: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("redis brpop: unexpected reply length %d", len(res))
	}
	var msg model.TaskMessage
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		return nil, fmt.Errorf("decode task message: %w", err)
	}
	return &msg, nil
}

// Len reports the number of queued messages.
func (q *RedisTaskQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.name).Result()
	if err != nil {
		return 0, fmt.Errorf("redis llen: %w", err)
	}
	return n, nil
}

// RedisTaskStateStore implements core.TaskStateStore with one JSON document per task.
type RedisTaskStateStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	clock  core.TimeProvider
}

// NewRedisTaskStateStore creates a state store whose documents expire after ttl.
// A ttl of zero or less keeps documents until they are deleted.
func NewRedisTaskStateStore(client redis.UniversalClient, ttl time.Duration, clock core.TimeProvider) *RedisTaskStateStore {
	if ttl < 0 {
		ttl = 0
	}
	if clock == nil {
		clock = &RealTimeProvider{}
	}
	return &RedisTaskStateStore{client: client, ttl: ttl, clock: clock}
}

// SetState overwrites the state document of params.TaskID.
func (s *RedisTaskStateStore) SetState(ctx context.Context, params core.SetTaskStateParams) error {
	if params.TaskID == "" {
		return errors.New("task id cannot be empty")
	}
	state := model.TaskState{
		TaskID:    params.TaskID,
		Status:    params.Status,
		UpdatedAt: s.clock.Now().UTC(),
	}
	if params.Meta != nil {
		meta, err := json.Marshal(params.Meta)
		if err != nil {
			return fmt.Errorf("marshal task meta: %w", err)
		}
		state.Meta = meta
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal task state: %w", err)
	}
	if err := s.client.Set(ctx, TaskMetaKey(params.TaskID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// GetState returns the stored document, or a PENDING state for unknown ids.
func (s *RedisTaskStateStore) GetState(ctx context.Context, taskID string) (*model.TaskState, error) {
	raw, err := s.client.Get(ctx, TaskMetaKey(taskID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.PendingState(taskID), nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var state model.TaskState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode task state %s: %w", taskID, err)
	}
	return &state, nil
}
