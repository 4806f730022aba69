package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/d0ggzi/celery-clinic/internal/domain/model"
)

// DefaultRecordKeyPattern matches canonical UUID keys and skips queue bookkeeping keys
// such as the task list and task-meta-* documents.
const DefaultRecordKeyPattern = "????????-????-*"

const defaultScanCount int64 = 100

// RedisRecordStoreOptions configures a RedisRecordStore.
type RedisRecordStoreOptions struct {
	KeyPattern string
	ScanCount  int64
	Logger     *slog.Logger
}

// RedisRecordStore implements core.RecordStore with plain Redis string keys holding JSON values.
type RedisRecordStore struct {
	client    redis.UniversalClient
	pattern   string
	scanCount int64
	logger    *slog.Logger
}

// NewRedisRecordStore creates a record store backed by client.
func NewRedisRecordStore(client redis.UniversalClient, opts RedisRecordStoreOptions) *RedisRecordStore {
	s := &RedisRecordStore{
		client:    client,
		pattern:   opts.KeyPattern,
		scanCount: opts.ScanCount,
		logger:    opts.Logger,
	}
	if s.pattern == "" {
		s.pattern = DefaultRecordKeyPattern
	}
	if s.scanCount <= 0 {
		s.scanCount = defaultScanCount
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "redis_record_store")
	return s
}

// Save writes the result under id. Records are written at most once; SET NX reports
// model.ErrRecordExists when the key is already present.
func (s *RedisRecordStore) Save(ctx context.Context, id string, res model.AppointmentResult) error {
	if id == "" {
		return errors.New("record id cannot be empty")
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	status, err := s.client.SetArgs(ctx, id, payload, redis.SetArgs{Mode: "NX"}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.ErrRecordExists
		}
		return fmt.Errorf("redis SET NX: %w", err)
	}
	if status != "OK" {
		return model.ErrRecordExists
	}
	return nil
}

// Get loads the record stored under id.
func (s *RedisRecordStore) Get(ctx context.Context, id string) (*model.Record, error) {
	if id == "" {
		return nil, model.ErrRecordNotFound
	}
	raw, err := s.client.Get(ctx, id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRecordNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var res model.AppointmentResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", id, err)
	}
	rec := model.NewRecord(id, res)
	return &rec, nil
}

// Scan walks the keyspace with SCAN MATCH and loads matching values in batches.
// SCAN may return a key more than once; duplicates are dropped. Values that are missing
// by the time they are read or that do not decode are skipped.
func (s *RedisRecordStore) Scan(ctx context.Context) ([]model.Record, error) {
	var (
		out    []model.Record
		batch  []string
		cursor uint64
	)
	seen := make(map[string]struct{})
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.pattern, s.scanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan: %w", err)
		}
		batch = batch[:0]
		for _, k := range keys {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			batch = append(batch, k)
		}
		if len(batch) > 0 {
			recs, loadErr := s.load(ctx, batch)
			if loadErr != nil {
				return nil, loadErr
			}
			out = append(out, recs...)
		}
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}

func (s *RedisRecordStore) load(ctx context.Context, keys []string) ([]model.Record, error) {
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	out := make([]model.Record, 0, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var res model.AppointmentResult
		if err := json.Unmarshal([]byte(str), &res); err != nil {
			s.logger.WarnContext(ctx, "skipping undecodable record", "key", keys[i], "error", err)
			continue
		}
		out = append(out, model.NewRecord(keys[i], res))
	}
	return out, nil
}

// Ping checks the health of the Redis connection.
func (s *RedisRecordStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
