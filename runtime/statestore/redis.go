package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AltairaLabs/stepflow/runtime/workflow"
)

// RedisStore provides a Redis-backed implementation of the Store interface.
// Snapshots are stored as JSON with a TTL. Two sorted sets scored by
// UpdatedAt index all runs and the runs of each workflow.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL sets the time-to-live for run snapshots.
// Default is 24 hours. Set to 0 for no expiration.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for Redis keys.
// Default is "stepflow".
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a new Redis-backed store.
//
// Example:
//
//	store := NewRedisStore(
//	    redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
//	    WithTTL(24 * time.Hour),
//	    WithPrefix("myapp"),
//	)
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		ttl:    defaultTTLHours * time.Hour,
		prefix: "stepflow",
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Load retrieves a run snapshot from Redis.
func (s *RedisStore) Load(ctx context.Context, runID string) (*workflow.Snapshot, error) {
	if runID == "" {
		return nil, ErrInvalidID
	}

	data, err := s.client.Get(ctx, s.runKey(runID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var snap workflow.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Save persists a run snapshot with TTL.
// Uses a pipeline to batch the SET and index updates into a single round-trip.
func (s *RedisStore) Save(ctx context.Context, snap *workflow.Snapshot) error {
	c, err := prepare(snap)
	if err != nil {
		return err
	}

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	member := redis.Z{Score: float64(c.UpdatedAt.UnixMilli()), Member: c.RunID}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.runKey(c.RunID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), member)
	if c.Workflow != "" {
		key := s.workflowIndexKey(c.Workflow)
		pipe.ZAdd(ctx, key, member)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// Delete removes a run snapshot and its index entries.
func (s *RedisStore) Delete(ctx context.Context, runID string) error {
	if runID == "" {
		return ErrInvalidID
	}

	snap, err := s.Load(ctx, runID)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	delCmd := pipe.Del(ctx, s.runKey(runID))
	pipe.ZRem(ctx, s.indexKey(), runID)
	if snap.Workflow != "" {
		pipe.ZRem(ctx, s.workflowIndexKey(snap.Workflow), runID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}

	if delCmd.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns run ids, most recently updated first. Index entries whose
// snapshot has expired are pruned.
func (s *RedisStore) List(ctx context.Context, opts ListOptions) ([]string, error) {
	key := s.indexKey()
	if opts.Workflow != "" {
		key = s.workflowIndexKey(opts.Workflow)
	}

	ids, err := s.client.ZRevRange(ctx, key, 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis zrevrange failed: %w", err)
	}

	live, err := s.pruneExpired(ctx, key, ids)
	if err != nil {
		return nil, err
	}
	return paginate(live, opts.Offset, opts.Limit), nil
}

func (s *RedisStore) pruneExpired(ctx context.Context, indexKey string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return ids, nil
	}

	pipe := s.client.Pipeline()
	exists := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		exists[i] = pipe.Exists(ctx, s.runKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis pipeline failed: %w", err)
	}

	live := make([]string, 0, len(ids))
	var stale []any
	for i, id := range ids {
		if exists[i].Val() > 0 {
			live = append(live, id)
		} else {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		if err := s.client.ZRem(ctx, indexKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("redis zrem failed: %w", err)
		}
	}
	return live, nil
}

// runKey generates the Redis key for a run snapshot.
func (s *RedisStore) runKey(runID string) string {
	return fmt.Sprintf("%s:run:%s", s.prefix, runID)
}

// indexKey generates the Redis key for the index of all runs.
func (s *RedisStore) indexKey() string {
	return fmt.Sprintf("%s:runs", s.prefix)
}

// workflowIndexKey generates the Redis key for a workflow's run index.
func (s *RedisStore) workflowIndexKey(name string) string {
	return fmt.Sprintf("%s:workflow:%s:runs", s.prefix, name)
}

var _ Store = (*RedisStore)(nil)
