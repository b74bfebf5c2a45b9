// Package redis provides a Redis-backed store.CheckpointStore for
// deployments that share paused-thread state across processes, with
// optional TTL-based expiry as a second line of defense behind the
// expired-thread sweep.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentmap/agentmap-core/store"
)

// CheckpointStore implements store.CheckpointStore over Redis.
type CheckpointStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "agentmap:"
	TTL      time.Duration // Expiry for checkpoints, default 0 (none)
}

// NewCheckpointStore creates a Redis-backed checkpoint store.
func NewCheckpointStore(opts Options) *CheckpointStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "agentmap:"
	}
	return &CheckpointStore{client: client, prefix: prefix, ttl: opts.TTL}
}

// Close closes the underlying client.
func (s *CheckpointStore) Close() error {
	return s.client.Close()
}

func (s *CheckpointStore) threadKey(threadID string) string {
	return fmt.Sprintf("%sthread:%s", s.prefix, threadID)
}

func (s *CheckpointStore) graphKey(graphName string) string {
	return fmt.Sprintf("%sgraph:%s:threads", s.prefix, graphName)
}

// Save implements store.CheckpointStore. The checkpoint is written under
// its thread key and indexed into its graph's thread set in one pipeline.
func (s *CheckpointStore) Save(ctx context.Context, cp *store.ThreadCheckpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("redis: marshal checkpoint for thread %s: %w", cp.ThreadID, err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.threadKey(cp.ThreadID), data, s.ttl)
	if cp.GraphName != "" {
		graphKey := s.graphKey(cp.GraphName)
		pipe.SAdd(ctx, graphKey, cp.ThreadID)
		if s.ttl > 0 {
			pipe.Expire(ctx, graphKey, s.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: save checkpoint for thread %s: %w", cp.ThreadID, err)
	}
	return nil
}

// Load implements store.CheckpointStore.
func (s *CheckpointStore) Load(ctx context.Context, threadID string) (*store.ThreadCheckpoint, error) {
	data, err := s.client.Get(ctx, s.threadKey(threadID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("redis: checkpoint not found for thread %s", threadID)
		}
		return nil, fmt.Errorf("redis: load checkpoint for thread %s: %w", threadID, err)
	}

	var cp store.ThreadCheckpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("redis: unmarshal checkpoint for thread %s: %w", threadID, err)
	}
	return &cp, nil
}

// ListByGraph implements store.CheckpointStore. Threads whose keys have
// expired since they were indexed are skipped.
func (s *CheckpointStore) ListByGraph(ctx context.Context, graphName string) ([]*store.ThreadCheckpoint, error) {
	threadIDs, err := s.client.SMembers(ctx, s.graphKey(graphName)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list threads for graph %s: %w", graphName, err)
	}
	if len(threadIDs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(threadIDs))
	for i, id := range threadIDs {
		keys[i] = s.threadKey(id)
	}
	results, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: fetch checkpoints for graph %s: %w", graphName, err)
	}

	var checkpoints []*store.ThreadCheckpoint
	for _, result := range results {
		raw, ok := result.(string)
		if !ok {
			continue // expired between SMembers and MGet
		}
		var cp store.ThreadCheckpoint
		if err := json.Unmarshal([]byte(raw), &cp); err != nil {
			return nil, fmt.Errorf("redis: unmarshal checkpoint for graph %s: %w", graphName, err)
		}
		checkpoints = append(checkpoints, &cp)
	}
	sort.Slice(checkpoints, func(i, j int) bool {
		return checkpoints[i].SavedAt.Before(checkpoints[j].SavedAt)
	})
	return checkpoints, nil
}

// Delete implements store.CheckpointStore.
func (s *CheckpointStore) Delete(ctx context.Context, threadID string) error {
	cp, err := s.Load(ctx, threadID)
	if err != nil {
		// Absent is fine; only the key removal matters.
		return s.client.Del(ctx, s.threadKey(threadID)).Err()
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.threadKey(threadID))
	if cp.GraphName != "" {
		pipe.SRem(ctx, s.graphKey(cp.GraphName), threadID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: delete checkpoint for thread %s: %w", threadID, err)
	}
	return nil
}

// DeleteOlderThan implements store.CheckpointStore by scanning the thread
// keyspace and removing checkpoints whose SavedAt precedes the cutoff.
func (s *CheckpointStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	var removed int
	iter := s.client.Scan(ctx, 0, s.prefix+"thread:*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var cp store.ThreadCheckpoint
		if err := json.Unmarshal(raw, &cp); err != nil {
			continue
		}
		if !cp.SavedAt.Before(cutoff) {
			continue
		}
		pipe := s.client.Pipeline()
		pipe.Del(ctx, key)
		if cp.GraphName != "" {
			pipe.SRem(ctx, s.graphKey(cp.GraphName), cp.ThreadID)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return removed, fmt.Errorf("redis: delete expired checkpoint %s: %w", cp.ThreadID, err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis: scan thread checkpoints: %w", err)
	}
	return removed, nil
}
