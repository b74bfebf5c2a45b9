package interaction

import (
	"context"
	"fmt"
	"time"

	"github.com/agentmap/agentmap-core/store"
)

// CheckpointBackend persists a paused thread's CheckpointData into a
// pluggable store.CheckpointStore (sqlite/postgres/redis), so a deployment
// can keep resumable execution state outside the interaction store's own
// JSON file. It is optional: Handler works with the thread record's
// embedded CheckpointData alone when no backend is configured.
type CheckpointBackend struct {
	store store.CheckpointStore
}

// NewCheckpointBackend wraps a store.CheckpointStore (store/sqlite,
// store/postgres, or store/redis) as a checkpoint backend.
func NewCheckpointBackend(cs store.CheckpointStore) *CheckpointBackend {
	return &CheckpointBackend{store: cs}
}

// save persists data under threadID. Exactly one checkpoint is live per
// paused thread; resuming replaces it rather than accumulating history.
func (b *CheckpointBackend) save(ctx context.Context, threadID, graphName string, data CheckpointData) error {
	cp := &store.ThreadCheckpoint{
		ThreadID:     threadID,
		GraphName:    graphName,
		NodeName:     data.NodeName,
		Inputs:       data.Inputs,
		AgentContext: data.AgentContext,
		Tracker:      data.ExecutionTracker,
		SavedAt:      time.Now(),
		Version:      1,
	}
	if err := b.store.Save(ctx, cp); err != nil {
		return fmt.Errorf("interaction: save checkpoint for thread %s: %w", threadID, err)
	}
	return nil
}

// load retrieves the live checkpoint for a thread.
func (b *CheckpointBackend) load(ctx context.Context, threadID string) (CheckpointData, error) {
	cp, err := b.store.Load(ctx, threadID)
	if err != nil {
		return CheckpointData{}, fmt.Errorf("interaction: load checkpoint for thread %s: %w", threadID, err)
	}
	return CheckpointData{
		Inputs:           cp.Inputs,
		AgentContext:     cp.AgentContext,
		ExecutionTracker: cp.Tracker,
		NodeName:         cp.NodeName,
	}, nil
}

// clear removes a completed thread's checkpoint.
func (b *CheckpointBackend) clear(ctx context.Context, threadID string) error {
	if err := b.store.Delete(ctx, threadID); err != nil {
		return fmt.Errorf("interaction: clear checkpoint for thread %s: %w", threadID, err)
	}
	return nil
}

// sweepBefore removes every backend checkpoint saved before the cutoff,
// keeping the backend in step with the handler's expired-thread sweep.
func (b *CheckpointBackend) sweepBefore(ctx context.Context, cutoff time.Time) (int, error) {
	n, err := b.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return n, fmt.Errorf("interaction: sweep expired checkpoints: %w", err)
	}
	return n, nil
}
