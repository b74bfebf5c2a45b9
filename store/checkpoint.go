package store

import (
	"context"
	"time"
)

// ThreadCheckpoint is the resumable execution state persisted for one
// paused graph thread. Exactly one checkpoint is live per thread: a
// subsequent Save for the same thread replaces the previous record
// rather than accumulating history.
type ThreadCheckpoint struct {
	ThreadID     string         `json:"thread_id"`
	GraphName    string         `json:"graph_name"`
	NodeName     string         `json:"node_name"`
	Inputs       map[string]any `json:"inputs,omitempty"`
	AgentContext map[string]any `json:"agent_context,omitempty"`
	Tracker      any            `json:"execution_tracker,omitempty"`
	SavedAt      time.Time      `json:"saved_at"`
	Version      int            `json:"version"`
}

// CheckpointStore is the persistence contract the interaction handler's
// optional checkpoint backend plugs into. Implementations ship for SQLite
// (store/sqlite), PostgreSQL (store/postgres), and Redis (store/redis);
// a deployment picks one at bootstrap and the handler never knows which.
type CheckpointStore interface {
	// Save inserts or replaces the checkpoint for cp.ThreadID.
	Save(ctx context.Context, cp *ThreadCheckpoint) error

	// Load retrieves the live checkpoint for a thread.
	Load(ctx context.Context, threadID string) (*ThreadCheckpoint, error)

	// ListByGraph returns the live checkpoints of every paused thread of
	// one graph, ordered by SavedAt ascending.
	ListByGraph(ctx context.Context, graphName string) ([]*ThreadCheckpoint, error)

	// Delete removes a thread's checkpoint. Deleting an absent thread is
	// not an error.
	Delete(ctx context.Context, threadID string) error

	// DeleteOlderThan removes every checkpoint saved before cutoff and
	// reports how many were removed. Backs the expired-thread sweep.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
