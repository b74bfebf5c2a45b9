package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agstore "github.com/agentmap/agentmap-core/store"
)

func newTestStore(t *testing.T) *CheckpointStore {
	t.Helper()
	s, err := NewCheckpointStore(Options{Path: filepath.Join(t.TempDir(), "checkpoints.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testCheckpoint(threadID, graphName string, savedAt time.Time) *agstore.ThreadCheckpoint {
	return &agstore.ThreadCheckpoint{
		ThreadID:     threadID,
		GraphName:    graphName,
		NodeName:     "review",
		Inputs:       map[string]any{"q": "?"},
		AgentContext: map[string]any{"attempt": 1.0},
		SavedAt:      savedAt,
		Version:      1,
	}
}

func TestSqlite_SaveThenLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, testCheckpoint("t-1", "support_flow", time.Now())))

	cp, err := s.Load(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "support_flow", cp.GraphName)
	assert.Equal(t, "review", cp.NodeName)
	assert.Equal(t, map[string]any{"q": "?"}, cp.Inputs)
	assert.Equal(t, map[string]any{"attempt": 1.0}, cp.AgentContext)
}

func TestSqlite_SaveReplacesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, testCheckpoint("t-1", "support_flow", time.Now())))

	updated := testCheckpoint("t-1", "support_flow", time.Now())
	updated.NodeName = "approve"
	require.NoError(t, s.Save(ctx, updated))

	cp, err := s.Load(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "approve", cp.NodeName)

	all, err := s.ListByGraph(ctx, "support_flow")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSqlite_LoadMissingThread(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Load(context.Background(), "ghost")
	assert.ErrorContains(t, err, "not found")
}

func TestSqlite_ListByGraphOrdersBySavedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	require.NoError(t, s.Save(ctx, testCheckpoint("t-2", "support_flow", base.Add(10*time.Minute))))
	require.NoError(t, s.Save(ctx, testCheckpoint("t-1", "support_flow", base)))
	require.NoError(t, s.Save(ctx, testCheckpoint("t-3", "other_flow", base)))

	cps, err := s.ListByGraph(ctx, "support_flow")
	require.NoError(t, err)
	require.Len(t, cps, 2)
	assert.Equal(t, "t-1", cps[0].ThreadID)
	assert.Equal(t, "t-2", cps[1].ThreadID)
}

func TestSqlite_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, testCheckpoint("t-1", "g", time.Now())))
	require.NoError(t, s.Delete(ctx, "t-1"))

	_, err := s.Load(ctx, "t-1")
	assert.Error(t, err)

	// Deleting an absent thread is not an error.
	assert.NoError(t, s.Delete(ctx, "t-1"))
}

func TestSqlite_DeleteOlderThan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Save(ctx, testCheckpoint("stale", "g", now.Add(-48*time.Hour))))
	require.NoError(t, s.Save(ctx, testCheckpoint("fresh", "g", now)))

	removed, err := s.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.Load(ctx, "stale")
	assert.Error(t, err)
	_, err = s.Load(ctx, "fresh")
	assert.NoError(t, err)
}
