package interaction

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmap/agentmap-core/store"
)

func newTestHandler(t *testing.T, onNotify func(*Request)) (*Handler, *FileStore) {
	t.Helper()
	fs := NewFileStore(filepath.Join(t.TempDir(), "interactions.json"), nil)
	return NewHandler(fs, nil, onNotify), fs
}

func pauseThread(t *testing.T, h *Handler, threadID string) *Request {
	t.Helper()
	req := &Request{
		ID:       "req-" + threadID,
		NodeName: "review",
		Type:     Approval,
		Prompt:   "approve the draft?",
		Options:  []string{"yes", "no"},
	}
	checkpoint := CheckpointData{
		Inputs:   map[string]any{"q": "?"},
		NodeName: "review",
	}
	bundleInfo := BundleInfo{CSVHash: "abc", BundlePath: "/bundles/abc/flow.json", CSVPath: "/flow.csv"}
	require.NoError(t, h.HandleInterrupt(context.Background(), threadID, "flow", req, checkpoint, bundleInfo))
	return req
}

func TestHandleInterrupt_PersistsRequestAndPausedThread(t *testing.T) {
	var notified *Request
	h, fs := newTestHandler(t, func(r *Request) { notified = r })

	req := pauseThread(t, h, "t-1")

	stored, ok := fs.GetInteraction(req.ID)
	require.True(t, ok)
	assert.Equal(t, "t-1", stored.ThreadID)
	assert.Equal(t, Approval, stored.Type)

	record, ok := fs.GetThread("t-1")
	require.True(t, ok)
	assert.Equal(t, StatusPaused, record.Status)
	assert.Equal(t, "review", record.NodeName)
	assert.Equal(t, req.ID, record.PendingInteractionID)
	assert.Equal(t, "abc", record.Bundle.CSVHash)
	assert.Equal(t, map[string]any{"q": "?"}, record.Checkpoint.Inputs)

	require.NotNil(t, notified)
	assert.Equal(t, req.ID, notified.ID)
}

func TestResumeLifecycle(t *testing.T) {
	h, fs := newTestHandler(t, nil)
	pauseThread(t, h, "t-1")

	require.NoError(t, h.MarkThreadResuming("t-1"))
	record, ok := fs.GetThread("t-1")
	require.True(t, ok)
	assert.Equal(t, StatusResuming, record.Status)
	require.NotNil(t, record.ResumedAt)

	require.NoError(t, h.MarkThreadCompleted(context.Background(), "t-1"))
	record, ok = fs.GetThread("t-1")
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, record.Status)
	assert.Empty(t, record.PendingInteractionID)
}

func TestResumeUnknownThread(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	assert.ErrorContains(t, h.MarkThreadResuming("ghost"), "not found")
	assert.ErrorContains(t, h.MarkThreadCompleted(context.Background(), "ghost"), "not found")
	_, _, err := h.ResumeState(context.Background(), "ghost")
	assert.ErrorContains(t, err, "not found")
}

func TestResumeState_EmbeddedCheckpoint(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	pauseThread(t, h, "t-1")

	checkpoint, record, err := h.ResumeState(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, "review", checkpoint.NodeName)
	assert.Equal(t, map[string]any{"q": "?"}, checkpoint.Inputs)
	assert.Equal(t, "flow", record.GraphName)
}

func TestCleanupExpiredThreads(t *testing.T) {
	h, fs := newTestHandler(t, nil)
	pauseThread(t, h, "stale")
	pauseThread(t, h, "fresh")
	pauseThread(t, h, "done")
	require.NoError(t, h.MarkThreadCompleted(context.Background(), "done"))

	// Age the stale record past the cutoff.
	record, ok := fs.GetThread("stale")
	require.True(t, ok)
	record.UpdatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, fs.SaveThread(record))

	removed, err := h.CleanupExpiredThreads(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok = fs.GetThread("stale")
	assert.False(t, ok)
	_, ok = fs.GetThread("fresh")
	assert.True(t, ok)
	// Completed threads are done, not stale; they survive the sweep.
	_, ok = fs.GetThread("done")
	assert.True(t, ok)
}

// memoryCheckpointStore is an in-memory store.CheckpointStore for
// exercising the optional checkpoint backend without a database.
type memoryCheckpointStore struct {
	saved map[string]*store.ThreadCheckpoint
}

func newMemoryCheckpointStore() *memoryCheckpointStore {
	return &memoryCheckpointStore{saved: make(map[string]*store.ThreadCheckpoint)}
}

func (m *memoryCheckpointStore) Save(_ context.Context, cp *store.ThreadCheckpoint) error {
	m.saved[cp.ThreadID] = cp
	return nil
}

func (m *memoryCheckpointStore) Load(_ context.Context, threadID string) (*store.ThreadCheckpoint, error) {
	cp, ok := m.saved[threadID]
	if !ok {
		return nil, context.Canceled
	}
	return cp, nil
}

func (m *memoryCheckpointStore) ListByGraph(_ context.Context, graphName string) ([]*store.ThreadCheckpoint, error) {
	var out []*store.ThreadCheckpoint
	for _, cp := range m.saved {
		if cp.GraphName == graphName {
			out = append(out, cp)
		}
	}
	return out, nil
}

func (m *memoryCheckpointStore) Delete(_ context.Context, threadID string) error {
	delete(m.saved, threadID)
	return nil
}

func (m *memoryCheckpointStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	removed := 0
	for id, cp := range m.saved {
		if cp.SavedAt.Before(cutoff) {
			delete(m.saved, id)
			removed++
		}
	}
	return removed, nil
}

func TestCheckpointBackend_RoundTrip(t *testing.T) {
	backend := newMemoryCheckpointStore()
	fs := NewFileStore(filepath.Join(t.TempDir(), "interactions.json"), nil)
	h := NewHandler(fs, nil, nil).WithCheckpointBackend(NewCheckpointBackend(backend))

	pauseThread(t, h, "t-1")

	cp, ok := backend.saved["t-1"]
	require.True(t, ok)
	assert.Equal(t, "flow", cp.GraphName)
	assert.Equal(t, "review", cp.NodeName)

	checkpoint, _, err := h.ResumeState(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"q": "?"}, checkpoint.Inputs)

	require.NoError(t, h.MarkThreadCompleted(context.Background(), "t-1"))
	_, ok = backend.saved["t-1"]
	assert.False(t, ok)
}
