package interaction

import (
	"context"
	"fmt"
	"time"

	"github.com/agentmap/agentmap-core/log"
)

// Handler is the interaction handler (C16).
type Handler struct {
	store       Store
	checkpoints *CheckpointBackend
	log         log.Logger
	onNotify    func(*Request)
}

// NewHandler wires a handler over a Store. onNotify, when non-nil, is the
// "display callback" of spec §4.16 step 3: it lets an external adapter
// (CLI, HTTP, ...) surface the prompt; the core never formats or presents
// it itself.
func NewHandler(store Store, logger log.Logger, onNotify func(*Request)) *Handler {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	return &Handler{store: store, log: logger, onNotify: onNotify}
}

// WithCheckpointBackend attaches a pluggable store.CheckpointStore-backed
// checkpoint backend (spec §5 "pluggable persistence backend"), returning
// h for chaining at bootstrap time.
func (h *Handler) WithCheckpointBackend(backend *CheckpointBackend) *Handler {
	h.checkpoints = backend
	return h
}

// HandleInterrupt implements spec §4.16's three steps for a raised
// ExecutionInterrupted(threadID, req, checkpoint). graphName and bundle
// identify the paused execution's bundle (spec §3 "bundle_info").
func (h *Handler) HandleInterrupt(ctx context.Context, threadID, graphName string, req *Request, checkpoint CheckpointData, bundle BundleInfo) error {
	if req.ThreadID == "" {
		req.ThreadID = threadID
	}

	if err := h.store.SaveInteraction(req); err != nil {
		return fmt.Errorf("interaction: save interaction request: %w", err)
	}

	if h.checkpoints != nil {
		if err := h.checkpoints.save(ctx, threadID, graphName, checkpoint); err != nil {
			return err
		}
	}

	now := time.Now()
	record := &ThreadRecord{
		ThreadID:             threadID,
		GraphName:            graphName,
		NodeName:             checkpoint.NodeName,
		Status:               StatusPaused,
		PendingInteractionID: req.ID,
		Checkpoint:           checkpoint,
		Bundle:               bundle,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := h.store.SaveThread(record); err != nil {
		return fmt.Errorf("interaction: save thread record: %w", err)
	}

	if h.onNotify != nil {
		h.onNotify(req)
	}
	return nil
}

// MarkThreadResuming transitions a paused thread to "resuming" and records
// resumed_at (spec §4.16 "Resume path").
func (h *Handler) MarkThreadResuming(threadID string) error {
	record, ok := h.store.GetThread(threadID)
	if !ok {
		return fmt.Errorf("interaction: mark thread resuming: thread %s not found", threadID)
	}
	now := time.Now()
	record.Status = StatusResuming
	record.ResumedAt = &now
	record.UpdatedAt = now
	if err := h.store.SaveThread(record); err != nil {
		return fmt.Errorf("interaction: mark thread resuming: %w", err)
	}
	return nil
}

// MarkThreadCompleted sets a thread's status to "completed", clears its
// pending-interaction pointer, and (when a checkpoint backend is
// configured) drops its now-unneeded saved checkpoint (spec §4.16 "Resume
// path").
func (h *Handler) MarkThreadCompleted(ctx context.Context, threadID string) error {
	record, ok := h.store.GetThread(threadID)
	if !ok {
		return fmt.Errorf("interaction: mark thread completed: thread %s not found", threadID)
	}
	record.Status = StatusCompleted
	record.PendingInteractionID = ""
	record.UpdatedAt = time.Now()
	if err := h.store.SaveThread(record); err != nil {
		return fmt.Errorf("interaction: mark thread completed: %w", err)
	}
	if h.checkpoints != nil {
		if err := h.checkpoints.clear(ctx, threadID); err != nil {
			return err
		}
	}
	return nil
}

// ResumeState returns the thread's resume point: the checkpoint backend's
// copy when one is configured, falling back to the thread record's own
// embedded CheckpointData otherwise.
func (h *Handler) ResumeState(ctx context.Context, threadID string) (CheckpointData, *ThreadRecord, error) {
	record, ok := h.store.GetThread(threadID)
	if !ok {
		return CheckpointData{}, nil, fmt.Errorf("interaction: resume state: thread %s not found", threadID)
	}
	if h.checkpoints == nil {
		return record.Checkpoint, record, nil
	}
	checkpoint, err := h.checkpoints.load(ctx, threadID)
	if err != nil {
		return CheckpointData{}, nil, err
	}
	return checkpoint, record, nil
}

// CleanupExpiredThreads purges paused/resuming thread records whose
// UpdatedAt is older than maxAgeHours (spec §5 "cleanup_expired_threads(hours)").
// Completed threads are left alone: they are not "stale", they are done.
func (h *Handler) CleanupExpiredThreads(ctx context.Context, maxAgeHours float64) (int, error) {
	cutoff := time.Now().Add(-time.Duration(maxAgeHours * float64(time.Hour)))
	removed := 0
	for _, t := range h.store.ListThreads() {
		if t.Status == StatusCompleted {
			continue
		}
		if t.UpdatedAt.After(cutoff) {
			continue
		}
		if err := h.store.DeleteThread(t.ThreadID); err != nil {
			return removed, fmt.Errorf("interaction: cleanup expired thread %s: %w", t.ThreadID, err)
		}
		removed++
	}
	if h.checkpoints != nil {
		if _, err := h.checkpoints.sweepBefore(ctx, cutoff); err != nil {
			h.log.Warn("%v", err)
		}
	}
	if removed > 0 {
		h.log.Info("interaction: cleaned up %d expired thread(s) older than %.1fh", removed, maxAgeHours)
	}
	return removed, nil
}
