// Package interaction implements the interaction handler (C16): it catches
// the typed interruption an agent's run raises, persists the human
// interaction request and a resumable thread record, and supports marking
// a thread resuming/completed and purging stale ones (spec §4.16).
package interaction

import "time"

// Type enumerates the interaction kinds spec §3's HumanInteractionRequest
// allows.
type Type string

const (
	TextInput Type = "text_input"
	Choice    Type = "choice"
	Approval  Type = "approval"
	Custom    Type = "custom"
)

// Request is HumanInteractionRequest (spec §3/§4.16).
type Request struct {
	ID             string         `json:"id"`
	ThreadID       string         `json:"thread_id"`
	NodeName       string         `json:"node_name"`
	Type           Type           `json:"interaction_type"`
	Prompt         string         `json:"prompt"`
	Context        map[string]any `json:"context,omitempty"`
	Options        []string       `json:"options,omitempty"`
	TimeoutSeconds int            `json:"timeout_seconds,omitempty"`
}

// Status is a thread record's lifecycle state (spec §3 "Thread record").
type Status string

const (
	StatusPaused    Status = "paused"
	StatusResuming  Status = "resuming"
	StatusCompleted Status = "completed"
)

// CheckpointData is the execution state captured at the interrupting node
// (spec §3 "checkpoint_data").
type CheckpointData struct {
	Inputs           map[string]any `json:"inputs,omitempty"`
	AgentContext     map[string]any `json:"agent_context,omitempty"`
	ExecutionTracker any            `json:"execution_tracker,omitempty"`
	NodeName         string         `json:"node_name"`
}

// BundleInfo identifies the bundle a paused execution belongs to (spec §3
// "bundle_info"), enough to resume without re-resolving a graph name.
type BundleInfo struct {
	CSVHash    string `json:"csv_hash"`
	BundlePath string `json:"bundle_path"`
	CSVPath    string `json:"csv_path"`
}

// ThreadRecord correlates an interrupted execution with its resume state
// (spec §3 "Thread record", GLOSSARY "Thread").
type ThreadRecord struct {
	ThreadID             string          `json:"thread_id"`
	GraphName            string          `json:"graph_name"`
	NodeName             string          `json:"node_name"`
	Status               Status          `json:"status"`
	PendingInteractionID string          `json:"pending_interaction_id,omitempty"`
	Checkpoint           CheckpointData  `json:"checkpoint_data"`
	Bundle               BundleInfo      `json:"bundle_info"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	ResumedAt            *time.Time      `json:"resumed_at,omitempty"`
}
