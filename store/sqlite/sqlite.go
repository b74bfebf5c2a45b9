// Package sqlite provides a SQLite-backed store.CheckpointStore, the
// lightweight single-file option for deployments that keep resumable
// thread state next to the bundle cache on local disk.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/agentmap/agentmap-core/store"
)

// CheckpointStore implements store.CheckpointStore over a SQLite file.
type CheckpointStore struct {
	db        *sql.DB
	tableName string
}

// Options configures the SQLite connection.
type Options struct {
	Path      string
	TableName string // Default "thread_checkpoints"
}

// NewCheckpointStore opens (or creates) the database file and ensures the
// schema exists.
func NewCheckpointStore(opts Options) (*CheckpointStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "thread_checkpoints"
	}

	s := &CheckpointStore{db: db, tableName: tableName}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *CheckpointStore) initSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			thread_id TEXT PRIMARY KEY,
			graph_name TEXT NOT NULL,
			node_name TEXT NOT NULL,
			inputs TEXT,
			agent_context TEXT,
			tracker TEXT,
			saved_at DATETIME NOT NULL,
			version INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_graph_name ON %s (graph_name);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("sqlite: create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *CheckpointStore) Close() error {
	return s.db.Close()
}

// Save implements store.CheckpointStore.
func (s *CheckpointStore) Save(ctx context.Context, cp *store.ThreadCheckpoint) error {
	inputs, err := json.Marshal(cp.Inputs)
	if err != nil {
		return fmt.Errorf("sqlite: marshal inputs: %w", err)
	}
	agentContext, err := json.Marshal(cp.AgentContext)
	if err != nil {
		return fmt.Errorf("sqlite: marshal agent context: %w", err)
	}
	tracker, err := json.Marshal(cp.Tracker)
	if err != nil {
		return fmt.Errorf("sqlite: marshal tracker snapshot: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (thread_id, graph_name, node_name, inputs, agent_context, tracker, saved_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			graph_name = excluded.graph_name,
			node_name = excluded.node_name,
			inputs = excluded.inputs,
			agent_context = excluded.agent_context,
			tracker = excluded.tracker,
			saved_at = excluded.saved_at,
			version = excluded.version
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		cp.ThreadID, cp.GraphName, cp.NodeName,
		string(inputs), string(agentContext), string(tracker),
		cp.SavedAt, cp.Version,
	)
	if err != nil {
		return fmt.Errorf("sqlite: save checkpoint for thread %s: %w", cp.ThreadID, err)
	}
	return nil
}

// Load implements store.CheckpointStore.
func (s *CheckpointStore) Load(ctx context.Context, threadID string) (*store.ThreadCheckpoint, error) {
	query := fmt.Sprintf(`
		SELECT thread_id, graph_name, node_name, inputs, agent_context, tracker, saved_at, version
		FROM %s WHERE thread_id = ?
	`, s.tableName)

	cp, err := scanCheckpoint(s.db.QueryRowContext(ctx, query, threadID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("sqlite: checkpoint not found for thread %s", threadID)
		}
		return nil, fmt.Errorf("sqlite: load checkpoint for thread %s: %w", threadID, err)
	}
	return cp, nil
}

// ListByGraph implements store.CheckpointStore.
func (s *CheckpointStore) ListByGraph(ctx context.Context, graphName string) ([]*store.ThreadCheckpoint, error) {
	query := fmt.Sprintf(`
		SELECT thread_id, graph_name, node_name, inputs, agent_context, tracker, saved_at, version
		FROM %s WHERE graph_name = ? ORDER BY saved_at ASC
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query, graphName)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list checkpoints for graph %s: %w", graphName, err)
	}
	defer rows.Close()

	var checkpoints []*store.ThreadCheckpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan checkpoint row: %w", err)
		}
		checkpoints = append(checkpoints, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate checkpoint rows: %w", err)
	}
	return checkpoints, nil
}

// Delete implements store.CheckpointStore.
func (s *CheckpointStore) Delete(ctx context.Context, threadID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE thread_id = ?", s.tableName)
	if _, err := s.db.ExecContext(ctx, query, threadID); err != nil {
		return fmt.Errorf("sqlite: delete checkpoint for thread %s: %w", threadID, err)
	}
	return nil
}

// DeleteOlderThan implements store.CheckpointStore.
func (s *CheckpointStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE saved_at < ?", s.tableName)
	result, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sqlite: delete checkpoints older than %s: %w", cutoff, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(affected), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(row rowScanner) (*store.ThreadCheckpoint, error) {
	var cp store.ThreadCheckpoint
	var inputs, agentContext, tracker string
	if err := row.Scan(
		&cp.ThreadID, &cp.GraphName, &cp.NodeName,
		&inputs, &agentContext, &tracker,
		&cp.SavedAt, &cp.Version,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(inputs), &cp.Inputs); err != nil {
		return nil, fmt.Errorf("unmarshal inputs: %w", err)
	}
	if err := json.Unmarshal([]byte(agentContext), &cp.AgentContext); err != nil {
		return nil, fmt.Errorf("unmarshal agent context: %w", err)
	}
	if err := json.Unmarshal([]byte(tracker), &cp.Tracker); err != nil {
		return nil, fmt.Errorf("unmarshal tracker snapshot: %w", err)
	}
	return &cp, nil
}
