// Package postgres provides a PostgreSQL-backed store.CheckpointStore for
// deployments where paused-thread state must survive the host or be
// visible to more than one façade process.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentmap/agentmap-core/store"
)

// DBPool is the subset of *pgxpool.Pool this store needs, narrow enough
// that pgxmock.Pool satisfies it for tests.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// CheckpointStore implements store.CheckpointStore over PostgreSQL.
type CheckpointStore struct {
	pool      DBPool
	tableName string
}

// Options configures the PostgreSQL connection.
type Options struct {
	ConnString string
	TableName  string // Default "thread_checkpoints"
}

// NewCheckpointStore opens a connection pool and ensures the schema exists.
func NewCheckpointStore(ctx context.Context, opts Options) (*CheckpointStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("postgres: create connection pool: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "thread_checkpoints"
	}
	s := &CheckpointStore{pool: pool, tableName: tableName}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewCheckpointStoreWithPool wires a store over an existing pool, useful
// for testing with pgxmock.
func NewCheckpointStoreWithPool(pool DBPool, tableName string) *CheckpointStore {
	if tableName == "" {
		tableName = "thread_checkpoints"
	}
	return &CheckpointStore{pool: pool, tableName: tableName}
}

func (s *CheckpointStore) initSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			thread_id TEXT PRIMARY KEY,
			graph_name TEXT NOT NULL,
			node_name TEXT NOT NULL,
			inputs JSONB,
			agent_context JSONB,
			tracker JSONB,
			saved_at TIMESTAMPTZ NOT NULL,
			version INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_graph_name ON %s (graph_name);
	`, s.tableName, s.tableName, s.tableName)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("postgres: create schema: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *CheckpointStore) Close() {
	s.pool.Close()
}

// Save implements store.CheckpointStore.
func (s *CheckpointStore) Save(ctx context.Context, cp *store.ThreadCheckpoint) error {
	inputs, err := json.Marshal(cp.Inputs)
	if err != nil {
		return fmt.Errorf("postgres: marshal inputs: %w", err)
	}
	agentContext, err := json.Marshal(cp.AgentContext)
	if err != nil {
		return fmt.Errorf("postgres: marshal agent context: %w", err)
	}
	tracker, err := json.Marshal(cp.Tracker)
	if err != nil {
		return fmt.Errorf("postgres: marshal tracker snapshot: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (thread_id, graph_name, node_name, inputs, agent_context, tracker, saved_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (thread_id) DO UPDATE SET
			graph_name = EXCLUDED.graph_name,
			node_name = EXCLUDED.node_name,
			inputs = EXCLUDED.inputs,
			agent_context = EXCLUDED.agent_context,
			tracker = EXCLUDED.tracker,
			saved_at = EXCLUDED.saved_at,
			version = EXCLUDED.version
	`, s.tableName)

	_, err = s.pool.Exec(ctx, query,
		cp.ThreadID, cp.GraphName, cp.NodeName,
		string(inputs), string(agentContext), string(tracker),
		cp.SavedAt, cp.Version,
	)
	if err != nil {
		return fmt.Errorf("postgres: save checkpoint for thread %s: %w", cp.ThreadID, err)
	}
	return nil
}

// Load implements store.CheckpointStore.
func (s *CheckpointStore) Load(ctx context.Context, threadID string) (*store.ThreadCheckpoint, error) {
	query := fmt.Sprintf(`
		SELECT thread_id, graph_name, node_name, inputs, agent_context, tracker, saved_at, version
		FROM %s WHERE thread_id = $1
	`, s.tableName)

	cp, err := scanCheckpoint(s.pool.QueryRow(ctx, query, threadID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("postgres: checkpoint not found for thread %s", threadID)
		}
		return nil, fmt.Errorf("postgres: load checkpoint for thread %s: %w", threadID, err)
	}
	return cp, nil
}

// ListByGraph implements store.CheckpointStore.
func (s *CheckpointStore) ListByGraph(ctx context.Context, graphName string) ([]*store.ThreadCheckpoint, error) {
	query := fmt.Sprintf(`
		SELECT thread_id, graph_name, node_name, inputs, agent_context, tracker, saved_at, version
		FROM %s WHERE graph_name = $1 ORDER BY saved_at ASC
	`, s.tableName)

	rows, err := s.pool.Query(ctx, query, graphName)
	if err != nil {
		return nil, fmt.Errorf("postgres: list checkpoints for graph %s: %w", graphName, err)
	}
	defer rows.Close()

	var checkpoints []*store.ThreadCheckpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan checkpoint row: %w", err)
		}
		checkpoints = append(checkpoints, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate checkpoint rows: %w", err)
	}
	return checkpoints, nil
}

// Delete implements store.CheckpointStore.
func (s *CheckpointStore) Delete(ctx context.Context, threadID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE thread_id = $1", s.tableName)
	if _, err := s.pool.Exec(ctx, query, threadID); err != nil {
		return fmt.Errorf("postgres: delete checkpoint for thread %s: %w", threadID, err)
	}
	return nil
}

// DeleteOlderThan implements store.CheckpointStore.
func (s *CheckpointStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE saved_at < $1", s.tableName)
	tag, err := s.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete checkpoints older than %s: %w", cutoff, err)
	}
	return int(tag.RowsAffected()), nil
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
