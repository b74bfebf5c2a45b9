package bundlestore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentmap/agentmap-core/bundle"
)

// DBPool is the subset of *pgxpool.Pool this backend needs, narrow enough
// that pgxmock.Pool satisfies it for tests (mirrors store/postgres.DBPool).
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresRegistry implements bundle.RegistryBackend using PostgreSQL.
type PostgresRegistry struct {
	pool      DBPool
	tableName string
}

// PostgresOptions configures a Postgres-backed registry.
type PostgresOptions struct {
	ConnString string
	TableName  string // Default "bundle_registry"
}

// NewPostgresRegistry opens a connection pool and initializes the schema.
func NewPostgresRegistry(ctx context.Context, opts PostgresOptions) (*PostgresRegistry, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("bundlestore: unable to create connection pool: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "bundle_registry"
	}
	r := &PostgresRegistry{pool: pool, tableName: tableName}
	if err := r.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

// NewPostgresRegistryWithPool wires a registry over an existing pool,
// useful for testing with pgxmock.
func NewPostgresRegistryWithPool(pool DBPool, tableName string) *PostgresRegistry {
	if tableName == "" {
		tableName = "bundle_registry"
	}
	return &PostgresRegistry{pool: pool, tableName: tableName}
}

func (r *PostgresRegistry) initSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			csv_hash TEXT NOT NULL,
			graph_name TEXT NOT NULL,
			bundle_path TEXT NOT NULL,
			csv_path TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			last_accessed TIMESTAMPTZ,
			access_count INTEGER NOT NULL DEFAULT 0,
			bundle_size BIGINT NOT NULL DEFAULT 0,
			node_count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (csv_hash, graph_name)
		);
	`, r.tableName)
	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("bundlestore: create schema: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (r *PostgresRegistry) Close() {
	r.pool.Close()
}

// Register implements bundle.RegistryBackend.
func (r *PostgresRegistry) Register(csvHash, graphName, bundlePath, csvPath string, nodeCount int) error {
	ctx := context.Background()
	query := fmt.Sprintf(`
		INSERT INTO %s (csv_hash, graph_name, bundle_path, csv_path, created_at, access_count, bundle_size, node_count)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
		ON CONFLICT (csv_hash, graph_name) DO UPDATE SET
			bundle_path = EXCLUDED.bundle_path,
			csv_path = EXCLUDED.csv_path,
			bundle_size = EXCLUDED.bundle_size,
			node_count = EXCLUDED.node_count
	`, r.tableName)

	_, err := r.pool.Exec(ctx, query, csvHash, graphName, bundlePath, csvPath, time.Now(), int64(0), nodeCount)
	if err != nil {
		return fmt.Errorf("bundlestore: register (%s, %s): %w", csvHash, graphName, err)
	}
	return nil
}

// FindBundle implements bundle.RegistryBackend. Lookups are read-only:
// they never touch access bookkeeping or write to the database, exactly
// like the file-backed Registry.
func (r *PostgresRegistry) FindBundle(csvHash, graphName string) (string, bool) {
	ctx := context.Background()
	if graphName == "" {
		resolved, ok := r.firstGraphName(ctx, csvHash)
		if !ok {
			return "", false
		}
		graphName = resolved
	}

	query := fmt.Sprintf("SELECT bundle_path FROM %s WHERE csv_hash = $1 AND graph_name = $2", r.tableName)
	var bundlePath string
	if err := r.pool.QueryRow(ctx, query, csvHash, graphName).Scan(&bundlePath); err != nil {
		return "", false
	}
	return bundlePath, true
}

func (r *PostgresRegistry) firstGraphName(ctx context.Context, csvHash string) (string, bool) {
	query := fmt.Sprintf("SELECT graph_name FROM %s WHERE csv_hash = $1 ORDER BY graph_name ASC LIMIT 1", r.tableName)
	var name string
	if err := r.pool.QueryRow(ctx, query, csvHash).Scan(&name); err != nil {
		return "", false
	}
	return name, true
}

// RemoveEntry implements bundle.RegistryBackend.
func (r *PostgresRegistry) RemoveEntry(csvHash, graphName string) bool {
	ctx := context.Background()
	var query string
	var args []any
	if graphName == "" {
		query = fmt.Sprintf("DELETE FROM %s WHERE csv_hash = $1", r.tableName)
		args = []any{csvHash}
	} else {
		query = fmt.Sprintf("DELETE FROM %s WHERE csv_hash = $1 AND graph_name = $2", r.tableName)
		args = []any{csvHash, graphName}
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false
	}
	return tag.RowsAffected() > 0
}

// GetEntryInfo implements bundle.RegistryBackend.
func (r *PostgresRegistry) GetEntryInfo(csvHash, graphName string) (bundle.RegistryEntry, bool) {
	ctx := context.Background()
	query := fmt.Sprintf(`
		SELECT bundle_path, csv_path, created_at, last_accessed, access_count, bundle_size, node_count
		FROM %s WHERE csv_hash = $1 AND graph_name = $2
	`, r.tableName)

	var entry bundle.RegistryEntry
	var lastAccessed *time.Time
	err := r.pool.QueryRow(ctx, query, csvHash, graphName).Scan(
		&entry.BundlePath, &entry.CSVPath, &entry.CreatedAt, &lastAccessed,
		&entry.AccessCount, &entry.BundleSize, &entry.NodeCount,
	)
	if err != nil {
		return bundle.RegistryEntry{}, false
	}
	if lastAccessed != nil {
		entry.LastAccessed = *lastAccessed
	}
	return entry, true
}
