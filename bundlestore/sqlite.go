// Package bundlestore provides alternate persistence backends for the
// bundle registry (C10), implementing bundle.RegistryBackend against a SQL
// database instead of the default JSON file (spec §4.10, DOMAIN STACK
// "alternate C10 backends").
package bundlestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/agentmap/agentmap-core/bundle"
)

// SqliteRegistry implements bundle.RegistryBackend using SQLite.
type SqliteRegistry struct {
	db        *sql.DB
	tableName string
}

// SqliteOptions configures a SQLite-backed registry.
type SqliteOptions struct {
	Path      string
	TableName string // Default "bundle_registry"
}

// NewSqliteRegistry opens (or creates) a SQLite-backed bundle registry.
func NewSqliteRegistry(opts SqliteOptions) (*SqliteRegistry, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("bundlestore: unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "bundle_registry"
	}

	r := &SqliteRegistry{db: db, tableName: tableName}
	if err := r.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SqliteRegistry) initSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			csv_hash TEXT NOT NULL,
			graph_name TEXT NOT NULL,
			bundle_path TEXT NOT NULL,
			csv_path TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			last_accessed DATETIME,
			access_count INTEGER NOT NULL DEFAULT 0,
			bundle_size INTEGER NOT NULL DEFAULT 0,
			node_count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (csv_hash, graph_name)
		);
	`, r.tableName)
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("bundlestore: create schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (r *SqliteRegistry) Close() error {
	return r.db.Close()
}

// Register implements bundle.RegistryBackend.
func (r *SqliteRegistry) Register(csvHash, graphName, bundlePath, csvPath string, nodeCount int) error {
	ctx := context.Background()
	var bundleSize int64
	if info, err := os.Stat(bundlePath); err == nil {
		bundleSize = info.Size()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (csv_hash, graph_name, bundle_path, csv_path, created_at, access_count, bundle_size, node_count)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(csv_hash, graph_name) DO UPDATE SET
			bundle_path = excluded.bundle_path,
			csv_path = excluded.csv_path,
			bundle_size = excluded.bundle_size,
			node_count = excluded.node_count
	`, r.tableName)

	_, err := r.db.ExecContext(ctx, query, csvHash, graphName, bundlePath, csvPath, time.Now(), bundleSize, nodeCount)
	if err != nil {
		return fmt.Errorf("bundlestore: register (%s, %s): %w", csvHash, graphName, err)
	}
	return nil
}

// FindBundle implements bundle.RegistryBackend. Lookups are read-only:
// they never touch access bookkeeping or write to the database, exactly
// like the file-backed Registry.
func (r *SqliteRegistry) FindBundle(csvHash, graphName string) (string, bool) {
	ctx := context.Background()
	if graphName == "" {
		resolved, ok := r.firstGraphName(ctx, csvHash)
		if !ok {
			return "", false
		}
		graphName = resolved
	}

	query := fmt.Sprintf("SELECT bundle_path FROM %s WHERE csv_hash = ? AND graph_name = ?", r.tableName)
	var bundlePath string
	if err := r.db.QueryRowContext(ctx, query, csvHash, graphName).Scan(&bundlePath); err != nil {
		return "", false
	}
	return bundlePath, true
}

func (r *SqliteRegistry) firstGraphName(ctx context.Context, csvHash string) (string, bool) {
	query := fmt.Sprintf("SELECT graph_name FROM %s WHERE csv_hash = ? ORDER BY graph_name ASC LIMIT 1", r.tableName)
	var name string
	if err := r.db.QueryRowContext(ctx, query, csvHash).Scan(&name); err != nil {
		return "", false
	}
	return name, true
}

// RemoveEntry implements bundle.RegistryBackend.
func (r *SqliteRegistry) RemoveEntry(csvHash, graphName string) bool {
	ctx := context.Background()
	var query string
	var args []any
	if graphName == "" {
		query = fmt.Sprintf("DELETE FROM %s WHERE csv_hash = ?", r.tableName)
		args = []any{csvHash}
	} else {
		query = fmt.Sprintf("DELETE FROM %s WHERE csv_hash = ? AND graph_name = ?", r.tableName)
		args = []any{csvHash, graphName}
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false
	}
	n, err := result.RowsAffected()
	return err == nil && n > 0
}

// GetEntryInfo implements bundle.RegistryBackend.
func (r *SqliteRegistry) GetEntryInfo(csvHash, graphName string) (bundle.RegistryEntry, bool) {
	ctx := context.Background()
	query := fmt.Sprintf(`
		SELECT bundle_path, csv_path, created_at, last_accessed, access_count, bundle_size, node_count
		FROM %s WHERE csv_hash = ? AND graph_name = ?
	`, r.tableName)

	var entry bundle.RegistryEntry
	var lastAccessed sql.NullTime
	err := r.db.QueryRowContext(ctx, query, csvHash, graphName).Scan(
		&entry.BundlePath, &entry.CSVPath, &entry.CreatedAt, &lastAccessed,
		&entry.AccessCount, &entry.BundleSize, &entry.NodeCount,
	)
	if err != nil {
		return bundle.RegistryEntry{}, false
	}
	if lastAccessed.Valid {
		entry.LastAccessed = lastAccessed.Time
	}
	return entry, true
}
