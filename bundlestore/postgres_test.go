package bundlestore

import (
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRegistry_Register(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	reg := NewPostgresRegistryWithPool(mock, "bundle_registry")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bundle_registry")).
		WithArgs("hash1", "graph1", "/bundles/hash1/graph1.json", "/spec.csv", pgxmock.AnyArg(), int64(0), 3).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = reg.Register("hash1", "graph1", "/bundles/hash1/graph1.json", "/spec.csv", 3)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRegistry_FindBundle(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	reg := NewPostgresRegistryWithPool(mock, "bundle_registry")

	rows := pgxmock.NewRows([]string{"bundle_path"}).AddRow("/bundles/hash1/graph1.json")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT bundle_path FROM bundle_registry WHERE csv_hash = $1 AND graph_name = $2")).
		WithArgs("hash1", "graph1").
		WillReturnRows(rows)

	// Lookups issue no UPDATE: the mock would fail on any unexpected write.
	path, ok := reg.FindBundle("hash1", "graph1")
	assert.True(t, ok)
	assert.Equal(t, "/bundles/hash1/graph1.json", path)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRegistry_GetEntryInfo(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	reg := NewPostgresRegistryWithPool(mock, "bundle_registry")

	now := time.Now()
	rows := pgxmock.NewRows([]string{"bundle_path", "csv_path", "created_at", "last_accessed", "access_count", "bundle_size", "node_count"}).
		AddRow("/bundles/hash1/graph1.json", "/spec.csv", now, &now, 0, int64(128), 4)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT bundle_path, csv_path, created_at, last_accessed, access_count, bundle_size, node_count")).
		WithArgs("hash1", "graph1").
		WillReturnRows(rows)

	entry, ok := reg.GetEntryInfo("hash1", "graph1")
	require.True(t, ok)
	assert.Equal(t, 4, entry.NodeCount)
	assert.Equal(t, int64(128), entry.BundleSize)
	assert.Zero(t, entry.AccessCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRegistry_RemoveEntry(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	reg := NewPostgresRegistryWithPool(mock, "bundle_registry")

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bundle_registry WHERE csv_hash = $1 AND graph_name = $2")).
		WithArgs("hash1", "graph1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	assert.True(t, reg.RemoveEntry("hash1", "graph1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
