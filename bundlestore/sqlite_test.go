package bundlestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSqliteRegistry(t *testing.T) *SqliteRegistry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.db")
	reg, err := NewSqliteRegistry(SqliteOptions{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })
	return reg
}

func TestSqliteRegistry_RegisterAndFind(t *testing.T) {
	reg := newTestSqliteRegistry(t)
	bundlePath := filepath.Join(t.TempDir(), "bundle.json")
	require.NoError(t, writeTestBundleFile(t, bundlePath))

	csvHash := "a" + repeatChar("0", 63)
	require.NoError(t, reg.Register(csvHash, "graph1", bundlePath, "/tmp/spec.csv", 3))

	got, ok := reg.FindBundle(csvHash, "graph1")
	assert.True(t, ok)
	assert.Equal(t, bundlePath, got)

	entry, ok := reg.GetEntryInfo(csvHash, "graph1")
	assert.True(t, ok)
	assert.Equal(t, 3, entry.NodeCount)
	// Lookups do not mutate the registry.
	assert.Zero(t, entry.AccessCount)
	assert.True(t, entry.LastAccessed.IsZero())
}

func TestSqliteRegistry_FindBundle_EmptyGraphNamePicksFirst(t *testing.T) {
	reg := newTestSqliteRegistry(t)
	bundlePath := filepath.Join(t.TempDir(), "bundle.json")
	require.NoError(t, writeTestBundleFile(t, bundlePath))

	csvHash := "b" + repeatChar("1", 63)
	require.NoError(t, reg.Register(csvHash, "zeta", bundlePath, "/tmp/spec.csv", 1))
	require.NoError(t, reg.Register(csvHash, "alpha", bundlePath, "/tmp/spec.csv", 1))

	got, ok := reg.FindBundle(csvHash, "")
	assert.True(t, ok)
	assert.Equal(t, bundlePath, got)
	entry, ok := reg.GetEntryInfo(csvHash, "alpha")
	assert.True(t, ok)
	assert.Zero(t, entry.AccessCount)
}

func TestSqliteRegistry_RemoveEntry(t *testing.T) {
	reg := newTestSqliteRegistry(t)
	bundlePath := filepath.Join(t.TempDir(), "bundle.json")
	require.NoError(t, writeTestBundleFile(t, bundlePath))

	csvHash := "c" + repeatChar("2", 63)
	require.NoError(t, reg.Register(csvHash, "graph1", bundlePath, "/tmp/spec.csv", 1))

	assert.True(t, reg.RemoveEntry(csvHash, "graph1"))
	_, ok := reg.FindBundle(csvHash, "graph1")
	assert.False(t, ok)
	assert.False(t, reg.RemoveEntry(csvHash, "graph1"))
}

func repeatChar(c string, n int) string {
	out := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, c[0])
	}
	return string(out)
}

func writeTestBundleFile(t *testing.T, path string) error {
	t.Helper()
	return os.WriteFile(path, []byte(`{"graph_name":"graph1"}`), 0o644)
}
