package bundle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHash = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

func writeFakeBundleFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))
	return path
}

func TestRegistry_RegisterThenFindBundle(t *testing.T) {
	dir := t.TempDir()
	bundlePath := writeFakeBundleFile(t, dir, "bundle.json")
	r := NewRegistry(filepath.Join(dir, "registry.json"), nil)

	require.NoError(t, r.Register(testHash, "g", bundlePath, "spec.csv", 3))

	found, ok := r.FindBundle(testHash, "g")
	require.True(t, ok)
	assert.Equal(t, bundlePath, found)
}

func TestRegistry_RejectsInvalidHashAndMissingGraphName(t *testing.T) {
	dir := t.TempDir()
	bundlePath := writeFakeBundleFile(t, dir, "bundle.json")
	r := NewRegistry(filepath.Join(dir, "registry.json"), nil)

	assert.Error(t, r.Register("not-a-hash", "g", bundlePath, "spec.csv", 1))
	assert.Error(t, r.Register(testHash, "", bundlePath, "spec.csv", 1))
}

func TestRegistry_RejectsMissingBundleFile(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(filepath.Join(dir, "registry.json"), nil)
	assert.Error(t, r.Register(testHash, "g", filepath.Join(dir, "nope.json"), "spec.csv", 1))
}

func TestRegistry_FindBundleWithoutGraphNameReturnsLexicographicallyFirst(t *testing.T) {
	dir := t.TempDir()
	zetaPath := writeFakeBundleFile(t, dir, "zeta.json")
	alphaPath := writeFakeBundleFile(t, dir, "alpha.json")
	r := NewRegistry(filepath.Join(dir, "registry.json"), nil)

	require.NoError(t, r.Register(testHash, "zeta", zetaPath, "spec.csv", 1))
	require.NoError(t, r.Register(testHash, "alpha", alphaPath, "spec.csv", 1))

	found, ok := r.FindBundle(testHash, "")
	require.True(t, ok)
	assert.Equal(t, alphaPath, found)
}

func TestRegistry_LookupsDoNotMutateRegistry(t *testing.T) {
	dir := t.TempDir()
	bundlePath := writeFakeBundleFile(t, dir, "bundle.json")
	registryPath := filepath.Join(dir, "registry.json")
	r := NewRegistry(registryPath, nil)
	require.NoError(t, r.Register(testHash, "g", bundlePath, "spec.csv", 1))

	before, err := os.ReadFile(registryPath)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, ok := r.FindBundle(testHash, "g")
		require.True(t, ok)
	}
	entry, ok := r.GetEntryInfo(testHash, "g")
	require.True(t, ok)
	assert.Zero(t, entry.AccessCount)
	assert.True(t, entry.LastAccessed.IsZero())

	after, err := os.ReadFile(registryPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRegistry_FindBundleMissingFileOnDiskReturnsAbsent(t *testing.T) {
	dir := t.TempDir()
	bundlePath := writeFakeBundleFile(t, dir, "bundle.json")
	r := NewRegistry(filepath.Join(dir, "registry.json"), nil)
	require.NoError(t, r.Register(testHash, "g", bundlePath, "spec.csv", 1))

	require.NoError(t, os.Remove(bundlePath))
	_, ok := r.FindBundle(testHash, "g")
	assert.False(t, ok)
}

func TestRegistry_RemoveEntryOneGraphThenWholeHash(t *testing.T) {
	dir := t.TempDir()
	bundlePath := writeFakeBundleFile(t, dir, "bundle.json")
	r := NewRegistry(filepath.Join(dir, "registry.json"), nil)

	require.NoError(t, r.Register(testHash, "g1", bundlePath, "spec.csv", 1))
	require.NoError(t, r.Register(testHash, "g2", bundlePath, "spec.csv", 1))

	assert.True(t, r.RemoveEntry(testHash, "g1"))
	_, ok := r.GetEntryInfo(testHash, "g1")
	assert.False(t, ok)
	_, ok = r.GetEntryInfo(testHash, "g2")
	assert.True(t, ok)

	assert.True(t, r.RemoveEntry(testHash, "g2"))
	_, ok = r.GetEntryInfo(testHash, "g2")
	assert.False(t, ok)
}

func TestRegistry_RemoveEntryWithoutGraphNameRemovesWholeHash(t *testing.T) {
	dir := t.TempDir()
	bundlePath := writeFakeBundleFile(t, dir, "bundle.json")
	r := NewRegistry(filepath.Join(dir, "registry.json"), nil)
	require.NoError(t, r.Register(testHash, "g1", bundlePath, "spec.csv", 1))

	assert.True(t, r.RemoveEntry(testHash, ""))
	_, ok := r.GetEntryInfo(testHash, "g1")
	assert.False(t, ok)
}

func TestRegistry_SurvivesSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	bundlePath := writeFakeBundleFile(t, dir, "bundle.json")
	path := filepath.Join(dir, "registry.json")
	r := NewRegistry(path, nil)
	require.NoError(t, r.Register(testHash, "g", bundlePath, "spec.csv", 5))

	reloaded := NewRegistry(path, nil)
	entry, ok := reloaded.GetEntryInfo(testHash, "g")
	require.True(t, ok)
	assert.Equal(t, 5, entry.NodeCount)
}

func TestRegistry_MigratesLegacyFlatShape(t *testing.T) {
	dir := t.TempDir()
	bundlePath := writeFakeBundleFile(t, dir, "bundle.json")
	path := filepath.Join(dir, "registry.json")

	legacy := `{"version":1,"entries":{"` + testHash + `":{"graph_name":"legacy_graph","bundle_path":"` + strings.ReplaceAll(bundlePath, `\`, `\\`) + `","csv_path":"spec.csv","node_count":2}},"metadata":{}}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	r := NewRegistry(path, nil)
	found, ok := r.FindBundle(testHash, "legacy_graph")
	require.True(t, ok)
	assert.Equal(t, bundlePath, found)
}
