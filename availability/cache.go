package availability

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/agentmap/agentmap-core/log"
)

// SchemaVersion is bumped whenever the on-disk cache shape changes in a way
// that isn't backward compatible. A version mismatch discards the file.
const SchemaVersion = 1

// mtimeTolerance is how much drift between a recorded source mtime and the
// file's current mtime is tolerated before an entry is considered stale.
const mtimeTolerance = 5 * time.Second

type storedEntry struct {
	Value         json.RawMessage `json:"value"`
	SourcePath    string          `json:"source_path,omitempty"`
	SourceModTime *time.Time      `json:"source_mod_time,omitempty"`
}

type fileFormat struct {
	Version         int                               `json:"version"`
	EnvironmentHash string                            `json:"environment_hash"`
	Categories      map[string]map[string]storedEntry `json:"categories"`
}

// Cache is the file-backed implementation of the availability cache (C1).
// It satisfies registry.AvailabilityCache.
type Cache struct {
	mu         sync.RWMutex
	fileMu     sync.Mutex // serializes replace (save) operations
	path       string
	log        log.Logger
	envHash    string
	categories map[string]map[string]storedEntry
}

// NewCache loads an availability cache backed by the JSON file at path. A
// missing, corrupt, version-mismatched, or environment-mismatched file is
// never treated as fatal — the cache simply starts empty, since a cold
// cache only costs re-validation work, never correctness.
func NewCache(path string, logger log.Logger) *Cache {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	c := &Cache{
		path:       path,
		log:        logger,
		envHash:    computeEnvironmentHash(),
		categories: make(map[string]map[string]storedEntry),
	}
	c.load()
	return c
}

func computeEnvironmentHash() string {
	h := sha256.New()
	fmt.Fprintf(h, "go=%s;os=%s;arch=%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn("availability: could not read cache file %s: %v", c.path, err)
		}
		return
	}

	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		c.log.Warn("availability: discarding corrupt cache file %s: %v", c.path, err)
		return
	}
	if ff.Version != SchemaVersion {
		c.log.Info("availability: discarding cache written by schema version %d (want %d)", ff.Version, SchemaVersion)
		return
	}
	if ff.EnvironmentHash != c.envHash {
		c.log.Info("availability: discarding cache written under a different environment")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for category, entries := range ff.Categories {
		for key, entry := range entries {
			if !c.sourceStillValid(entry) {
				continue
			}
			if c.categories[category] == nil {
				c.categories[category] = make(map[string]storedEntry)
			}
			c.categories[category][key] = entry
		}
	}
}

// sourceStillValid reports whether an entry attached to a source file is
// still fresh. Entries with no SourcePath are always valid.
func (c *Cache) sourceStillValid(entry storedEntry) bool {
	if entry.SourcePath == "" || entry.SourceModTime == nil {
		return true
	}
	info, err := os.Stat(entry.SourcePath)
	if err != nil {
		return false
	}
	delta := info.ModTime().Sub(*entry.SourceModTime)
	if delta < 0 {
		delta = -delta
	}
	return delta <= mtimeTolerance
}

// Get retrieves a previously cached value. It satisfies
// registry.AvailabilityCache.
func (c *Cache) Get(category, key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries, ok := c.categories[category]
	if !ok {
		return nil, false
	}
	entry, ok := entries[key]
	if !ok {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(entry.Value, &v); err != nil {
		return nil, false
	}
	return v, true
}

// Set stores value under category/key with no source-file association. It
// satisfies registry.AvailabilityCache.
func (c *Cache) Set(category, key string, value any) {
	c.SetWithSource(category, key, value, "")
}

// SetWithSource stores value under category/key, recording sourcePath's
// current modification time so staleness can be detected on next load.
func (c *Cache) SetWithSource(category, key string, value any, sourcePath string) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("availability: could not marshal value for %s/%s: %v", category, key, err)
		return
	}

	entry := storedEntry{Value: raw}
	if sourcePath != "" {
		if info, err := os.Stat(sourcePath); err == nil {
			mt := info.ModTime()
			entry.SourcePath = sourcePath
			entry.SourceModTime = &mt
		}
	}

	c.mu.Lock()
	if c.categories[category] == nil {
		c.categories[category] = make(map[string]storedEntry)
	}
	c.categories[category][key] = entry
	c.mu.Unlock()
}

// Invalidate removes cached entries. An empty category clears everything;
// an empty key clears the whole category.
func (c *Cache) Invalidate(category, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case category == "":
		c.categories = make(map[string]map[string]storedEntry)
	case key == "":
		delete(c.categories, category)
	default:
		delete(c.categories[category], key)
	}
}

// Stats summarizes the cache's current contents, mirroring the validate
// operation's diagnostic output.
type Stats struct {
	Categories   int
	Entries      int
	PerCategory  map[string]int
	Path         string
	SchemaOK     bool
}

// Stat returns a read-only snapshot of cache occupancy.
func (c *Cache) Stat() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	per := make(map[string]int, len(c.categories))
	total := 0
	for category, entries := range c.categories {
		per[category] = len(entries)
		total += len(entries)
	}
	return Stats{
		Categories:  len(c.categories),
		Entries:     total,
		PerCategory: per,
		Path:        c.path,
		SchemaOK:    true,
	}
}

// Save persists the cache to disk atomically: the JSON is written to a
// temporary file in the same directory, fsynced, and then renamed over the
// destination path so a crash mid-write never leaves a truncated file.
func (c *Cache) Save() error {
	c.mu.RLock()
	ff := fileFormat{
		Version:         SchemaVersion,
		EnvironmentHash: c.envHash,
		Categories:      c.categories,
	}
	c.mu.RUnlock()

	data, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return fmt.Errorf("availability: marshal cache: %w", err)
	}

	c.fileMu.Lock()
	defer c.fileMu.Unlock()

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("availability: create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cache-*.tmp")
	if err != nil {
		return fmt.Errorf("availability: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("availability: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("availability: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("availability: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("availability: rename temp file: %w", err)
	}
	return nil
}

// Categories returns the sorted list of known category names, used by the
// diagnostics surface to enumerate what the cache holds.
func (c *Cache) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.categories))
	for name := range c.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
