package interaction

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/agentmap/agentmap-core/log"
)

// Store persists interaction requests and thread records (spec §4.16
// "interactions"/"interactions_threads" collections). A *store.CheckpointStore
// (sqlite/postgres/redis) may back CheckpointData separately through
// Handler.checkpoints; Store itself only owns the two JSON collections.
type Store interface {
	SaveInteraction(req *Request) error
	GetInteraction(id string) (*Request, bool)
	SaveThread(t *ThreadRecord) error
	GetThread(threadID string) (*ThreadRecord, bool)
	ListThreads() []*ThreadRecord
	DeleteThread(threadID string) error
}

// fileStoreSchemaVersion is bumped if the on-disk shape changes.
const fileStoreSchemaVersion = 1

type fileStoreDocument struct {
	Version      int                     `json:"version"`
	Interactions map[string]*Request     `json:"interactions"`
	Threads      map[string]*ThreadRecord `json:"interactions_threads"`
}

// FileStore is the default JSON-file-backed Store, atomic-write per entry
// exactly like bundle.Registry (temp file, fsync, rename).
type FileStore struct {
	mu           sync.Mutex
	path         string
	log          log.Logger
	interactions map[string]*Request
	threads      map[string]*ThreadRecord
}

// NewFileStore loads (or initializes) the interaction store at path. A
// missing or corrupt file starts empty (spec §5 bootstrap failure isolation).
func NewFileStore(path string, logger log.Logger) *FileStore {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	s := &FileStore{
		path:         path,
		log:          logger,
		interactions: make(map[string]*Request),
		threads:      make(map[string]*ThreadRecord),
	}
	s.load()
	return s
}

func (s *FileStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("interaction: could not read store file %s: %v", s.path, err)
		}
		return
	}
	var doc fileStoreDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		s.log.Warn("interaction: discarding corrupt store file %s: %v", s.path, err)
		return
	}
	if doc.Version != fileStoreSchemaVersion {
		s.log.Warn("interaction: store file written by schema version %d (want %d)", doc.Version, fileStoreSchemaVersion)
	}
	if doc.Interactions != nil {
		s.interactions = doc.Interactions
	}
	if doc.Threads != nil {
		s.threads = doc.Threads
	}
}

// SaveInteraction implements Store.
func (s *FileStore) SaveInteraction(req *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interactions[req.ID] = req
	return s.saveLocked()
}

// GetInteraction implements Store.
func (s *FileStore) GetInteraction(id string) (*Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.interactions[id]
	return req, ok
}

// SaveThread implements Store.
func (s *FileStore) SaveThread(t *ThreadRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[t.ThreadID] = t
	return s.saveLocked()
}

// GetThread implements Store.
func (s *FileStore) GetThread(threadID string) (*ThreadRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[threadID]
	return t, ok
}

// ListThreads implements Store.
func (s *FileStore) ListThreads() []*ThreadRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ThreadRecord, 0, len(s.threads))
	for _, t := range s.threads {
		out = append(out, t)
	}
	return out
}

// DeleteThread implements Store.
func (s *FileStore) DeleteThread(threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, threadID)
	return s.saveLocked()
}

// saveLocked persists the store atomically: temp file, fsync, rename.
// Callers must hold s.mu.
func (s *FileStore) saveLocked() error {
	doc := fileStoreDocument{
		Version:      fileStoreSchemaVersion,
		Interactions: s.interactions,
		Threads:      s.threads,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("interaction: marshal store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("interaction: create store dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".interactions-*.tmp")
	if err != nil {
		return fmt.Errorf("interaction: create temp store file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("interaction: write temp store file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("interaction: fsync temp store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("interaction: close temp store file: %w", err)
	}
	return os.Rename(tmpPath, s.path)
}
