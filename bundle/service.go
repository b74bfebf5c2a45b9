package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agentmap/agentmap-core/log"
)

// BundleFormat is the `format` discriminator stamped into every persisted
// bundle (spec §6 "Bundle JSON").
const BundleFormat = "metadata"

// RegistryBackend is the persistence contract C10 needs (spec §4.10). The
// file-backed Registry below is the default; package bundlestore's
// sqlite/postgres implementations are pluggable alternates a deployment
// can pass to NewService instead.
type RegistryBackend interface {
	Register(csvHash, graphName, bundlePath, csvPath string, nodeCount int) error
	FindBundle(csvHash, graphName string) (string, bool)
	RemoveEntry(csvHash, graphName string) bool
	GetEntryInfo(csvHash, graphName string) (RegistryEntry, bool)
}

// Service is the bundle service (C9): it orchestrates the content hasher
// (C6), the parser boundary (C7), the metadata analyzer (C8), and persists
// through the bundle registry (C10).
type Service struct {
	parser    Parser
	analyzer  *Analyzer
	static    *StaticAnalyzer
	registry  RegistryBackend
	bundleDir string
	log       log.Logger
}

// NewService wires the bundle service from its collaborators. bundleDir is
// the root under which per-bundle JSON files are written, at
// bundles/<csv_hash>/<graph_name>.json (spec §5 "persisted state layout").
func NewService(parser Parser, analyzer *Analyzer, registry RegistryBackend, bundleDir string, logger log.Logger) *Service {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	return &Service{parser: parser, analyzer: analyzer, registry: registry, bundleDir: bundleDir, log: logger}
}

// WithStaticAnalyzer attaches the declaration-only fast path. When set,
// GetOrCreateBundle tries static creation first and falls back to the
// dynamic analyzer on failure. Returns s for chaining at bootstrap time.
func (s *Service) WithStaticAnalyzer(static *StaticAnalyzer) *Service {
	s.static = static
	return s
}

// IsStaticBundleAvailable reports whether the static fast path is wired.
func (s *Service) IsStaticBundleAvailable() bool {
	return s.static != nil
}

// GetOrCreateBundle hashes csvPath, checks the registry for an existing
// bundle, and on a miss parses, analyzes, persists, and registers a new
// one. The bool return reports whether a new bundle was created.
func (s *Service) GetOrCreateBundle(csvPath, graphName string) (*GraphBundle, bool, error) {
	csvHash, err := HashFile(csvPath)
	if err != nil {
		return nil, false, err
	}

	if bundlePath, ok := s.registry.FindBundle(csvHash, graphName); ok {
		existing, err := loadBundleFile(bundlePath)
		if err == nil {
			return existing, false, nil
		}
		s.log.Warn("bundle: registered bundle %s could not be loaded, rebuilding: %v", bundlePath, err)
	}

	spec, err := s.parser.Parse(csvPath)
	if err != nil {
		return nil, false, err
	}

	target, err := chooseTargetGraph(spec, graphName, s.log)
	if err != nil {
		return nil, false, err
	}

	nodes := spec.NodesFor(target)
	built := s.tryCreateStaticBundle(target, nodes)
	if built == nil {
		built, err = s.analyzer.Analyze(target, nodes)
		if err != nil {
			return nil, false, err
		}
	}

	if err := s.persistAndRegister(built, csvHash, csvPath, target, len(nodes)); err != nil {
		return nil, false, err
	}
	return built, true, nil
}

// tryCreateStaticBundle attempts the declaration-only fast path, returning
// nil (with a warning) on any failure so the caller can fall back to the
// dynamic analyzer.
func (s *Service) tryCreateStaticBundle(graphName string, nodes []Node) *GraphBundle {
	if s.static == nil {
		return nil
	}
	built, err := s.static.CreateStaticBundle(graphName, nodes)
	if err != nil {
		s.log.Warn("bundle: static bundle creation for %q failed, falling back to dynamic analysis: %v", graphName, err)
		return nil
	}
	s.log.Debug("bundle: created bundle %q via the static fast path", graphName)
	return built
}

// CreateStaticBundle builds, persists, and registers a bundle through the
// declaration-only fast path alone, with no dynamic fallback. It errors
// when no static analyzer is wired.
func (s *Service) CreateStaticBundle(csvPath, graphName string) (*GraphBundle, error) {
	if s.static == nil {
		return nil, fmt.Errorf("bundle: no static analyzer available for static bundle creation")
	}

	csvHash, err := HashFile(csvPath)
	if err != nil {
		return nil, err
	}
	spec, err := s.parser.Parse(csvPath)
	if err != nil {
		return nil, err
	}
	target, err := chooseTargetGraph(spec, graphName, s.log)
	if err != nil {
		return nil, err
	}

	nodes := spec.NodesFor(target)
	built, err := s.static.CreateStaticBundle(target, nodes)
	if err != nil {
		return nil, err
	}
	if err := s.persistAndRegister(built, csvHash, csvPath, target, len(nodes)); err != nil {
		return nil, err
	}
	return built, nil
}

// persistAndRegister stamps a freshly analyzed bundle's persistence
// metadata, writes it to its deterministic path, and records it in the
// registry. The registry update happens only after a successful write, so
// a write failure never corrupts the registry.
func (s *Service) persistAndRegister(built *GraphBundle, csvHash, csvPath, target string, nodeCount int) error {
	built.CSVHash = csvHash
	built.VersionHash = csvHash
	built.BundleFormat = SchemaVersion
	built.Format = BundleFormat
	built.CreatedAt = time.Now()

	bundlePath := s.bundlePath(csvHash, target)
	if err := writeBundleFile(bundlePath, built); err != nil {
		return fmt.Errorf("bundle: write bundle file: %w", err)
	}
	if err := s.registry.Register(csvHash, target, bundlePath, csvPath, nodeCount); err != nil {
		return fmt.Errorf("bundle: register bundle: %w", err)
	}
	return nil
}

// CreationInfo describes the bundle-creation paths this service has
// available, for diagnostics.
type CreationInfo struct {
	StaticAvailable bool   `json:"static_bundle_available"`
	RecommendedPath string `json:"recommended_method"`
}

// CreationInfo reports which creation path GetOrCreateBundle will prefer.
func (s *Service) CreationInfo() CreationInfo {
	info := CreationInfo{StaticAvailable: s.static != nil, RecommendedPath: "dynamic"}
	if info.StaticAvailable {
		info.RecommendedPath = "static"
	}
	return info
}

func (s *Service) bundlePath(csvHash, graphName string) string {
	return filepath.Join(s.bundleDir, "bundles", csvHash, graphName+".json")
}

// chooseTargetGraph implements spec §4.9 step 3's graph-selection rule:
// the requested name, else the sole graph, else the first with a warning.
func chooseTargetGraph(spec *GraphSpec, requested string, logger log.Logger) (string, error) {
	if requested != "" {
		if _, ok := spec.Graphs[requested]; !ok {
			return "", fmt.Errorf("bundle: graph %q not found in spec", requested)
		}
		return requested, nil
	}
	if sole, ok := spec.SoleGraph(); ok {
		return sole, nil
	}
	first := spec.FirstGraph()
	if first == "" {
		return "", fmt.Errorf("bundle: spec declares no graphs")
	}
	logger.Warn("bundle: no graph name requested and spec declares %d graphs; using first declared, %q", len(spec.Order), first)
	return first, nil
}

func writeBundleFile(path string, b *GraphBundle) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".bundle-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// loadBundleFile re-hydrates a persisted bundle, filling defaults for
// fields absent in older bundle_formats (spec §4.9 "serialization").
func loadBundleFile(path string) (*GraphBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var b GraphBundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	if b.GraphStructure.ParallelOpportunities == nil {
		b.GraphStructure.ParallelOpportunities = []string{}
	}
	if b.RequiredAgents == nil {
		b.RequiredAgents = []string{}
	}
	if b.RequiredServices == nil {
		b.RequiredServices = []string{}
	}
	if b.ServiceLoadOrder == nil {
		b.ServiceLoadOrder = []string{}
	}
	if b.AgentMappings == nil {
		b.AgentMappings = map[string]string{}
	}
	if b.FunctionMappings == nil {
		b.FunctionMappings = map[string]string{}
	}
	if b.ProtocolMappings == nil {
		b.ProtocolMappings = map[string]string{}
	}
	if b.ValidationMetadata.ValidationRules == nil {
		b.ValidationMetadata.ValidationRules = []string{}
	}
	return &b, nil
}
