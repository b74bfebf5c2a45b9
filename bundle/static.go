package bundle

import (
	"github.com/agentmap/agentmap-core/log"
	"github.com/agentmap/agentmap-core/registry"
)

// StaticAnalyzer is the declaration-only fast path for bundle creation: it
// derives a GraphBundle purely from registration metadata — the agent-type
// registry's capability catalog and class references, plus the declaration
// registry — without ever constructing an agent instance. That makes it
// considerably cheaper than Analyzer's probe-based dynamic path and immune
// to constructor failures, at the cost of trusting that the registered
// capability catalog matches what the constructors would actually produce.
type StaticAnalyzer struct {
	core *Analyzer
}

// NewStaticAnalyzer constructs a static analyzer over the same registries
// the dynamic Analyzer consults.
func NewStaticAnalyzer(agentTypes *registry.AgentTypeRegistry, declarations *registry.DeclarationRegistry, logger log.Logger) *StaticAnalyzer {
	return &StaticAnalyzer{core: NewAnalyzer(agentTypes, declarations, logger)}
}

// CreateStaticBundle derives a bundle for one graph from declarations
// alone. The result has the same shape and field semantics as Analyzer's;
// when every agent type's registered capability catalog is accurate, the
// two paths produce identical bundles.
func (s *StaticAnalyzer) CreateStaticBundle(graphName string, nodes []Node) (*GraphBundle, error) {
	return s.core.analyze(graphName, nodes, s.core.agentTypes.Capabilities)
}
