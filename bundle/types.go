package bundle

import "time"

// End is the sentinel used by Node.Default/.Success/.Failure to mean "stop
// execution", mirroring graph.End so bundle code never has to import graph.
const End = "END"

// Node is a single row of the parsed tabular spec (spec §3 "Node").
type Node struct {
	Name        string
	AgentType   string
	Inputs      []string
	Output      string
	Prompt      string
	Description string
	Context     map[string]any

	// Default is the unconditional next node ("" or End means no edge).
	Default string
	// Success/Failure are the conditional routing targets, selected by
	// state["last_action_success"] at run time.
	Success string
	Failure string
	// Func, when non-empty, names a registered routing function consulted
	// in combination with Success/Failure (spec §4.12 step 3, §6 "func:"
	// prefix).
	Func string
}

// HasConditionalEdge reports whether n routes via success/failure rather
// than (or in addition to) a plain default edge.
func (n Node) HasConditionalEdge() bool {
	return n.Success != "" || n.Failure != ""
}

// EdgeCount is the number of edge entries declared on the node, matching
// spec §4.8's "sum of edge entries per node" structure metric.
func (n Node) EdgeCount() int {
	count := 0
	if n.Default != "" {
		count++
	}
	if n.Success != "" {
		count++
	}
	if n.Failure != "" {
		count++
	}
	return count
}

// GraphSpec is the output of C7: an ordered mapping of graph name to its
// node sequence (spec §3 "GraphSpec"). Order is preserved separately from
// the map because Go maps have no iteration order, and C9 needs
// declaration order to pick "the first graph" deterministically.
type GraphSpec struct {
	Order  []string
	Graphs map[string][]Node
}

// NodesFor returns the declared node sequence for a graph name, or nil.
func (g *GraphSpec) NodesFor(graphName string) []Node {
	return g.Graphs[graphName]
}

// SoleGraph returns the only graph name when exactly one is declared.
func (g *GraphSpec) SoleGraph() (string, bool) {
	if len(g.Order) == 1 {
		return g.Order[0], true
	}
	return "", false
}

// FirstGraph returns the first graph in declaration order, or "" if empty.
func (g *GraphSpec) FirstGraph() string {
	if len(g.Order) == 0 {
		return ""
	}
	return g.Order[0]
}

// GraphStructure holds the structural metrics computed by C8.
type GraphStructure struct {
	NodeCount              int      `json:"node_count"`
	EdgeCount              int      `json:"edge_count"`
	HasConditionalRouting  bool     `json:"has_conditional_routing"`
	MaxDepth               int      `json:"max_depth"`
	IsDAG                  bool     `json:"is_dag"`
	ParallelOpportunities  []string `json:"parallel_opportunities"`
}

// ValidationMetadata holds the per-node hashes and versions C8 attaches to
// a bundle so a reader can detect drift without re-parsing the spec.
// ValidationRules names the integrity checks the bundle is expected to
// satisfy (unique node names, valid edge targets, required fields).
type ValidationMetadata struct {
	NodeHashes         map[string]string `json:"node_hashes"`
	SchemaVersion      string            `json:"schema_version"`
	FrameworkVersion   string            `json:"framework_version"`
	CompatibilityVersion string          `json:"compatibility_version"`
	ValidationRules    []string          `json:"validation_rules"`
}

// GraphBundle is the cached, resolved artifact produced by C9 (spec §3
// "GraphBundle"). Once built it is read-only.
type GraphBundle struct {
	GraphName  string          `json:"graph_name"`
	EntryPoint string          `json:"entry_point"`
	Nodes      map[string]Node `json:"nodes"`

	RequiredAgents   []string `json:"required_agents"`
	RequiredServices []string `json:"required_services"`
	ServiceLoadOrder []string `json:"service_load_order"`

	AgentMappings map[string]string `json:"agent_mappings"`
	BuiltinAgents []string          `json:"builtin_agents"`
	CustomAgents  []string          `json:"custom_agents"`

	// FunctionMappings records each func-edge routing function and the
	// first node that routes through it.
	FunctionMappings map[string]string `json:"function_mappings"`

	ProtocolMappings map[string]string `json:"protocol_mappings"`

	GraphStructure     GraphStructure     `json:"graph_structure"`
	ValidationMetadata ValidationMetadata `json:"validation_metadata"`

	MissingDeclarations []string `json:"missing_declarations"`

	CSVHash      string    `json:"csv_hash"`
	VersionHash  string    `json:"version_hash"`
	BundleFormat string    `json:"bundle_format"`
	Format       string    `json:"format"`
	CreatedAt    time.Time `json:"created_at"`
}
