package bundle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/agentmap/agentmap-core/inject"
	"github.com/agentmap/agentmap-core/log"
	"github.com/agentmap/agentmap-core/registry"
)

// SchemaVersion and FrameworkVersion are stamped into every bundle's
// ValidationMetadata (spec §4.8 "validation metadata").
const (
	SchemaVersion    = "1"
	FrameworkVersion = "1"
)

// maxDepthCap bounds the max_depth structure metric (spec §4.8).
const maxDepthCap = 10

// Analyzer is the metadata analyzer (C8): given a graph's nodes, it derives
// every GraphBundle field other than persistence metadata.
type Analyzer struct {
	agentTypes   *registry.AgentTypeRegistry
	declarations *registry.DeclarationRegistry
	log          log.Logger
}

// NewAnalyzer constructs an Analyzer backed by the agent-type registry (C3)
// and declaration registry (C5) it consults.
func NewAnalyzer(agentTypes *registry.AgentTypeRegistry, declarations *registry.DeclarationRegistry, logger log.Logger) *Analyzer {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	return &Analyzer{agentTypes: agentTypes, declarations: declarations, log: logger}
}

// capabilityFn yields the capability-interface names an agent type
// implements. Analyze probes constructed instances (the dynamic path);
// StaticAnalyzer supplies registration metadata instead.
type capabilityFn func(agentType string) []string

// Analyze derives the bundle fields for one graph. The returned GraphBundle
// has CSVHash, VersionHash, BundleFormat, Format, and CreatedAt left zero;
// the bundle service (C9) fills those in.
func (a *Analyzer) Analyze(graphName string, nodes []Node) (*GraphBundle, error) {
	return a.analyze(graphName, nodes, a.dynamicCapabilities)
}

// dynamicCapabilities constructs a probe instance of the agent type and
// inspects which capability interfaces it actually implements (spec §4.8
// "asks C3 for each type's class, inspects which capability interfaces the
// class implements"). Types whose constructor cannot run fall back to the
// registration-time capability catalog.
func (a *Analyzer) dynamicCapabilities(agentType string) []string {
	instance, err := a.agentTypes.New(agentType, "capability-probe", "", nil)
	if err != nil {
		return a.agentTypes.Capabilities(agentType)
	}
	if caps := inject.CapabilityNames(instance); len(caps) > 0 {
		return caps
	}
	return a.agentTypes.Capabilities(agentType)
}

func (a *Analyzer) analyze(graphName string, nodes []Node, capabilities capabilityFn) (*GraphBundle, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("bundle: graph %q has no nodes", graphName)
	}

	entryPoint := a.detectEntryPoint(graphName, nodes)

	nodeMap := make(map[string]Node, len(nodes))
	agentTypeOrder := []string{}
	seenAgentType := map[string]bool{}
	for _, n := range nodes {
		nodeMap[n.Name] = n
		if !seenAgentType[n.AgentType] {
			seenAgentType[n.AgentType] = true
			agentTypeOrder = append(agentTypeOrder, n.AgentType)
		}
	}
	sort.Strings(agentTypeOrder)

	requiredServices := a.requiredServices(agentTypeOrder, capabilities)
	closure := a.declarations.ResolveServiceDependencies(requiredServices)
	serviceSet := make(map[string]bool, len(closure))
	for name := range closure {
		serviceSet[name] = true
	}
	loadOrder, err := a.declarations.CalculateLoadOrder(serviceSet)
	if err != nil {
		return nil, fmt.Errorf("bundle: graph %q: %w", graphName, err)
	}

	builtin, custom := a.agentTypes.Classify(agentTypeOrder)
	mappings, missing := a.agentTypes.AgentMappings(agentTypeOrder)
	protocolMappings := a.declarations.GetProtocolImplementations()

	structure := a.structureMetrics(nodes, nodeMap, entryPoint)
	validation := ValidationMetadata{
		NodeHashes:           nodeHashes(nodes),
		SchemaVersion:        SchemaVersion,
		FrameworkVersion:     FrameworkVersion,
		CompatibilityVersion: SchemaVersion,
		ValidationRules:      defaultValidationRules(),
	}

	return &GraphBundle{
		GraphName:           graphName,
		EntryPoint:          entryPoint,
		Nodes:               nodeMap,
		RequiredAgents:      agentTypeOrder,
		RequiredServices:    sortedKeys(serviceSet),
		ServiceLoadOrder:    loadOrder,
		AgentMappings:       mappings,
		BuiltinAgents:       sortStrings(builtin),
		CustomAgents:        sortStrings(custom),
		FunctionMappings:    functionMappings(nodes),
		ProtocolMappings:    protocolMappings,
		GraphStructure:      structure,
		ValidationMetadata:  validation,
		MissingDeclarations: sortStrings(missing),
	}, nil
}

// defaultValidationRules names the integrity checks a loaded bundle is
// expected to satisfy; readers can verify them without re-parsing the spec.
func defaultValidationRules() []string {
	return []string{"unique_node_names", "valid_edge_targets", "required_fields_present"}
}

// functionMappings records, for each routing function a func edge names,
// the first node (in declaration order) that routes through it, so a
// failed function resolution at assembly time can point at its source.
func functionMappings(nodes []Node) map[string]string {
	out := map[string]string{}
	for _, n := range nodes {
		if n.Func == "" {
			continue
		}
		if _, seen := out[n.Func]; !seen {
			out[n.Func] = n.Name
		}
	}
	return out
}

func (a *Analyzer) detectEntryPoint(graphName string, nodes []Node) string {
	referenced := map[string]bool{}
	for _, n := range nodes {
		for _, target := range []string{n.Default, n.Success, n.Failure} {
			if target != "" && target != End {
				referenced[target] = true
			}
		}
	}

	var candidates []string
	for _, n := range nodes {
		if !referenced[n.Name] {
			candidates = append(candidates, n.Name)
		}
	}

	switch len(candidates) {
	case 0:
		a.log.Warn("bundle: graph %q has no unreferenced node (cycle through every node); using first declared node %q as entry point", graphName, nodes[0].Name)
		return nodes[0].Name
	case 1:
		return candidates[0]
	default:
		a.log.Warn("bundle: graph %q has %d candidate entry points; using first declared, %q", graphName, len(candidates), candidates[0])
		return candidates[0]
	}
}

// requiredServices maps each agent type's capability interfaces to
// provider service names via C5's protocol table, then drops anything C5
// doesn't actually recognize as a declared service (spec §4.8 "requirement
// analysis" / "service filtering").
func (a *Analyzer) requiredServices(agentTypes []string, capabilities capabilityFn) map[string]bool {
	protocolMappings := a.declarations.GetProtocolImplementations()

	candidates := map[string]bool{}
	for _, agentType := range agentTypes {
		for _, capability := range capabilities(agentType) {
			if serviceName, ok := protocolMappings[capability]; ok {
				candidates[serviceName] = true
			}
		}
	}

	accepted := map[string]bool{}
	for name := range candidates {
		if _, ok := a.declarations.GetServiceDeclaration(name); ok {
			accepted[name] = true
		} else {
			a.log.Debug("bundle: dropping %q, not a declared service", name)
		}
	}
	return accepted
}

func (a *Analyzer) structureMetrics(nodes []Node, nodeMap map[string]Node, entryPoint string) GraphStructure {
	edgeCount := 0
	hasConditional := false
	for _, n := range nodes {
		edgeCount += n.EdgeCount()
		if n.HasConditionalEdge() {
			hasConditional = true
		}
	}

	return GraphStructure{
		NodeCount:             len(nodes),
		EdgeCount:             edgeCount,
		HasConditionalRouting: hasConditional,
		MaxDepth:              boundedDepth(nodeMap, entryPoint),
		IsDAG:                 isAcyclic(nodeMap),
		ParallelOpportunities: []string{},
	}
}

// boundedDepth walks default/success/failure edges (func-routed targets
// aren't known until a routing function runs, so they don't contribute to
// this static metric) from the entry point, capped at maxDepthCap.
func boundedDepth(nodeMap map[string]Node, entryPoint string) int {
	visited := map[string]bool{}
	var walk func(name string, depth int) int
	walk = func(name string, depth int) int {
		if depth >= maxDepthCap || visited[name] {
			return depth
		}
		visited[name] = true
		n, ok := nodeMap[name]
		if !ok {
			return depth
		}
		best := depth
		for _, target := range []string{n.Default, n.Success, n.Failure} {
			if target == "" || target == End {
				continue
			}
			if d := walk(target, depth+1); d > best {
				best = d
			}
		}
		return best
	}
	return walk(entryPoint, 0)
}

// isAcyclic is conservative: it reports true unless DFS finds a back-edge
// among default/success/failure edges (spec §4.8 "is_dag" definition).
func isAcyclic(nodeMap map[string]Node) bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(nodeMap))

	var visit func(name string) bool
	visit = func(name string) bool {
		switch color[name] {
		case gray:
			return false
		case black:
			return true
		}
		color[name] = gray
		n, ok := nodeMap[name]
		if ok {
			for _, target := range []string{n.Default, n.Success, n.Failure} {
				if target == "" || target == End {
					continue
				}
				if _, exists := nodeMap[target]; !exists {
					continue
				}
				if !visit(target) {
					return false
				}
			}
		}
		color[name] = black
		return true
	}

	for name := range nodeMap {
		if color[name] == white {
			if !visit(name) {
				return false
			}
		}
	}
	return true
}

func nodeHashes(nodes []Node) map[string]string {
	out := make(map[string]string, len(nodes))
	for _, n := range nodes {
		h := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d", n.Name, n.AgentType, n.EdgeCount())))
		out[n.Name] = hex.EncodeToString(h[:])[:16]
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortStrings(items []string) []string {
	out := append([]string(nil), items...)
	sort.Strings(out)
	return out
}
