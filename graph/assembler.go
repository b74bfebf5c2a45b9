package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/agentmap/agentmap-core/bundle"
	"github.com/agentmap/agentmap-core/inject"
	"github.com/agentmap/agentmap-core/log"
	"github.com/agentmap/agentmap-core/noderegistry"
)

// AssemblyAgent is the minimal contract C12 needs from an already
// instantiated, already service-injected node agent (spec §4.15 step 4:
// the runner hands C12 "the set of agent instances").
type AssemblyAgent interface {
	Run(ctx context.Context, state map[string]any) (map[string]any, error)
}

// nodeRegistrySetter is implemented by orchestration-capable agents that
// want the per-graph node-registry metadata before compilation (spec
// §4.13 "orchestration-capable agents at runtime").
type nodeRegistrySetter interface {
	SetNodeRegistry(nodes map[string]noderegistry.Metadata)
}

// Assembler is the graph assembler (C12): given a bundle and its already
// constructed, already injected node agents, it builds the compiled state
// machine (spec §4.12).
type Assembler struct {
	resolver FuncResolver
	retry    *RetryPolicy
	log      log.Logger

	totalOrchestrators    int
	injectedOrchestrators int
}

// NewAssembler constructs an assembler. resolver resolves "func:"-prefixed
// edges (spec §4.12 step 3); it may be nil for bundles with no func edges.
func NewAssembler(resolver FuncResolver, logger log.Logger) *Assembler {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	return &Assembler{resolver: resolver, log: logger}
}

// SetRetryPolicy configures node-execution retries for every graph this
// assembler compiles.
func (a *Assembler) SetRetryPolicy(policy *RetryPolicy) { a.retry = policy }

// InjectionSummary implements noderegistry.InjectionReporter.
func (a *Assembler) InjectionSummary() (total, injected int) {
	return a.totalOrchestrators, a.injectedOrchestrators
}

// Assemble builds and compiles a StateRunnable from a bundle's nodes, the
// caller's already-instantiated agents (keyed by node name), and the
// node-registry metadata C13 prepared for this graph (spec §4.12 steps
// 1-5). Assembling the same bundle twice with equivalent agents produces
// behaviorally equivalent runnables (spec §4.12 invariant).
func (a *Assembler) Assemble(b *bundle.GraphBundle, agents map[string]AssemblyAgent, nodeRegistry map[string]noderegistry.Metadata) (*StateRunnable, error) {
	if len(b.Nodes) == 0 {
		return nil, fmt.Errorf("agentmap/graph: bundle %s has no nodes to assemble", b.GraphName)
	}

	names := make([]string, 0, len(b.Nodes))
	for name := range b.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	a.totalOrchestrators = 0
	a.injectedOrchestrators = 0

	g := NewStateGraph()
	if a.resolver != nil {
		g.SetFuncResolver(a.resolver)
	}
	if a.retry != nil {
		g.SetRetryPolicy(a.retry)
	}

	for _, name := range names {
		node := b.Nodes[name]
		nodeAgent, ok := agents[name]
		if !ok {
			return nil, fmt.Errorf("agentmap/graph: no agent instance for node %q", name)
		}

		if _, isOrchestrator := any(nodeAgent).(inject.OrchestrationCapable); isOrchestrator {
			a.totalOrchestrators++
			if setter, ok := any(nodeAgent).(nodeRegistrySetter); ok && nodeRegistry != nil {
				setter.SetNodeRegistry(nodeRegistry)
				a.injectedOrchestrators++
			}
		}

		g.AddNode(name, node.Description, nodeAgent.Run)
	}

	for _, name := range names {
		node := b.Nodes[name]
		switch {
		case node.Func != "":
			g.SetFuncEdge(name, node.Func, node.Success, node.Failure)
		case node.HasConditionalEdge():
			g.SetConditionalEdge(name, node.Success, node.Failure)
		case node.Default != "" && node.Default != bundle.End:
			g.SetDefaultEdge(name, node.Default)
		}
	}

	entry := b.EntryPoint
	if entry == "" || !g.HasNode(entry) {
		a.log.Warn("agentmap/graph: bundle %s entry point %q not found among assembled nodes, using %q", b.GraphName, entry, names[0])
		entry = names[0]
	}
	g.SetEntryPoint(entry)

	return g.Compile(b.GraphName)
}
