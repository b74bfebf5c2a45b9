package agent

import (
	"context"
	"fmt"

	"github.com/agentmap/agentmap-core/noderegistry"
)

// Orchestrator is the provider shape GraphAgent resolves through C11 (spec
// §4.15 "Subgraph execution"): running an inner bundle as a nested
// execution. The runner package supplies the concrete implementation,
// wrapping its own Run; this package never imports runner, so there is no
// cycle between "the thing that runs agents" and "the agents".
type Orchestrator interface {
	RunSubgraph(ctx context.Context, csvPath, graphName string, initialState map[string]any) (finalState map[string]any, success bool, err error)
}

// GraphAgent embeds an inner graph as a single node of an outer one (spec
// §4.15 "Subgraph execution"). Its context recognizes "csv_path" (the
// inner spec file) and "graph_name" (defaulting to the node's own name)
// plus an optional "output_key" output-mapping directive. Implements
// inject.OrchestrationCapable.
type GraphAgent struct {
	Base
	orchestrator Orchestrator
	nodeRegistry map[string]noderegistry.Metadata
	csvPath      string
	graphName    string
}

// NewGraphAgent is a registry.AgentConstructor.
func NewGraphAgent(name, prompt string, ctx map[string]any) (any, error) {
	a := &GraphAgent{Base: NewBase(name, prompt, ctx), graphName: name}
	if ctx != nil {
		if v, ok := ctx["csv_path"].(string); ok {
			a.csvPath = v
		}
		if v, ok := ctx["graph_name"].(string); ok && v != "" {
			a.graphName = v
		}
	}
	return a, nil
}

// ConfigureOrchestratorService implements inject.OrchestrationCapable.
func (a *GraphAgent) ConfigureOrchestratorService(service any) {
	orch, ok := service.(Orchestrator)
	if !ok {
		panic(fmt.Sprintf("agent %s: orchestrator provider %T does not implement agent.Orchestrator", a.name, service))
	}
	a.orchestrator = orch
}

// SetNodeRegistry is discovered by the graph assembler (C12) via
// reflection when it wires an orchestration-capable node (spec §4.13).
func (a *GraphAgent) SetNodeRegistry(nodes map[string]noderegistry.Metadata) {
	a.nodeRegistry = nodes
}

// Run implements Agent.
func (a *GraphAgent) Run(ctx context.Context, state map[string]any) (map[string]any, error) {
	if a.orchestrator == nil {
		return nil, fmt.Errorf("agent %s: no orchestrator service configured", a.name)
	}
	if a.csvPath == "" {
		return nil, fmt.Errorf("agent %s: graph-agent requires a csv_path in its context", a.name)
	}

	result, success, err := a.orchestrator.RunSubgraph(ctx, a.csvPath, a.graphName, cloneState(state))
	if a.tracker != nil {
		a.tracker.RecordSubExecution(a.name, a.graphName, success)
	}
	if err != nil {
		return nil, fmt.Errorf("agent %s: subgraph %s failed: %w", a.name, a.graphName, err)
	}

	var output any = result
	if key, ok := a.outputMappingKey(); ok {
		output = map[string]any{key: result}
	}
	return a.withOutput(state, output, success), nil
}

func (a *GraphAgent) outputMappingKey() (string, bool) {
	if a.context == nil {
		return "", false
	}
	key, ok := a.context["output_key"].(string)
	return key, ok && key != ""
}

func cloneState(state map[string]any) map[string]any {
	out := make(map[string]any, len(state))
	for k, v := range state {
		out[k] = v
	}
	return out
}
