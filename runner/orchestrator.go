package runner

import (
	"context"

	"github.com/agentmap/agentmap-core/bundle"
)

// OrchestratorAdapter implements agent.Orchestrator by resolving a bundle
// through the bundle service and running it with a Runner's own Run, so a
// GraphAgent node can embed another graph as a single
// node of its parent (spec §4.15 "Subgraph execution"). Registered as the
// OrchestrationCapable provider in the service registry at bootstrap, it
// never imports the agent package: GraphAgent resolves it purely through
// its own locally-declared Orchestrator interface, which this type
// satisfies structurally.
type OrchestratorAdapter struct {
	runner  *Runner
	bundles *bundle.Service
}

// NewOrchestratorAdapter wires an adapter over runner r and the bundle
// service used to resolve a nested csv_path/graph_name pair.
func NewOrchestratorAdapter(r *Runner, bundles *bundle.Service) *OrchestratorAdapter {
	return &OrchestratorAdapter{runner: r, bundles: bundles}
}

// RunSubgraph resolves csvPath/graphName's bundle and runs it as a nested
// execution marked IsSubgraph. Run does not branch on that flag: an
// interrupt the inner graph raises is persisted and reported as for any
// other run, and reaches the caller as a non-successful result.
func (o *OrchestratorAdapter) RunSubgraph(ctx context.Context, csvPath, graphName string, initialState map[string]any) (map[string]any, bool, error) {
	b, _, err := o.bundles.GetOrCreateBundle(csvPath, graphName)
	if err != nil {
		return nil, false, err
	}
	result, err := o.runner.Run(ctx, b, initialState, Options{IsSubgraph: true, CSVPath: csvPath})
	if err != nil {
		return nil, false, err
	}
	return result.FinalState, result.Success, nil
}
