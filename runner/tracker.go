package runner

import (
	"context"
	"sync"
	"time"

	"github.com/agentmap/agentmap-core/policy"
)

// subExecution is one nested graph-agent invocation recorded against the
// parent run (spec §4.15 "Subgraph execution ... records a sub-execution
// entry").
type subExecution struct {
	NodeName  string
	GraphName string
	Success   bool
}

// Tracker is a Runner's per-invocation bookkeeping. It satisfies
// graph.NodeObserver (so InvokeWithObserver can drive it) and the
// RecordSubExecution shape agent.Tracker expects (so a GraphAgent can
// report into it), without this package or agent importing one another.
type Tracker struct {
	mu    sync.Mutex
	nodes []policy.NodeOutcome
	subs  []subExecution
	start time.Time
	end   time.Time
}

func newTracker() *Tracker {
	return &Tracker{start: time.Now()}
}

// BeforeNode implements graph.NodeObserver.
func (t *Tracker) BeforeNode(ctx context.Context, name string, state map[string]any) {}

// AfterNode implements graph.NodeObserver, recording the node's outcome
// (spec §4.14's per-node outcome record that policy evaluation consumes).
// An agent that completed without error but wrote last_action_success=false
// (a branch taking its failure path) counts as a failed outcome.
func (t *Tracker) AfterNode(ctx context.Context, name string, state map[string]any, err error, duration time.Duration) {
	success := err == nil
	if flag, ok := state["last_action_success"].(bool); success && ok {
		success = flag
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nodes = append(t.nodes, policy.NodeOutcome{Name: name, Success: success})
}

// RecordSubExecution is called by a GraphAgent after its subgraph finishes
// (spec §4.15 "Subgraph execution"). It satisfies agent.Tracker structurally.
func (t *Tracker) RecordSubExecution(nodeName, graphName string, success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs = append(t.subs, subExecution{NodeName: nodeName, GraphName: graphName, Success: success})
}

func (t *Tracker) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.end = time.Now()
}

func (t *Tracker) summary() policy.ExecutionSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	nodes := make([]policy.NodeOutcome, len(t.nodes))
	copy(nodes, t.nodes)
	return policy.ExecutionSummary{Nodes: nodes}
}

func (t *Tracker) duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.end.IsZero() {
		return time.Since(t.start)
	}
	return t.end.Sub(t.start)
}
