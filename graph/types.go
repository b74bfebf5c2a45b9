package graph

import "context"

// NodeFunc is the compiled form of an agent's run operation: it receives
// the current state and returns the updated state.
type NodeFunc func(ctx context.Context, state map[string]any) (map[string]any, error)

// Node is a single step of the compiled graph.
type Node struct {
	Name        string
	Description string
	Run         NodeFunc
}

// EdgeKind distinguishes the routing rule attached to a node's outgoing edges.
type EdgeKind int

const (
	// EdgeDefault is an unconditional edge to a single target.
	EdgeDefault EdgeKind = iota
	// EdgeConditional routes on state["last_action_success"].
	EdgeConditional
	// EdgeFunc delegates routing to a named, externally resolved function.
	EdgeFunc
)

// RouteFunc decides the next node name given the state after a node ran
// and the edge's declared success/failure candidates. It returns graph.End
// (or "") when there is nothing further to do, and may return an arbitrary
// node name to override both candidates.
type RouteFunc func(ctx context.Context, state map[string]any, successTarget, failureTarget string) string

// Edge describes how a node's outgoing transition is resolved.
type Edge struct {
	Kind EdgeKind

	// Default target, used when Kind == EdgeDefault.
	Target string

	// Success/Failure targets, used when Kind == EdgeConditional or EdgeFunc.
	Success string
	Failure string

	// FuncName names the user routing function, used when Kind == EdgeFunc.
	// Resolution is delegated to a FuncResolver at run time, when the edge
	// is followed; Compile does not check that the name resolves.
	FuncName string
}

// FuncResolver resolves a "func:" edge's function name to a callable that
// decides between the success and failure targets (or returns an arbitrary
// override). The node-registry/assembler layer supplies this; the graph
// package never hardcodes how names map to callables.
type FuncResolver interface {
	Resolve(name string) (RouteFunc, bool)
}

// FuncResolverFunc adapts a plain function to FuncResolver.
type FuncResolverFunc func(name string) (RouteFunc, bool)

// Resolve implements FuncResolver.
func (f FuncResolverFunc) Resolve(name string) (RouteFunc, bool) { return f(name) }
