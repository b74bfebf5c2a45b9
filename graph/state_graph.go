package graph

import (
	"fmt"
)

// StateGraph is the mutable builder for a compiled state machine (spec C12
// "graph assembler"). Nodes and their routing are added incrementally and
// then fixed by Compile, which returns an immutable StateRunnable.
type StateGraph struct {
	nodes        map[string]Node
	edges        map[string]Edge
	entryPoint   string
	retryPolicy  *RetryPolicy
	funcResolver FuncResolver
}

// NewStateGraph creates an empty graph builder.
func NewStateGraph() *StateGraph {
	return &StateGraph{
		nodes: make(map[string]Node),
		edges: make(map[string]Edge),
	}
}

// AddNode registers a node's compiled run function.
func (g *StateGraph) AddNode(name, description string, fn NodeFunc) {
	g.nodes[name] = Node{Name: name, Description: description, Run: fn}
}

// HasNode reports whether a node with the given name was added.
func (g *StateGraph) HasNode(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// SetDefaultEdge wires an unconditional transition from -> to.
func (g *StateGraph) SetDefaultEdge(from, to string) {
	g.edges[from] = Edge{Kind: EdgeDefault, Target: to}
}

// SetConditionalEdge wires success/failure routing keyed on
// state["last_action_success"].
func (g *StateGraph) SetConditionalEdge(from, success, failure string) {
	g.edges[from] = Edge{Kind: EdgeConditional, Success: success, Failure: failure}
}

// SetFuncEdge wires routing delegated to a named external function, with
// success/failure as the candidate targets it chooses between.
func (g *StateGraph) SetFuncEdge(from, funcName, success, failure string) {
	g.edges[from] = Edge{Kind: EdgeFunc, FuncName: funcName, Success: success, Failure: failure}
}

// SetEntryPoint names the node execution starts from.
func (g *StateGraph) SetEntryPoint(name string) { g.entryPoint = name }

// EntryPoint returns the configured entry point, possibly empty.
func (g *StateGraph) EntryPoint() string { return g.entryPoint }

// SetRetryPolicy configures node-execution retry behavior.
func (g *StateGraph) SetRetryPolicy(policy *RetryPolicy) { g.retryPolicy = policy }

// SetFuncResolver configures the resolver used for "func:" edges.
func (g *StateGraph) SetFuncResolver(r FuncResolver) { g.funcResolver = r }

// NodeNames returns every node name in the graph, for diagnostics/validation.
func (g *StateGraph) NodeNames() []string {
	names := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		names = append(names, n)
	}
	return names
}

// Compile validates the graph and returns an executable StateRunnable.
// Compiling the same graph twice yields behaviorally equivalent machines
// (spec §4.12 invariant): Compile performs no mutation of g.
func (g *StateGraph) Compile(graphName string) (*StateRunnable, error) {
	if len(g.nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyGraph, graphName)
	}
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	if !g.HasNode(g.entryPoint) {
		return nil, fmt.Errorf("%w: entry point %q", ErrNodeNotFound, g.entryPoint)
	}
	for from, e := range g.edges {
		if !g.HasNode(from) {
			return nil, fmt.Errorf("%w: edge source %q", ErrNodeNotFound, from)
		}
		targets := []string{}
		switch e.Kind {
		case EdgeDefault:
			targets = append(targets, e.Target)
		case EdgeConditional, EdgeFunc:
			targets = append(targets, e.Success, e.Failure)
		}
		for _, t := range targets {
			if t == "" || t == End {
				continue
			}
			if !g.HasNode(t) {
				return nil, fmt.Errorf("%w: edge target %q from %q", ErrNodeNotFound, t, from)
			}
		}
	}

	return &StateRunnable{graph: g}, nil
}
