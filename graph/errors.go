package graph

import (
	"errors"
	"fmt"
)

// End is the sentinel target name meaning "no further node runs".
const End = "END"

var (
	// ErrEntryPointNotSet is returned by Compile when no entry point was configured.
	ErrEntryPointNotSet = errors.New("agentmap/graph: entry point not set")

	// ErrNodeNotFound is returned when a named node does not exist in the graph.
	ErrNodeNotFound = errors.New("agentmap/graph: node not found")

	// ErrNoOutgoingEdge names a node with no edge to follow. StateRunnable
	// does not return it: a node with no outgoing edge ends the run.
	ErrNoOutgoingEdge = errors.New("agentmap/graph: no outgoing edge for node")

	// ErrEmptyGraph is returned by Compile when the graph has no nodes.
	ErrEmptyGraph = errors.New("agentmap/graph: graph has no nodes")
)

// NodeInterrupt is the error an agent's Run returns to request a paused,
// resumable interaction (spec §4.16). It carries no persistence details of
// its own; the runner attaches thread/bundle context when it builds the
// Interrupted value that reaches the interaction handler.
type NodeInterrupt struct {
	Node    string
	Request any // *interaction.Request, kept as `any` to avoid an import cycle
}

func (e *NodeInterrupt) Error() string {
	return fmt.Sprintf("agentmap/graph: interrupt at node %s", e.Node)
}

// Interrupted is the terminal value InvokeWithObserver returns when a node
// raised a NodeInterrupt. It is a data-carrying control-flow marker, not an
// execution failure: callers should branch on errors.As with a *Interrupted
// target rather than treat it as an execution error.
type Interrupted struct {
	Node    string
	State   map[string]any
	Request any
}

func (e *Interrupted) Error() string {
	return fmt.Sprintf("agentmap/graph: execution interrupted at node %s", e.Node)
}

// Unwrap returns nil: Interrupted wraps no underlying error; the raising
// NodeInterrupt's request is carried in Request.
func (e *Interrupted) Unwrap() error { return nil }
