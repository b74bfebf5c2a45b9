package graph

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// StateRunnable is the compiled, immutable form of a StateGraph.
type StateRunnable struct {
	graph *StateGraph
}

// NodeObserver lets a caller (typically the runner's per-node tracker)
// watch execution without the graph package depending on how tracking is
// implemented.
type NodeObserver interface {
	BeforeNode(ctx context.Context, name string, state map[string]any)
	AfterNode(ctx context.Context, name string, state map[string]any, err error, duration time.Duration)
}

// Invoke runs the compiled graph from its entry point with no observer.
func (r *StateRunnable) Invoke(ctx context.Context, initialState map[string]any) (map[string]any, error) {
	return r.InvokeWithObserver(ctx, initialState, nil)
}

// InvokeWithObserver runs the compiled graph, calling observer hooks around
// each node execution. It returns (finalState, nil) on normal completion,
// (stateAtInterrupt, *Interrupted) when a node raises NodeInterrupt, and
// (nil, err) for any other execution error.
func (r *StateRunnable) InvokeWithObserver(ctx context.Context, initialState map[string]any, observer NodeObserver) (map[string]any, error) {
	state := initialState
	if state == nil {
		state = make(map[string]any)
	}
	current := r.graph.entryPoint

	for current != "" && current != End {
		node, ok := r.graph.nodes[current]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, current)
		}

		if observer != nil {
			observer.BeforeNode(ctx, current, state)
		}

		start := time.Now()
		newState, err := r.executeWithRetry(ctx, node, state)
		duration := time.Since(start)

		if observer != nil {
			observer.AfterNode(ctx, current, newState, err, duration)
		}

		if err != nil {
			var interrupt *NodeInterrupt
			if errors.As(err, &interrupt) {
				interrupt.Node = current
				return state, &Interrupted{Node: current, State: state, Request: interrupt.Request}
			}
			return nil, fmt.Errorf("error in node %s: %w", current, err)
		}
		if newState != nil {
			state = newState
		}

		next, err := r.nextNode(ctx, current, state)
		if err != nil {
			return nil, err
		}
		current = next
	}

	return state, nil
}

// executeWithRetry runs a node's Run, retrying per the graph's RetryPolicy.
func (r *StateRunnable) executeWithRetry(ctx context.Context, node Node, state map[string]any) (map[string]any, error) {
	attempts := 1
	var policy *RetryPolicy
	if r.graph.retryPolicy != nil {
		policy = r.graph.retryPolicy
		attempts = policy.MaxRetries + 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := node.Run(ctx, state)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var interrupt *NodeInterrupt
		if errors.As(err, &interrupt) {
			return nil, err
		}

		if policy == nil || attempt == attempts-1 || !policy.retryable(err.Error()) {
			break
		}

		select {
		case <-time.After(policy.delay(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// nextNode resolves the node to run after `from`, given the state it left
// behind. An absent edge entry means `from` is a terminal node.
func (r *StateRunnable) nextNode(ctx context.Context, from string, state map[string]any) (string, error) {
	edge, ok := r.graph.edges[from]
	if !ok {
		return End, nil
	}

	switch edge.Kind {
	case EdgeDefault:
		if edge.Target == "" {
			return End, nil
		}
		return edge.Target, nil

	case EdgeConditional:
		ok, isBool := state["last_action_success"].(bool)
		if !isBool {
			return End, nil
		}
		if ok {
			if edge.Success == "" {
				return End, nil
			}
			return edge.Success, nil
		}
		if edge.Failure == "" {
			return End, nil
		}
		return edge.Failure, nil

	case EdgeFunc:
		if r.graph.funcResolver == nil {
			return "", fmt.Errorf("agentmap/graph: func edge %q from %s has no resolver", edge.FuncName, from)
		}
		fn, found := r.graph.funcResolver.Resolve(edge.FuncName)
		if !found {
			return "", fmt.Errorf("agentmap/graph: func %q not found for edge from %s", edge.FuncName, from)
		}
		target := fn(ctx, state, edge.Success, edge.Failure)
		if target == "" {
			return End, nil
		}
		return target, nil

	default:
		return End, nil
	}
}
