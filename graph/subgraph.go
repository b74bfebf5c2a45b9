package graph

import (
	"context"
	"fmt"
)

// Subgraph wraps a compiled inner StateRunnable so it can be invoked as a
// single node of an outer graph (spec §4.15 "Subgraph execution"). The
// runner is responsible for obtaining the inner bundle/runnable from the
// bundle service and recording a sub-execution entry in the parent tracker;
// this type only owns the mechanical state hand-off.
type Subgraph struct {
	Name   string
	Inner  *StateRunnable
	// OutputKey, when non-empty, nests the inner graph's final state under
	// this key in the outer state instead of merging it at the top level
	// (the "optional output-mapping directive" of spec §4.15).
	OutputKey string
}

// AsNodeFunc adapts the subgraph into a NodeFunc usable with AddNode.
func (s *Subgraph) AsNodeFunc() NodeFunc {
	return func(ctx context.Context, state map[string]any) (map[string]any, error) {
		result, err := s.Inner.Invoke(ctx, cloneState(state))
		if err != nil {
			return nil, fmt.Errorf("subgraph %s execution failed: %w", s.Name, err)
		}

		if s.OutputKey == "" {
			return result, nil
		}

		out := cloneState(state)
		out[s.OutputKey] = result
		return out, nil
	}
}

func cloneState(state map[string]any) map[string]any {
	out := make(map[string]any, len(state))
	for k, v := range state {
		out[k] = v
	}
	return out
}
