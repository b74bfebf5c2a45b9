package agent

import "context"

// EchoAgent writes every declared input field, as a map, to its output
// field. Unlike DefaultAgent it never collapses to a single value, which
// makes it useful for nodes that fan multiple upstream fields into one
// downstream record.
type EchoAgent struct {
	Base
}

// NewEchoAgent is a registry.AgentConstructor.
func NewEchoAgent(name, prompt string, ctx map[string]any) (any, error) {
	return &EchoAgent{Base: NewBase(name, prompt, ctx)}, nil
}

// Run implements Agent.
func (a *EchoAgent) Run(ctx context.Context, state map[string]any) (map[string]any, error) {
	return a.withOutput(state, a.allInputs(state), true), nil
}
