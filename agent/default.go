package agent

import "context"

// DefaultAgent is a passthrough: it writes its first input field (or its
// prompt, when none of its input fields is set in state) to its output field and always reports
// success. It is the constructor behind registry.DefaultAgentType.
type DefaultAgent struct {
	Base
}

// NewDefaultAgent is a registry.AgentConstructor.
func NewDefaultAgent(name, prompt string, ctx map[string]any) (any, error) {
	return &DefaultAgent{Base: NewBase(name, prompt, ctx)}, nil
}

// Run implements Agent.
func (a *DefaultAgent) Run(ctx context.Context, state map[string]any) (map[string]any, error) {
	if _, v := a.firstInput(state); v != nil {
		return a.withOutput(state, v, true), nil
	}
	return a.withOutput(state, a.prompt, true), nil
}
