package agent

import (
	"context"
	"fmt"
)

// PromptResolver is the provider shape PromptAgent resolves through C11
// (spec §4.11 "prompt manager").
type PromptResolver interface {
	Resolve(name string, vars map[string]any) (string, error)
}

// PromptAgent resolves its prompt field as a named template against its
// input fields, through the injected prompt manager, and writes the
// rendered text to its output field. Implements inject.PromptCapable.
type PromptAgent struct {
	Base
	prompts PromptResolver
}

// NewPromptAgent is a registry.AgentConstructor.
func NewPromptAgent(name, prompt string, ctx map[string]any) (any, error) {
	return &PromptAgent{Base: NewBase(name, prompt, ctx)}, nil
}

// ConfigurePromptService implements inject.PromptCapable.
func (a *PromptAgent) ConfigurePromptService(service any) {
	resolver, ok := service.(PromptResolver)
	if !ok {
		panic(fmt.Sprintf("agent %s: prompt provider %T does not implement agent.PromptResolver", a.name, service))
	}
	a.prompts = resolver
}

// Run implements Agent.
func (a *PromptAgent) Run(ctx context.Context, state map[string]any) (map[string]any, error) {
	if a.prompts == nil {
		return nil, fmt.Errorf("agent %s: no prompt service configured", a.name)
	}
	rendered, err := a.prompts.Resolve(a.prompt, a.allInputs(state))
	if err != nil {
		return nil, fmt.Errorf("agent %s: prompt resolution failed: %w", a.name, err)
	}
	return a.withOutput(state, rendered, true), nil
}
