package agent

import (
	"context"
	"fmt"
)

// Completer is the provider shape LLMAgent resolves through C11. The
// capability interfaces in inject are deliberately provider-agnostic
// (provider any); this is the minimal contract this package assumes once
// it has one in hand, kept local so agent never imports a concrete LLM SDK
// (spec §1 "concrete LLM ... backend clients" are explicitly out of scope).
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// LLMAgent sends its prompt as declared to the injected LLM provider (input
// fields are not interpolated into it) and writes the completion to its
// output field.
// Implements inject.LLMCapable.
type LLMAgent struct {
	Base
	llm Completer
}

// NewLLMAgent is a registry.AgentConstructor.
func NewLLMAgent(name, prompt string, ctx map[string]any) (any, error) {
	return &LLMAgent{Base: NewBase(name, prompt, ctx)}, nil
}

// ConfigureLLMService implements inject.LLMCapable.
func (a *LLMAgent) ConfigureLLMService(service any) {
	completer, ok := service.(Completer)
	if !ok {
		panic(fmt.Sprintf("agent %s: LLM provider %T does not implement agent.Completer", a.name, service))
	}
	a.llm = completer
}

// Run implements Agent.
func (a *LLMAgent) Run(ctx context.Context, state map[string]any) (map[string]any, error) {
	if a.llm == nil {
		return nil, fmt.Errorf("agent %s: no LLM service configured", a.name)
	}
	result, err := a.llm.Complete(ctx, a.prompt)
	if err != nil {
		return nil, fmt.Errorf("agent %s: llm completion failed: %w", a.name, err)
	}
	return a.withOutput(state, result, true), nil
}
