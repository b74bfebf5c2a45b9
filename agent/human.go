package agent

import (
	"context"

	"github.com/agentmap/agentmap-core/graph"
	"github.com/agentmap/agentmap-core/interaction"
	"github.com/google/uuid"
)

// HumanAgent raises a node interruption carrying an interaction.Request,
// exercising the round-trip the runner delegates to C16 (spec §4.16,
// testable property #12, scenario E5). Its context recognizes
// "interaction_type" (one of interaction.TextInput/Choice/Approval/Custom,
// default TextInput), "options" ([]string, for Choice), and
// "timeout_seconds".
type HumanAgent struct {
	Base
	interactionType interaction.Type
	options         []string
	timeoutSeconds  int
}

// NewHumanAgent is a registry.AgentConstructor.
func NewHumanAgent(name, prompt string, ctx map[string]any) (any, error) {
	a := &HumanAgent{Base: NewBase(name, prompt, ctx), interactionType: interaction.TextInput}
	if ctx != nil {
		if v, ok := ctx["interaction_type"].(string); ok && v != "" {
			a.interactionType = interaction.Type(v)
		}
		a.options = stringSlice(ctx["options"])
		if v, ok := ctx["timeout_seconds"].(int); ok {
			a.timeoutSeconds = v
		} else if v, ok := ctx["timeout_seconds"].(float64); ok {
			a.timeoutSeconds = int(v)
		}
	}
	return a, nil
}

// Run implements Agent: it interrupts unless resumed. A resumed invocation (one
// where the caller has merged the human's response into state before
// re-running from this node) is recognized by the presence of the agent's
// output field in state already, in which case Run completes normally
// instead of interrupting again.
func (a *HumanAgent) Run(ctx context.Context, state map[string]any) (map[string]any, error) {
	if response, ok := state[a.outputKey()]; ok {
		return a.withOutput(state, response, true), nil
	}

	req := &interaction.Request{
		ID:             uuid.NewString(),
		NodeName:       a.name,
		Type:           a.interactionType,
		Prompt:         a.prompt,
		Context:        a.context,
		Options:        a.options,
		TimeoutSeconds: a.timeoutSeconds,
	}
	return nil, &graph.NodeInterrupt{Node: a.name, Request: req}
}
