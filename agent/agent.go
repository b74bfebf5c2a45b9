// Package agent implements the built-in agent types registered into C3
// (registry.AgentTypeRegistry) at bootstrap. Each type embeds Base, which
// carries the (name, prompt, context) triple every C3 constructor receives
// (spec §4.15 step 2) and the logger/tracker the runner attaches afterward.
//
// Agents satisfy the capability interfaces they need (inject.LLMCapable,
// inject.StorageCapable, ...) by implementing their configuration methods;
// the package itself imports neither inject nor runner, so there is no
// import cycle between "the thing that runs agents" and "the agents".
package agent

import (
	"context"

	"github.com/agentmap/agentmap-core/log"
)

// Agent is the run contract every constructed node instance satisfies
// (spec GLOSSARY "Agent": "implementing run(state) -> state' plus optional
// capability interfaces").
type Agent interface {
	Name() string
	Run(ctx context.Context, state map[string]any) (map[string]any, error)
}

// Tracker lets an orchestrating agent record a sub-execution against its
// parent run's tracker (spec §4.15 "Subgraph execution"). The runner's
// tracker type satisfies this structurally; this package never imports runner.
type Tracker interface {
	RecordSubExecution(nodeName, graphName string, success bool)
}

// Base is embedded by every built-in agent. It is not itself registered
// into C3.
type Base struct {
	name        string
	prompt      string
	context     map[string]any
	inputFields []string
	outputField string
	description string
	log         log.Logger
	tracker     Tracker
}

// NewBase builds the shared (name, prompt, context) state every C3
// constructor receives (spec §4.15 step 2's context shape: input_fields,
// output_field, description, instance_placeholder).
func NewBase(name, prompt string, ctx map[string]any) Base {
	b := Base{name: name, prompt: prompt, context: ctx, log: &log.NoOpLogger{}}
	if ctx == nil {
		return b
	}
	b.inputFields = stringSlice(ctx["input_fields"])
	if v, ok := ctx["output_field"].(string); ok {
		b.outputField = v
	}
	if v, ok := ctx["description"].(string); ok {
		b.description = v
	}
	return b
}

func stringSlice(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Name implements Agent.
func (b *Base) Name() string { return b.name }

// SetLogger is discovered by the runner via reflection after construction
// (spec §4.15 step 2 "attach a logger").
func (b *Base) SetLogger(l log.Logger) {
	if l != nil {
		b.log = l
	}
}

// SetTracker is discovered by the runner via reflection after construction
// (spec §4.15 step 2 "set the execution tracker").
func (b *Base) SetTracker(t Tracker) { b.tracker = t }

// firstInput returns the first input field present in state, honoring
// declaration order, along with the field name it came from.
func (b *Base) firstInput(state map[string]any) (string, any) {
	for _, field := range b.inputFields {
		if v, ok := state[field]; ok {
			return field, v
		}
	}
	return "", nil
}

// allInputs collects every declared input field present in state.
func (b *Base) allInputs(state map[string]any) map[string]any {
	out := make(map[string]any, len(b.inputFields))
	for _, field := range b.inputFields {
		if v, ok := state[field]; ok {
			out[field] = v
		}
	}
	return out
}

// outputKey is the state field a result is written under: the declared
// output_field, or a name derived from the node so two output-less agents
// never collide.
func (b *Base) outputKey() string {
	if b.outputField != "" {
		return b.outputField
	}
	return b.name + "_output"
}

// withOutput clones state and sets its output field plus
// last_action_success, the two fields the conditional-edge routing
// function and downstream nodes read (spec §4.12 step 3, testable
// property #7).
func (b *Base) withOutput(state map[string]any, value any, success bool) map[string]any {
	out := make(map[string]any, len(state)+2)
	for k, v := range state {
		out[k] = v
	}
	out[b.outputKey()] = value
	out["last_action_success"] = success
	return out
}
