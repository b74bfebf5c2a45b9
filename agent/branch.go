package agent

import "context"

// BranchAgent exercises conditional routing (spec §4.12 step 3, testable
// property #7, scenario E2): it evaluates a condition and sets
// last_action_success accordingly, rather than always succeeding. The
// condition is the truthiness of state[context["condition_field"]] if that
// context key is set, else the truthiness of its first input field.
type BranchAgent struct {
	Base
	conditionField string
}

// NewBranchAgent is a registry.AgentConstructor.
func NewBranchAgent(name, prompt string, ctx map[string]any) (any, error) {
	a := &BranchAgent{Base: NewBase(name, prompt, ctx)}
	if ctx != nil {
		if v, ok := ctx["condition_field"].(string); ok {
			a.conditionField = v
		}
	}
	return a, nil
}

// Run implements Agent.
func (a *BranchAgent) Run(ctx context.Context, state map[string]any) (map[string]any, error) {
	var value any
	if a.conditionField != "" {
		value = state[a.conditionField]
	} else {
		_, value = a.firstInput(state)
	}
	return a.withOutput(state, value, truthy(value)), nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != "" && t != "false"
	default:
		return true
	}
}
