package policy

import (
	"fmt"

	"github.com/agentmap/agentmap-core/log"
)

// Validate returns the configuration errors for cfg (spec §4.14): unknown
// type; critical_nodes with an empty list; custom with a missing function
// reference.
func Validate(cfg Config, funcs *FuncRegistry) []error {
	var errs []error
	switch cfg.Type {
	case AllNodes, FinalNode:
	case CriticalNodes:
		if len(cfg.CriticalNodes) == 0 {
			errs = append(errs, fmt.Errorf("policy: critical_nodes policy requires a non-empty critical node list"))
		}
	case Custom:
		if cfg.CustomFunc == "" {
			errs = append(errs, fmt.Errorf("policy: custom policy requires a function reference"))
		} else if funcs != nil {
			if _, ok := funcs.Get(cfg.CustomFunc); !ok {
				errs = append(errs, fmt.Errorf("policy: custom function %q is not registered", cfg.CustomFunc))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("policy: unknown policy type %q", cfg.Type))
	}
	return errs
}

// Evaluate decides overall execution success from summary per cfg (spec
// §4.14). An unknown type falls back to AllNodes and warns. A panic raised
// by a custom function (Go's analogue of an uncaught exception) is
// recovered; evaluation then returns false and logs, matching "any
// exception during evaluation returns false and logs".
func Evaluate(cfg Config, summary ExecutionSummary, funcs *FuncRegistry, logger log.Logger) (result bool) {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("policy: evaluation panicked: %v", r)
			result = false
		}
	}()

	switch cfg.Type {
	case AllNodes:
		return summary.allSucceeded()
	case FinalNode:
		return summary.finalSucceeded()
	case CriticalNodes:
		return summary.criticalSucceeded(cfg.CriticalNodes)
	case Custom:
		if funcs == nil {
			logger.Error("policy: custom policy %q has no function registry configured", cfg.CustomFunc)
			return false
		}
		fn, ok := funcs.Get(cfg.CustomFunc)
		if !ok {
			logger.Error("policy: custom function %q not found", cfg.CustomFunc)
			return false
		}
		return fn(summary)
	default:
		logger.Warn("policy: unknown policy type %q, falling back to all_nodes", cfg.Type)
		return summary.allSucceeded()
	}
}
