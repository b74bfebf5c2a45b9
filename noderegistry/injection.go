package noderegistry

import "github.com/agentmap/agentmap-core/log"

// InjectionReporter is satisfied by the graph assembler (C12): it reports
// how many orchestration-capable nodes it found and how many of those
// actually received a node registry before compilation (spec §4.13
// verify_pre_compilation_injection).
type InjectionReporter interface {
	InjectionSummary() (total, injected int)
}

// InjectionVerification is the result of checking an assembler's injection
// pass before it compiles a graph.
type InjectionVerification struct {
	HasOrchestrators bool
	AllInjected      bool
	SuccessRate      float64
	Stats            map[string]int
}

// VerifyPreCompilationInjection reads the assembler's injection summary and
// classifies it, logging success/partial-failure/no-orchestrators
// accordingly (spec §4.13).
func VerifyPreCompilationInjection(reporter InjectionReporter, logger log.Logger) InjectionVerification {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}

	total, injected := reporter.InjectionSummary()
	hasOrchestrators := total > 0

	var rate float64
	if total > 0 {
		rate = float64(injected) / float64(total)
	}
	allInjected := hasOrchestrators && injected == total

	switch {
	case !hasOrchestrators:
		logger.Info("noderegistry: no orchestration-capable nodes require registry injection")
	case allInjected:
		logger.Info("noderegistry: all %d orchestrator nodes received node-registry injection", total)
	default:
		logger.Warn("noderegistry: only %d/%d orchestrator nodes received node-registry injection", injected, total)
	}

	return InjectionVerification{
		HasOrchestrators: hasOrchestrators,
		AllInjected:      allInjected,
		SuccessRate:      rate,
		Stats:            map[string]int{"total": total, "injected": injected},
	}
}
