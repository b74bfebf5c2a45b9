package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/agentmap/agentmap-core/facade"
	"github.com/agentmap/agentmap-core/interaction"
)

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	sectionStyle = lipgloss.NewStyle().PaddingLeft(2)
)

func renderError(err error) string {
	switch {
	case errors.Is(err, facade.ErrGraphNotFound):
		return errStyle.Render("not found: ") + err.Error()
	case errors.Is(err, facade.ErrInvalidInputs):
		return errStyle.Render("invalid: ") + err.Error()
	default:
		return errStyle.Render("error: ") + err.Error()
	}
}

func renderResult(w io.Writer, name string, result *facade.Result) {
	status := okStyle.Render("success")
	if !result.Success {
		status = errStyle.Render("failed")
	}
	fmt.Fprintf(w, "%s %s\n", headerStyle.Render(name), status)

	if sequence, ok := result.Metadata["node_sequence"].([]string); ok && len(sequence) > 0 {
		fmt.Fprintln(w, sectionStyle.Render(dimStyle.Render("nodes: ")+joinArrow(sequence)))
	}
	if errMsg, ok := result.Metadata["error"].(string); ok && errMsg != "" {
		fmt.Fprintln(w, sectionStyle.Render(errStyle.Render(errMsg)))
	}

	keys := make([]string, 0, len(result.Outputs))
	for k := range result.Outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintln(w, sectionStyle.Render(fmt.Sprintf("%s = %v", k, result.Outputs[k])))
	}
}

func renderGraphList(w io.Writer, infos []facade.GraphInfo) {
	if len(infos) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no graphs found"))
		return
	}
	workflow := ""
	for _, info := range infos {
		if info.Workflow != workflow {
			workflow = info.Workflow
			fmt.Fprintln(w, headerStyle.Render(workflow)+dimStyle.Render(" ("+info.CSVPath+")"))
		}
		fmt.Fprintln(w, sectionStyle.Render(fmt.Sprintf("%s  %s", info.GraphName, dimStyle.Render(fmt.Sprintf("%d node(s)", info.NodeCount)))))
	}
}

func renderValidation(w io.Writer, report *facade.ValidationReport) {
	status := okStyle.Render("valid")
	if !report.Valid {
		status = errStyle.Render("invalid")
	}
	fmt.Fprintf(w, "%s %s %s\n", headerStyle.Render(report.Workflow), status, dimStyle.Render(report.CSVHash[:12]))

	for _, g := range report.Graphs {
		fmt.Fprintln(w, sectionStyle.Render(headerStyle.Render(g.GraphName)))
		detail := fmt.Sprintf("entry %s · %d node(s), %d edge(s)", g.EntryPoint, g.Structure.NodeCount, g.Structure.EdgeCount)
		if g.Structure.HasConditionalRouting {
			detail += " · conditional routing"
		}
		if !g.Structure.IsDAG {
			detail += " · " + warnStyle.Render("cyclic")
		}
		fmt.Fprintln(w, sectionStyle.Render(sectionStyle.Render(detail)))
		if len(g.RequiredAgents) > 0 {
			fmt.Fprintln(w, sectionStyle.Render(sectionStyle.Render(dimStyle.Render("agents: ")+joinComma(g.RequiredAgents))))
		}
		if len(g.RequiredServices) > 0 {
			fmt.Fprintln(w, sectionStyle.Render(sectionStyle.Render(dimStyle.Render("services: ")+joinComma(g.RequiredServices))))
		}
		for _, missing := range g.MissingDeclarations {
			fmt.Fprintln(w, sectionStyle.Render(sectionStyle.Render(errStyle.Render("missing agent type: "+missing))))
		}
	}
	for _, msg := range report.Policy {
		fmt.Fprintln(w, sectionStyle.Render(errStyle.Render("policy: "+msg)))
	}
}

func renderDiagnosis(w io.Writer, report *facade.EnvironmentReport) {
	fmt.Fprintln(w, headerStyle.Render("environment"))
	fmt.Fprintln(w, sectionStyle.Render(dimStyle.Render("cache dir:      ")+report.CacheDir))
	fmt.Fprintln(w, sectionStyle.Render(dimStyle.Render("workflows dir:  ")+report.WorkflowsDir))
	if len(report.FeaturesEnabled) > 0 {
		fmt.Fprintln(w, sectionStyle.Render(dimStyle.Render("features:       ")+joinComma(report.FeaturesEnabled)))
	} else {
		fmt.Fprintln(w, sectionStyle.Render(dimStyle.Render("features:       ")+dimStyle.Render("none enabled")))
	}
	for category, providers := range report.AvailableProviders {
		fmt.Fprintln(w, sectionStyle.Render(dimStyle.Render(category+" providers: ")+okStyle.Render(joinComma(providers))))
	}
	for category, missing := range report.MissingDependencies {
		fmt.Fprintln(w, sectionStyle.Render(warnStyle.Render(category+" missing: ")+joinComma(missing)))
	}
	stats := report.AvailabilityCache
	fmt.Fprintln(w, sectionStyle.Render(dimStyle.Render("availability:   ")+fmt.Sprintf("%d entr(ies) in %d categor(ies)", stats.Entries, stats.Categories)))
	creation := dimStyle.Render("bundle path:    ") + report.BundleCreation.RecommendedPath
	if report.BundleCreation.StaticAvailable {
		creation += dimStyle.Render(" (static fast path available)")
	}
	fmt.Fprintln(w, sectionStyle.Render(creation))
}

func renderCacheReport(w io.Writer, report *facade.CacheReport) {
	fmt.Fprintln(w, headerStyle.Render("cache"))
	registry := errStyle.Render("absent")
	if report.RegistryPresent {
		registry = okStyle.Render("present")
	}
	fmt.Fprintln(w, sectionStyle.Render(dimStyle.Render("bundle registry: ")+registry+dimStyle.Render(" ("+report.RegistryPath+")")))

	stats := report.AvailabilityCache
	if stats.Path == "" {
		return
	}
	fmt.Fprintln(w, sectionStyle.Render(dimStyle.Render("availability:    ")+fmt.Sprintf("%d entr(ies)", stats.Entries)))
	categories := make([]string, 0, len(stats.PerCategory))
	for category := range stats.PerCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		fmt.Fprintln(w, sectionStyle.Render(sectionStyle.Render(fmt.Sprintf("%s: %d", category, stats.PerCategory[category]))))
	}
}

func renderInteraction(w io.Writer, req *interaction.Request) {
	fmt.Fprintln(w, promptStyle.Render(fmt.Sprintf("[%s] %s paused at %s", req.Type, req.ThreadID, req.NodeName)))
	fmt.Fprintln(w, sectionStyle.Render(req.Prompt))
	for i, option := range req.Options {
		fmt.Fprintln(w, sectionStyle.Render(fmt.Sprintf("%d) %s", i+1, option)))
	}
	if req.TimeoutSeconds > 0 {
		fmt.Fprintln(w, sectionStyle.Render(dimStyle.Render(fmt.Sprintf("times out in %ds", req.TimeoutSeconds))))
	}
}

func joinComma(items []string) string {
	return strings.Join(items, ", ")
}

func joinArrow(items []string) string {
	return strings.Join(items, " -> ")
}
