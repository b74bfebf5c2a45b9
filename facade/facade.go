package facade

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentmap/agentmap-core/availability"
	"github.com/agentmap/agentmap-core/bundle"
	"github.com/agentmap/agentmap-core/policy"
	"github.com/agentmap/agentmap-core/runner"
)

// The façade's error taxonomy (spec §6/§7). The same mapping applies
// regardless of the adapter surface.
var (
	// ErrGraphNotFound maps any missing-file or unknown-workflow condition.
	ErrGraphNotFound = errors.New("facade: graph not found")
	// ErrInvalidInputs maps invalid arguments and malformed specs.
	ErrInvalidInputs = errors.New("facade: invalid inputs")
)

// Result is the uniform {success, outputs, metadata} envelope every
// façade operation returns for a run.
type Result struct {
	Success  bool           `json:"success"`
	Outputs  map[string]any `json:"outputs"`
	Metadata map[string]any `json:"metadata"`
}

// GraphInfo describes one graph discovered in the workflows directory.
type GraphInfo struct {
	Workflow  string `json:"workflow"`
	GraphName string `json:"graph_name"`
	NodeCount int    `json:"node_count"`
	CSVPath   string `json:"csv_path"`
}

// ValidationReport is validate_workflow's return value.
type ValidationReport struct {
	Workflow string                   `json:"workflow"`
	CSVHash  string                   `json:"csv_hash"`
	Graphs   []GraphValidation        `json:"graphs"`
	Policy   []string                 `json:"policy_errors,omitempty"`
	Valid    bool                     `json:"valid"`
}

// GraphValidation is the per-graph slice of a ValidationReport.
type GraphValidation struct {
	GraphName           string                `json:"graph_name"`
	EntryPoint          string                `json:"entry_point"`
	Structure           bundle.GraphStructure `json:"structure"`
	RequiredAgents      []string              `json:"required_agents"`
	RequiredServices    []string              `json:"required_services"`
	MissingDeclarations []string              `json:"missing_declarations,omitempty"`
}

// EnvironmentReport is diagnose_system's return value.
type EnvironmentReport struct {
	CacheDir           string              `json:"cache_dir"`
	WorkflowsDir       string              `json:"workflows_dir"`
	FeaturesEnabled    []string            `json:"features_enabled"`
	AvailableProviders map[string][]string `json:"available_providers"`
	MissingDependencies map[string][]string `json:"missing_dependencies,omitempty"`
	AvailabilityCache  availability.Stats  `json:"availability_cache"`
	BundleCreation     bundle.CreationInfo `json:"bundle_creation"`
}

// CacheReport is validate_cache's return value.
type CacheReport struct {
	AvailabilityCache availability.Stats `json:"availability_cache"`
	RegistryPath      string             `json:"registry_path"`
	RegistryPresent   bool               `json:"registry_present"`
}

// Facade exposes the runtime's exactly-typed operations over named
// workflows (spec §6 "Runtime façade"). A workflow name resolves to
// <workflows_dir>/<name>.csv; a name that is already a path to an
// existing file is used as-is.
type Facade struct {
	container    *Container
	workflowsDir string
}

// New wires a façade over a bootstrapped container.
func New(container *Container, workflowsDir string) *Facade {
	return &Facade{container: container, workflowsDir: workflowsDir}
}

// resolveWorkflow maps a workflow name to its spec file.
func (f *Facade) resolveWorkflow(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: workflow name is empty", ErrInvalidInputs)
	}
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}
	path := filepath.Join(f.workflowsDir, name+".csv")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: workflow %q (no file at %s)", ErrGraphNotFound, name, path)
	}
	return path, nil
}

// RunWorkflow resolves, bundles, and executes a named workflow
// (run_workflow). name may carry an optional ":graph" suffix selecting
// one graph of a multi-graph spec.
func (f *Facade) RunWorkflow(ctx context.Context, name string, inputs map[string]any) (*Result, error) {
	workflow, graphName := splitWorkflowName(name)
	csvPath, err := f.resolveWorkflow(workflow)
	if err != nil {
		return nil, err
	}

	result, err := f.container.Runner.RunCSV(ctx, f.container.Bundles, csvPath, graphName, inputs, runner.Options{})
	if err != nil {
		return nil, mapRunError(err)
	}

	metadata := map[string]any{
		"graph_name":     result.GraphName,
		"execution_time": result.ExecutionTime.Seconds(),
		"source_info":    string(result.SourceInfo),
		"node_sequence":  result.Summary.Names(),
	}
	if result.Error != "" {
		metadata["error"] = result.Error
	}
	return &Result{Success: result.Success, Outputs: result.FinalState, Metadata: metadata}, nil
}

// ListGraphs enumerates every graph of every workflow spec in the
// workflows directory (list_graphs), sorted by workflow then graph name.
func (f *Facade) ListGraphs() ([]GraphInfo, error) {
	entries, err := os.ReadDir(f.workflowsDir)
	if err != nil {
		return nil, fmt.Errorf("%w: workflows directory %s", ErrGraphNotFound, f.workflowsDir)
	}

	var infos []GraphInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		csvPath := filepath.Join(f.workflowsDir, entry.Name())
		spec, err := f.container.Parser.Parse(csvPath)
		if err != nil {
			f.container.Logger.Warn("facade: skipping unparseable workflow %s: %v", csvPath, err)
			continue
		}
		workflow := strings.TrimSuffix(entry.Name(), ".csv")
		for _, graphName := range spec.Order {
			infos = append(infos, GraphInfo{
				Workflow:  workflow,
				GraphName: graphName,
				NodeCount: len(spec.NodesFor(graphName)),
				CSVPath:   csvPath,
			})
		}
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Workflow != infos[j].Workflow {
			return infos[i].Workflow < infos[j].Workflow
		}
		return infos[i].GraphName < infos[j].GraphName
	})
	return infos, nil
}

// ValidateWorkflow parses and analyzes a named workflow without executing
// it (validate_workflow), reporting per-graph structure and anything that
// would block a run.
func (f *Facade) ValidateWorkflow(name string) (*ValidationReport, error) {
	workflow, graphName := splitWorkflowName(name)
	csvPath, err := f.resolveWorkflow(workflow)
	if err != nil {
		return nil, err
	}

	csvHash, err := bundle.HashFile(csvPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGraphNotFound, err)
	}
	spec, err := f.container.Parser.Parse(csvPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInputs, err)
	}

	report := &ValidationReport{Workflow: workflow, CSVHash: csvHash, Valid: true}

	analyzer := bundle.NewAnalyzer(f.container.AgentTypes, f.container.Declarations, f.container.Logger)
	for _, g := range spec.Order {
		if graphName != "" && g != graphName {
			continue
		}
		b, err := analyzer.Analyze(g, spec.NodesFor(g))
		if err != nil {
			return nil, fmt.Errorf("%w: graph %s: %v", ErrInvalidInputs, g, err)
		}
		report.Graphs = append(report.Graphs, GraphValidation{
			GraphName:           g,
			EntryPoint:          b.EntryPoint,
			Structure:           b.GraphStructure,
			RequiredAgents:      b.RequiredAgents,
			RequiredServices:    b.RequiredServices,
			MissingDeclarations: b.MissingDeclarations,
		})
		if len(b.MissingDeclarations) > 0 {
			report.Valid = false
		}
	}
	if graphName != "" && len(report.Graphs) == 0 {
		return nil, fmt.Errorf("%w: graph %q not in workflow %q", ErrGraphNotFound, graphName, workflow)
	}

	for _, err := range policy.Validate(f.container.Config.SuccessPolicy(), f.container.PolicyFuncs) {
		report.Policy = append(report.Policy, err.Error())
		report.Valid = false
	}
	return report, nil
}

// DiagnoseSystem reports the environment the runtime sees
// (diagnose_system).
func (f *Facade) DiagnoseSystem() *EnvironmentReport {
	report := &EnvironmentReport{
		CacheDir:           f.container.Config.CacheDir,
		WorkflowsDir:       f.workflowsDir,
		AvailableProviders: make(map[string][]string),
		AvailabilityCache:  f.container.Availability.Stat(),
		BundleCreation:     f.container.Bundles.CreationInfo(),
	}
	for _, feature := range []string{"llm", "storage", "host_extensions"} {
		if f.container.Features.IsFeatureEnabled(feature) {
			report.FeaturesEnabled = append(report.FeaturesEnabled, feature)
		}
	}
	for _, category := range []string{"llm", "storage"} {
		if providers := f.container.Features.GetAvailableProviders(category); len(providers) > 0 {
			report.AvailableProviders[category] = providers
		}
	}
	if missing := f.container.Features.GetMissingDependencies(""); len(missing) > 0 {
		report.MissingDependencies = missing
	}
	return report
}

// RefreshCache discards every availability-cache entry and persists the
// empty image (refresh_cache), forcing revalidation on next use.
func (f *Facade) RefreshCache() error {
	f.container.Availability.Invalidate("", "")
	if err := f.container.Availability.Save(); err != nil {
		return fmt.Errorf("facade: refresh cache: %w", err)
	}
	return nil
}

// ValidateCache reports cache health (validate_cache). stats controls
// whether entry counts are included or just presence checks.
func (f *Facade) ValidateCache(stats bool) *CacheReport {
	report := &CacheReport{RegistryPath: f.container.Config.RegistryPath()}
	if _, err := os.Stat(report.RegistryPath); err == nil {
		report.RegistryPresent = true
	}
	if stats {
		report.AvailabilityCache = f.container.Availability.Stat()
	}
	return report
}

// splitWorkflowName separates an optional ":graph" suffix from a workflow
// name.
func splitWorkflowName(name string) (workflow, graph string) {
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return name[:i], name[i+1:]
	}
	return name, ""
}

// mapRunError applies the façade error mapping to a runner failure:
// missing files become GraphNotFound, parse/validation problems become
// InvalidInputs, anything else passes through as a generic runtime error.
func mapRunError(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrGraphNotFound, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "parse") || strings.Contains(msg, "empty graph") || strings.Contains(msg, "no graphs") {
		return fmt.Errorf("%w: %v", ErrInvalidInputs, err)
	}
	return err
}
