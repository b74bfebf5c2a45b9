package facade

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmap/agentmap-core/config"
)

const specHeader = "GraphName,Node,AgentType,Context,Prompt,Input_Fields,Output_Field,Description,Edge,Success_Next,Failure_Next\n"

func newTestFacade(t *testing.T) (*Facade, string) {
	t.Helper()
	workflows := t.TempDir()

	cfg := config.Default()
	cfg.CacheDir = t.TempDir()

	container, err := NewContainer(cfg, nil, ContainerOptions{})
	require.NoError(t, err)
	t.Cleanup(container.Close)

	return New(container, workflows), workflows
}

func writeWorkflow(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".csv"), []byte(specHeader+body), 0o644))
}

func TestRunWorkflow_LinearFlow(t *testing.T) {
	f, workflows := newTestFacade(t)
	writeWorkflow(t, workflows, "flow",
		"flow,n1,default,,start,x,y,,n2,,\n"+
			"flow,n2,default,,finish,y,z,,,,\n")

	result, err := f.RunWorkflow(context.Background(), "flow", map[string]any{"x": 1})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Outputs["z"])
	assert.Equal(t, "autocompiled", result.Metadata["source_info"])
	assert.Equal(t, []string{"n1", "n2"}, result.Metadata["node_sequence"])

	// A second run reuses the persisted bundle.
	result, err = f.RunWorkflow(context.Background(), "flow", map[string]any{"x": 2})
	require.NoError(t, err)
	assert.Equal(t, "precompiled", result.Metadata["source_info"])
}

func TestRunWorkflow_UnknownNameIsGraphNotFound(t *testing.T) {
	f, _ := newTestFacade(t)
	_, err := f.RunWorkflow(context.Background(), "ghost", nil)
	assert.ErrorIs(t, err, ErrGraphNotFound)
}

func TestRunWorkflow_EmptyNameIsInvalidInputs(t *testing.T) {
	f, _ := newTestFacade(t)
	_, err := f.RunWorkflow(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrInvalidInputs)
}

func TestRunWorkflow_GraphSelectionSuffix(t *testing.T) {
	f, workflows := newTestFacade(t)
	writeWorkflow(t, workflows, "multi",
		"A,a1,default,,only a,x,a_out,,,,\n"+
			"B,b1,default,,only b,x,b_out,,,,\n")

	result, err := f.RunWorkflow(context.Background(), "multi:B", map[string]any{"x": 9})
	require.NoError(t, err)
	assert.Equal(t, "B", result.Metadata["graph_name"])
	assert.Equal(t, 9, result.Outputs["b_out"])
	_, hasA := result.Outputs["a_out"]
	assert.False(t, hasA)
}

func TestListGraphs(t *testing.T) {
	f, workflows := newTestFacade(t)
	writeWorkflow(t, workflows, "multi",
		"B,b1,default,,,,,,,,\n"+
			"A,a1,default,,,,,,,,\n"+
			"A,a2,default,,,,,,,,\n")
	writeWorkflow(t, workflows, "flow", "flow,n1,default,,,,,,,,\n")

	infos, err := f.ListGraphs()
	require.NoError(t, err)
	require.Len(t, infos, 3)
	// Sorted by workflow then graph name.
	assert.Equal(t, "flow", infos[0].Workflow)
	assert.Equal(t, "A", infos[1].GraphName)
	assert.Equal(t, 2, infos[1].NodeCount)
	assert.Equal(t, "B", infos[2].GraphName)
}

func TestValidateWorkflow(t *testing.T) {
	f, workflows := newTestFacade(t)
	writeWorkflow(t, workflows, "flow",
		"flow,n1,default,,start,x,y,,n2,,\n"+
			"flow,n2,branch,,finish,y,z,,,n1,\n")

	report, err := f.ValidateWorkflow("flow")
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Len(t, report.CSVHash, 64)
	require.Len(t, report.Graphs, 1)
	g := report.Graphs[0]
	assert.Equal(t, "n1", g.EntryPoint)
	assert.Equal(t, 2, g.Structure.NodeCount)
	assert.True(t, g.Structure.HasConditionalRouting)
	assert.Contains(t, g.RequiredAgents, "branch")
}

func TestValidateWorkflow_UnknownAgentType(t *testing.T) {
	f, workflows := newTestFacade(t)
	writeWorkflow(t, workflows, "flow", "flow,n1,warp_drive,,,,,,,,\n")

	report, err := f.ValidateWorkflow("flow")
	require.NoError(t, err)
	assert.False(t, report.Valid)
	require.Len(t, report.Graphs, 1)
	assert.Contains(t, report.Graphs[0].MissingDeclarations, "warp_drive")
}

func TestValidateWorkflow_UnknownGraphSuffix(t *testing.T) {
	f, workflows := newTestFacade(t)
	writeWorkflow(t, workflows, "flow", "flow,n1,default,,,,,,,,\n")

	_, err := f.ValidateWorkflow("flow:ghost")
	assert.ErrorIs(t, err, ErrGraphNotFound)
}

func TestDiagnoseSystem(t *testing.T) {
	f, _ := newTestFacade(t)
	report := f.DiagnoseSystem()
	assert.Equal(t, f.container.Config.CacheDir, report.CacheDir)
	assert.NotNil(t, report.AvailableProviders)
	assert.True(t, report.BundleCreation.StaticAvailable)
	assert.Equal(t, "static", report.BundleCreation.RecommendedPath)
}

func TestCacheOperations(t *testing.T) {
	f, _ := newTestFacade(t)

	f.container.Availability.Set("llm_provider", "openai", true)
	require.NoError(t, f.container.Availability.Save())

	report := f.ValidateCache(true)
	assert.Equal(t, 1, report.AvailabilityCache.Entries)

	require.NoError(t, f.RefreshCache())
	report = f.ValidateCache(true)
	assert.Zero(t, report.AvailabilityCache.Entries)
}
