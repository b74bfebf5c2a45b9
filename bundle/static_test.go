package bundle

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmap/agentmap-core/registry"
)

func countingConstructor(counter *int) registry.AgentConstructor {
	return func(name, prompt string, ctx map[string]any) (any, error) {
		*counter++
		return nil, nil
	}
}

func TestStaticAnalyzer_NeverConstructsInstances(t *testing.T) {
	agentTypes := registry.NewAgentTypeRegistry()
	declarations := registry.NewDeclarationRegistry()

	constructions := 0
	agentTypes.Register("openai", registry.BuiltinNamespace+".OpenAI", countingConstructor(&constructions))
	agentTypes.SetCapabilities("openai", []string{"LLMCapable"})

	require.NoError(t, declarations.Load([]registry.ServiceDeclaration{
		{ServiceName: "llm_service", Implements: map[string]bool{"LLMCapable": true}},
	}))

	nodes := []Node{{Name: "n1", AgentType: "openai", Default: End}}

	static := NewStaticAnalyzer(agentTypes, declarations, nil)
	b, err := static.CreateStaticBundle("g", nodes)
	require.NoError(t, err)
	assert.Zero(t, constructions, "static path must not invoke constructors")
	assert.Contains(t, b.RequiredServices, "llm_service")

	// The dynamic path probes a constructed instance for the same answer.
	dynamic := NewAnalyzer(agentTypes, declarations, nil)
	_, err = dynamic.Analyze("g", nodes)
	require.NoError(t, err)
	assert.Equal(t, 1, constructions)
}

func TestStaticAnalyzer_MatchesDynamicForCatalogedTypes(t *testing.T) {
	agentTypes := registry.NewAgentTypeRegistry()
	declarations := registry.NewDeclarationRegistry()
	agentTypes.Register("openai", registry.BuiltinNamespace+".OpenAI", noopConstructor)
	agentTypes.SetCapabilities("openai", []string{"LLMCapable"})
	require.NoError(t, declarations.Load([]registry.ServiceDeclaration{
		{ServiceName: "llm_service", Implements: map[string]bool{"LLMCapable": true}},
	}))

	nodes := []Node{
		{Name: "start", AgentType: "openai", Default: "finish"},
		{Name: "finish", AgentType: "openai"},
	}

	staticBundle, err := NewStaticAnalyzer(agentTypes, declarations, nil).CreateStaticBundle("g", nodes)
	require.NoError(t, err)
	dynamicBundle, err := NewAnalyzer(agentTypes, declarations, nil).Analyze("g", nodes)
	require.NoError(t, err)

	assert.Equal(t, dynamicBundle.EntryPoint, staticBundle.EntryPoint)
	assert.Equal(t, dynamicBundle.RequiredAgents, staticBundle.RequiredAgents)
	assert.Equal(t, dynamicBundle.RequiredServices, staticBundle.RequiredServices)
	assert.Equal(t, dynamicBundle.ServiceLoadOrder, staticBundle.ServiceLoadOrder)
	assert.Equal(t, dynamicBundle.AgentMappings, staticBundle.AgentMappings)
	assert.Equal(t, dynamicBundle.GraphStructure, staticBundle.GraphStructure)
}

func TestService_GetOrCreateBundle_PrefersStaticFastPath(t *testing.T) {
	dir := t.TempDir()

	agentTypes := registry.NewAgentTypeRegistry()
	constructions := 0
	agentTypes.Register("default", registry.BuiltinNamespace+".Default", countingConstructor(&constructions))
	declarations := registry.NewDeclarationRegistry()

	bundleRegistry := NewRegistry(filepath.Join(dir, "graph_registry.json"), nil)
	svc := NewService(&fakeParser{spec: oneGraphSpec()}, NewAnalyzer(agentTypes, declarations, nil), bundleRegistry, dir, nil).
		WithStaticAnalyzer(NewStaticAnalyzer(agentTypes, declarations, nil))

	require.True(t, svc.IsStaticBundleAvailable())
	assert.Equal(t, "static", svc.CreationInfo().RecommendedPath)

	csvPath := writeCSVFile(t, dir)
	b, created, err := svc.GetOrCreateBundle(csvPath, "greet")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "greet", b.GraphName)
	assert.Zero(t, constructions, "static fast path must not construct agents")
}

func TestService_CreateStaticBundle_RequiresAnalyzer(t *testing.T) {
	svc, _, dir := newTestService(t, oneGraphSpec())
	csvPath := writeCSVFile(t, dir)

	_, err := svc.CreateStaticBundle(csvPath, "greet")
	assert.ErrorContains(t, err, "no static analyzer")
	assert.False(t, svc.IsStaticBundleAvailable())
	assert.Equal(t, "dynamic", svc.CreationInfo().RecommendedPath)
}

func TestService_CreateStaticBundle_PersistsAndRegisters(t *testing.T) {
	dir := t.TempDir()
	agentTypes := registry.NewAgentTypeRegistry()
	agentTypes.Register("default", registry.BuiltinNamespace+".Default", noopConstructor)
	declarations := registry.NewDeclarationRegistry()

	bundleRegistry := NewRegistry(filepath.Join(dir, "graph_registry.json"), nil)
	svc := NewService(&fakeParser{spec: oneGraphSpec()}, NewAnalyzer(agentTypes, declarations, nil), bundleRegistry, dir, nil).
		WithStaticAnalyzer(NewStaticAnalyzer(agentTypes, declarations, nil))

	csvPath := writeCSVFile(t, dir)
	b, err := svc.CreateStaticBundle(csvPath, "greet")
	require.NoError(t, err)
	assert.Len(t, b.CSVHash, 64)

	path, ok := bundleRegistry.FindBundle(b.CSVHash, "greet")
	require.True(t, ok)
	assert.NotEmpty(t, path)
}
