package noderegistry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmap/agentmap-core/bundle"
)

func TestBuildRegistry_DescriptionFromContextWins(t *testing.T) {
	r := New(nil)
	nodes := []bundle.Node{
		{Name: "n1", Context: map[string]any{"description": "from context"}, Description: "from field", Prompt: "from prompt"},
	}
	meta := r.BuildRegistry("g", nodes, false)
	assert.Equal(t, "from context", meta["n1"].Description)
}

func TestBuildRegistry_FallsBackToNodeDescription(t *testing.T) {
	r := New(nil)
	nodes := []bundle.Node{{Name: "n1", Description: "from field", Prompt: "from prompt"}}
	meta := r.BuildRegistry("g", nodes, false)
	assert.Equal(t, "from field", meta["n1"].Description)
}

func TestBuildRegistry_FallsBackToTruncatedPrompt(t *testing.T) {
	r := New(nil)
	longPrompt := ""
	for i := 0; i < 200; i++ {
		longPrompt += "x"
	}
	nodes := []bundle.Node{{Name: "n1", Prompt: longPrompt}}
	meta := r.BuildRegistry("g", nodes, false)
	assert.Len(t, meta["n1"].Description, descriptionTruncateLen)
}

func TestBuildRegistry_MemoizesPerGraphName(t *testing.T) {
	r := New(nil)
	nodes := []bundle.Node{{Name: "n1", Description: "v1"}}
	first := r.BuildRegistry("g", nodes, false)

	nodes2 := []bundle.Node{{Name: "n1", Description: "v2"}}
	second := r.BuildRegistry("g", nodes2, false)
	assert.Equal(t, first["n1"].Description, second["n1"].Description)
	assert.Equal(t, "v1", second["n1"].Description)
}

func TestBuildRegistry_ForceBypassesMemoization(t *testing.T) {
	r := New(nil)
	r.BuildRegistry("g", []bundle.Node{{Name: "n1", Description: "v1"}}, false)

	second := r.BuildRegistry("g", []bundle.Node{{Name: "n1", Description: "v2"}}, true)
	assert.Equal(t, "v2", second["n1"].Description)
}

func TestPrepareForAssembly_DelegatesToBuildRegistry(t *testing.T) {
	r := New(nil)
	nodes := []bundle.Node{{Name: "n1", Description: "d"}}
	meta := r.PrepareForAssembly("g", nodes)
	require.Contains(t, meta, "n1")
	assert.Equal(t, "d", meta["n1"].Description)
}

type fakeReporter struct{ total, injected int }

func (f fakeReporter) InjectionSummary() (int, int) { return f.total, f.injected }

func TestVerifyPreCompilationInjection_NoOrchestrators(t *testing.T) {
	v := VerifyPreCompilationInjection(fakeReporter{0, 0}, nil)
	assert.False(t, v.HasOrchestrators)
	assert.False(t, v.AllInjected)
}

func TestVerifyPreCompilationInjection_AllInjected(t *testing.T) {
	v := VerifyPreCompilationInjection(fakeReporter{3, 3}, nil)
	assert.True(t, v.HasOrchestrators)
	assert.True(t, v.AllInjected)
	assert.Equal(t, 1.0, v.SuccessRate)
}

func TestVerifyPreCompilationInjection_PartialFailure(t *testing.T) {
	v := VerifyPreCompilationInjection(fakeReporter{4, 2}, nil)
	assert.True(t, v.HasOrchestrators)
	assert.False(t, v.AllInjected)
	assert.Equal(t, 0.5, v.SuccessRate)
}
