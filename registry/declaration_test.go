package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclarationRegistry_LoadRejectsCycle(t *testing.T) {
	r := NewDeclarationRegistry()
	err := r.Load([]ServiceDeclaration{
		{ServiceName: "a", RequiredDependencies: map[string]bool{"b": true}},
		{ServiceName: "b", RequiredDependencies: map[string]bool{"a": true}},
	})
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.ElementsMatch(t, []string{"a", "b"}, cycleErr.Services)
}

func TestDeclarationRegistry_ResolveServiceDependencies(t *testing.T) {
	r := NewDeclarationRegistry()
	require.NoError(t, r.Load([]ServiceDeclaration{
		{ServiceName: "llm", RequiredDependencies: map[string]bool{"cache": true}},
		{ServiceName: "cache", RequiredDependencies: map[string]bool{}},
		{ServiceName: "storage", RequiredDependencies: map[string]bool{}},
	}))

	closure := r.ResolveServiceDependencies(map[string]bool{"llm": true})
	assert.True(t, closure["llm"])
	assert.True(t, closure["cache"])
	assert.False(t, closure["storage"])
}

func TestDeclarationRegistry_CalculateLoadOrderDeterministicTies(t *testing.T) {
	r := NewDeclarationRegistry()
	require.NoError(t, r.Load([]ServiceDeclaration{
		{ServiceName: "z", RequiredDependencies: map[string]bool{}},
		{ServiceName: "a", RequiredDependencies: map[string]bool{}},
		{ServiceName: "m", RequiredDependencies: map[string]bool{}},
	}))

	order, err := r.CalculateLoadOrder(map[string]bool{"z": true, "a": true, "m": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "m", "z"}, order)
}

func TestDeclarationRegistry_CalculateLoadOrderRespectsDependencies(t *testing.T) {
	r := NewDeclarationRegistry()
	require.NoError(t, r.Load([]ServiceDeclaration{
		{ServiceName: "llm", RequiredDependencies: map[string]bool{"cache": true}},
		{ServiceName: "cache", RequiredDependencies: map[string]bool{}},
	}))

	order, err := r.CalculateLoadOrder(map[string]bool{"llm": true, "cache": true})
	require.NoError(t, err)
	require.Equal(t, []string{"cache", "llm"}, order)
}

func TestDeclarationRegistry_GetProtocolImplementations(t *testing.T) {
	r := NewDeclarationRegistry()
	require.NoError(t, r.Load([]ServiceDeclaration{
		{ServiceName: "llm_service", Implements: map[string]bool{"LLMCapable": true}},
		{ServiceName: "storage_service", Implements: map[string]bool{"StorageCapable": true}},
	}))

	impls := r.GetProtocolImplementations()
	assert.Equal(t, "llm_service", impls["LLMCapable"])
	assert.Equal(t, "storage_service", impls["StorageCapable"])
}
