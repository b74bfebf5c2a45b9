// Package noderegistry implements the node-registry service (C13): a
// per-graph, memoized view of each node's descriptive metadata, built once
// from the parsed bundle and handed to orchestration-capable agents so they
// can describe the graph they're embedded in without re-deriving it.
package noderegistry

import (
	"strings"
	"sync"

	"github.com/agentmap/agentmap-core/bundle"
	"github.com/agentmap/agentmap-core/log"
)

// descriptionTruncateLen bounds a prompt-derived description (spec §4.13).
const descriptionTruncateLen = 100

// Metadata is one node's descriptive record (spec §4.13).
type Metadata struct {
	Description string
	Prompt      string
	Type        string
	InputFields []string
	OutputField string
}

// Registry builds and memoizes node metadata per graph name.
type Registry struct {
	mu    sync.Mutex
	cache map[string]map[string]Metadata
	log   log.Logger
}

// New creates an empty node-registry service.
func New(logger log.Logger) *Registry {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	return &Registry{cache: make(map[string]map[string]Metadata), log: logger}
}

// BuildRegistry derives {node_name: metadata} for a graph's nodes, reusing
// a prior result for the same graph name unless force is set (spec §4.13).
func (r *Registry) BuildRegistry(graphName string, nodes []bundle.Node, force bool) map[string]Metadata {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !force {
		if cached, ok := r.cache[graphName]; ok {
			return cached
		}
	}

	built := make(map[string]Metadata, len(nodes))
	for _, n := range nodes {
		built[n.Name] = metadataFor(n)
	}
	r.cache[graphName] = built
	return built
}

// PrepareForAssembly is the graph assembler's entry point into this
// service (spec §4.13).
func (r *Registry) PrepareForAssembly(graphName string, nodes []bundle.Node) map[string]Metadata {
	return r.BuildRegistry(graphName, nodes, false)
}

func metadataFor(n bundle.Node) Metadata {
	description := descriptionFromContext(n.Context)
	if description == "" {
		description = n.Description
	}
	if description == "" {
		description = truncate(n.Prompt, descriptionTruncateLen)
	}

	return Metadata{
		Description: description,
		Prompt:      n.Prompt,
		Type:        n.AgentType,
		InputFields: n.Inputs,
		OutputField: n.Output,
	}
}

func descriptionFromContext(ctx map[string]any) string {
	if ctx == nil {
		return ""
	}
	raw, ok := ctx["description"]
	if !ok {
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		return ""
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n])
}
