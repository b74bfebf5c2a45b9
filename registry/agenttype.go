package registry

import (
	"fmt"
	"strings"
	"sync"
)

// DefaultAgentType is the name a blank agent_type column resolves to.
const DefaultAgentType = "default"

// BuiltinNamespace is the class-reference prefix used to classify an agent
// type as builtin rather than custom (spec C8 "agent classification").
const BuiltinNamespace = "agentmap/builtin"

// AgentConstructor builds an agent instance given its node name, prompt,
// and context. The concrete Agent type is intentionally `any` here:
// registry does not know about capability interfaces, that's inject's job.
type AgentConstructor func(name, prompt string, context map[string]any) (any, error)

type agentEntry struct {
	classRef     string
	constructor  AgentConstructor
	capabilities []string
}

// AgentTypeRegistry maps an agent-type name to a constructor and its
// fully-qualified class reference (spec C3).
type AgentTypeRegistry struct {
	mu      sync.RWMutex
	entries map[string]agentEntry
}

// NewAgentTypeRegistry creates an empty registry. The empty string always
// resolves to DefaultAgentType once that type is registered.
func NewAgentTypeRegistry() *AgentTypeRegistry {
	return &AgentTypeRegistry{entries: make(map[string]agentEntry)}
}

func normalize(agentType string) string {
	if agentType == "" {
		return DefaultAgentType
	}
	return strings.ToLower(agentType)
}

// Register adds or replaces an agent type's constructor and class reference.
func (r *AgentTypeRegistry) Register(agentType, classRef string, constructor AgentConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[normalize(agentType)] = agentEntry{classRef: classRef, constructor: constructor}
}

// HasAgent reports whether agentType (case-insensitively, "" meaning
// DefaultAgentType) is registered.
func (r *AgentTypeRegistry) HasAgent(agentType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[normalize(agentType)]
	return ok
}

// ClassRef returns the fully-qualified class reference for an agent type.
func (r *AgentTypeRegistry) ClassRef(agentType string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[normalize(agentType)]
	return e.classRef, ok
}

// New constructs a new agent instance for the given type.
func (r *AgentTypeRegistry) New(agentType, name, prompt string, context map[string]any) (any, error) {
	r.mu.RLock()
	e, ok := r.entries[normalize(agentType)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("registry: unknown agent type %q", agentType)
	}
	return e.constructor(name, prompt, context)
}

// SetCapabilities records which capability-interface names (from the fixed
// C11 catalog, e.g. "LLMCapable", "StorageCapable") an agent type's class is
// known to implement. This is static, registration-time metadata used by
// the metadata analyzer (C8) to derive required services without ever
// constructing an agent; the injection engine (C11) still determines actual
// wiring by asserting real capability interfaces against a constructed
// instance at run time.
func (r *AgentTypeRegistry) SetCapabilities(agentType string, capabilities []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entries[normalize(agentType)]
	e.capabilities = capabilities
	r.entries[normalize(agentType)] = e
}

// Capabilities returns the capability-interface names registered for an
// agent type, or nil if none were set.
func (r *AgentTypeRegistry) Capabilities(agentType string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[normalize(agentType)].capabilities
}

// IsBuiltin reports whether an agent type's class reference originates
// from the fixed built-in namespace (spec C8 "agent classification").
func (r *AgentTypeRegistry) IsBuiltin(agentType string) bool {
	classRef, ok := r.ClassRef(agentType)
	if !ok {
		return false
	}
	return strings.HasPrefix(classRef, BuiltinNamespace)
}

// AgentMappings returns {agent_type: class_reference} for the given set of
// agent types, and the subset with no known class (spec C8 "missing
// declarations").
func (r *AgentTypeRegistry) AgentMappings(agentTypes []string) (mappings map[string]string, missing []string) {
	mappings = make(map[string]string)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range agentTypes {
		key := normalize(t)
		if e, ok := r.entries[key]; ok {
			mappings[t] = e.classRef
		} else {
			missing = append(missing, t)
		}
	}
	return mappings, missing
}

// Classify partitions agentTypes into builtin and custom sets (spec C8).
func (r *AgentTypeRegistry) Classify(agentTypes []string) (builtin, custom []string) {
	for _, t := range agentTypes {
		if r.IsBuiltin(t) {
			builtin = append(builtin, t)
		} else if r.HasAgent(t) {
			custom = append(custom, t)
		}
	}
	return builtin, custom
}
