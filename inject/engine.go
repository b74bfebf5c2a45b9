package inject

import (
	"fmt"
	"reflect"

	"github.com/agentmap/agentmap-core/log"
	"github.com/agentmap/agentmap-core/registry"
)

// Named lets an agent supply a human-readable label for error messages;
// agents that don't implement it are identified by their Go type instead.
type Named interface {
	Name() string
}

// Summary reports what a configuration pass did for one agent (spec §4.11
// "configure_all_services(agent) -> summary").
type Summary struct {
	Configured []string
	Skipped    []string
}

// Engine is the service-injection engine (C11), resolving capability
// providers through a host-service registry (C4).
type Engine struct {
	services *registry.ServiceRegistry
	log      log.Logger
	catalog  map[string]capability
}

// NewEngine constructs an injection engine backed by a host-service
// registry.
func NewEngine(services *registry.ServiceRegistry, logger log.Logger) *Engine {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	e := &Engine{services: services, log: logger}
	e.catalog = e.buildCatalog()
	return e
}

func (e *Engine) buildCatalog() map[string]capability {
	entries := []capability{
		{name: "LLMCapable", ifaceType: llmCapableType, methodName: "ConfigureLLMService", resolve: func(eng *Engine) (any, bool) {
			return eng.resolveByProtocol(llmCapableType)
		}},
		{name: "StorageCapable", ifaceType: storageCapableType, methodName: "ConfigureStorageService", resolve: func(eng *Engine) (any, bool) {
			return eng.resolveByProtocol(storageCapableType)
		}},
		{name: "CSVCapable", ifaceType: csvCapableType, methodName: "ConfigureCSVService", resolve: func(eng *Engine) (any, bool) {
			return eng.resolveStorageKind("csv")
		}},
		{name: "JSONCapable", ifaceType: jsonCapableType, methodName: "ConfigureJSONService", resolve: func(eng *Engine) (any, bool) {
			return eng.resolveStorageKind("json")
		}},
		{name: "FileCapable", ifaceType: fileCapableType, methodName: "ConfigureFileService", resolve: func(eng *Engine) (any, bool) {
			return eng.resolveStorageKind("file")
		}},
		{name: "VectorCapable", ifaceType: vectorCapableType, methodName: "ConfigureVectorService", resolve: func(eng *Engine) (any, bool) {
			return eng.resolveStorageKind("vector")
		}},
		{name: "MemoryCapable", ifaceType: memoryCapableType, methodName: "ConfigureMemoryService", resolve: func(eng *Engine) (any, bool) {
			return eng.resolveStorageKind("memory")
		}},
		{name: "PromptCapable", ifaceType: promptCapableType, methodName: "ConfigurePromptService", resolve: func(eng *Engine) (any, bool) {
			return eng.resolveByProtocol(promptCapableType)
		}},
		{name: "OrchestrationCapable", ifaceType: orchestrationCapableType, methodName: "ConfigureOrchestratorService", resolve: func(eng *Engine) (any, bool) {
			return eng.resolveByProtocol(orchestrationCapableType)
		}},
		{name: "BlobStorageCapable", ifaceType: blobStorageCapableType, methodName: "ConfigureBlobStorageService", resolve: func(eng *Engine) (any, bool) {
			return eng.resolveByProtocol(blobStorageCapableType)
		}},
	}

	catalog := make(map[string]capability, len(entries))
	for _, c := range entries {
		catalog[c.name] = c
	}
	return catalog
}

func (e *Engine) resolveByProtocol(ifaceType reflect.Type) (any, bool) {
	name, ok := e.services.GetProtocolImplementation(ifaceType)
	if !ok {
		return nil, false
	}
	return e.services.GetServiceProvider(name)
}

func (e *Engine) resolveStorageKind(kind string) (any, bool) {
	provider, ok := e.resolveByProtocol(storageCapableType)
	if !ok {
		return nil, false
	}
	manager, ok := provider.(StorageManager)
	if !ok {
		return nil, false
	}
	return manager.Get(kind)
}

func agentLabel(agent any) string {
	if n, ok := agent.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", agent)
}

// ConfigureCoreServices wires the five core capabilities (spec §4.11
// configure_core_services).
func (e *Engine) ConfigureCoreServices(agent any) (Summary, error) {
	return e.configure(agent, coreCapabilityNames)
}

// ConfigureStorageServices wires the five storage-specific capabilities
// plus the generic StorageCapable fallback (spec §4.11
// configure_storage_services).
func (e *Engine) ConfigureStorageServices(agent any) (Summary, error) {
	return e.configure(agent, storageCapabilityNames)
}

// ConfigureAllServices wires every capability in the catalog and returns a
// summary of what was configured vs. skipped (spec §4.11
// configure_all_services).
func (e *Engine) ConfigureAllServices(agent any) (Summary, error) {
	return e.configure(agent, allCapabilityNames)
}

// configure is strict mode (spec §4.11 default): an agent that implements
// a capability whose provider cannot be resolved fails the whole pass for
// that agent. A capability the agent doesn't implement is simply skipped.
func (e *Engine) configure(agent any, names []string) (Summary, error) {
	summary := Summary{}
	for _, name := range names {
		c, ok := e.catalog[name]
		if !ok {
			continue
		}
		if !c.agentImplements(agent) {
			summary.Skipped = append(summary.Skipped, name)
			continue
		}

		provider, ok := c.resolve(e)
		if !ok {
			return summary, fmt.Errorf("inject: agent %s implements %s but no provider is configured", agentLabel(agent), name)
		}

		if err := invoke(agent, c.methodName, provider); err != nil {
			return summary, fmt.Errorf("inject: configuring %s on agent %s: %w", name, agentLabel(agent), err)
		}
		summary.Configured = append(summary.Configured, name)
	}
	return summary, nil
}

// invoke calls agent's configuration method by name via reflection,
// recovering a panic into an error the way a try/except around the agent's
// configuration operation would (spec §4.11 "error envelope").
func invoke(agent any, methodName string, provider any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent panicked: %v", r)
		}
	}()
	method := reflect.ValueOf(agent).MethodByName(methodName)
	if !method.IsValid() {
		return fmt.Errorf("agent has no method %s", methodName)
	}
	method.Call([]reflect.Value{reflect.ValueOf(provider)})
	return nil
}
