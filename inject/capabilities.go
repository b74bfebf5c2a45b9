package inject

import "reflect"

// The fixed capability-interface catalog (spec §4.11). Each interface
// carries exactly one configuration method, discovered and invoked by
// reflection so the engine's dispatch table can treat all ten uniformly.

// LLMCapable is implemented by agents that need the singleton LLM service.
type LLMCapable interface {
	ConfigureLLMService(service any)
}

// StorageCapable is implemented by agents that need the storage manager,
// either directly or as the fallback when no more specific storage
// capability is declared.
type StorageCapable interface {
	ConfigureStorageService(service any)
}

// CSVCapable is implemented by agents that need the storage manager's csv
// backend specifically.
type CSVCapable interface {
	ConfigureCSVService(service any)
}

// JSONCapable is implemented by agents that need the storage manager's json
// backend specifically.
type JSONCapable interface {
	ConfigureJSONService(service any)
}

// FileCapable is implemented by agents that need the storage manager's file
// backend specifically.
type FileCapable interface {
	ConfigureFileService(service any)
}

// VectorCapable is implemented by agents that need the storage manager's
// vector backend specifically.
type VectorCapable interface {
	ConfigureVectorService(service any)
}

// MemoryCapable is implemented by agents that need the storage manager's
// memory backend specifically.
type MemoryCapable interface {
	ConfigureMemoryService(service any)
}

// PromptCapable is implemented by agents that need the prompt manager.
type PromptCapable interface {
	ConfigurePromptService(service any)
}

// OrchestrationCapable is implemented by agents that need the orchestrator
// (graph-agents embedding a subgraph, for instance).
type OrchestrationCapable interface {
	ConfigureOrchestratorService(service any)
}

// BlobStorageCapable is implemented by agents that need the blob service.
type BlobStorageCapable interface {
	ConfigureBlobStorageService(service any)
}

// StorageManager is the provider shape CSVCapable/JSONCapable/FileCapable/
// VectorCapable/MemoryCapable resolve through: storage_manager.get(kind)
// (spec §4.11 "provider source" column).
type StorageManager interface {
	Get(kind string) (any, bool)
}

var (
	llmCapableType          = reflect.TypeOf((*LLMCapable)(nil)).Elem()
	storageCapableType      = reflect.TypeOf((*StorageCapable)(nil)).Elem()
	csvCapableType          = reflect.TypeOf((*CSVCapable)(nil)).Elem()
	jsonCapableType         = reflect.TypeOf((*JSONCapable)(nil)).Elem()
	fileCapableType         = reflect.TypeOf((*FileCapable)(nil)).Elem()
	vectorCapableType       = reflect.TypeOf((*VectorCapable)(nil)).Elem()
	memoryCapableType       = reflect.TypeOf((*MemoryCapable)(nil)).Elem()
	promptCapableType       = reflect.TypeOf((*PromptCapable)(nil)).Elem()
	orchestrationCapableType = reflect.TypeOf((*OrchestrationCapable)(nil)).Elem()
	blobStorageCapableType  = reflect.TypeOf((*BlobStorageCapable)(nil)).Elem()
)

// catalogTypes pairs every capability-interface name with its reflect.Type,
// in the catalog's canonical order.
var catalogTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"LLMCapable", llmCapableType},
	{"StorageCapable", storageCapableType},
	{"CSVCapable", csvCapableType},
	{"JSONCapable", jsonCapableType},
	{"FileCapable", fileCapableType},
	{"VectorCapable", vectorCapableType},
	{"MemoryCapable", memoryCapableType},
	{"PromptCapable", promptCapableType},
	{"OrchestrationCapable", orchestrationCapableType},
	{"BlobStorageCapable", blobStorageCapableType},
}

// CapabilityNames reports which catalog interfaces v implements, by name.
// This is the dynamic counterpart of a registry's registration-time
// capability list: it inspects an actual constructed value rather than
// trusting declared metadata.
func CapabilityNames(v any) []string {
	t := reflect.TypeOf(v)
	if t == nil {
		return nil
	}
	var names []string
	for _, entry := range catalogTypes {
		if t.Implements(entry.typ) {
			names = append(names, entry.name)
		}
	}
	return names
}

// capability ties one interface in the catalog to the reflection metadata
// needed to detect it, invoke its configuration method, and resolve its
// provider.
type capability struct {
	name       string
	ifaceType  reflect.Type
	methodName string
	resolve    func(e *Engine) (any, bool)
}

func (c capability) agentImplements(agent any) bool {
	t := reflect.TypeOf(agent)
	return t != nil && t.Implements(c.ifaceType)
}

// coreCapabilityNames are the five interfaces configure_core_services
// iterates (spec §4.11).
var coreCapabilityNames = []string{
	"LLMCapable", "StorageCapable", "PromptCapable", "OrchestrationCapable", "BlobStorageCapable",
}

// storageCapabilityNames are the five storage-specific interfaces plus the
// generic StorageCapable fallback that configure_storage_services iterates.
var storageCapabilityNames = []string{
	"CSVCapable", "JSONCapable", "FileCapable", "VectorCapable", "MemoryCapable", "StorageCapable",
}

// allCapabilityNames is the deduplicated union configure_all_services uses.
var allCapabilityNames = []string{
	"LLMCapable", "StorageCapable", "PromptCapable", "OrchestrationCapable", "BlobStorageCapable",
	"CSVCapable", "JSONCapable", "FileCapable", "VectorCapable", "MemoryCapable",
}
