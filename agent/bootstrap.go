package agent

import "github.com/agentmap/agentmap-core/registry"

// builtin is one built-in agent type's registration triple.
type builtin struct {
	agentType    string
	constructor  registry.AgentConstructor
	capabilities []string
}

// builtins is the fixed list of built-in agent types registered at
// application bootstrap (spec §3 "agent_type ... empty -> default", §4.3
// "populated once at startup ... registers a fixed list of built-ins").
var builtins = []builtin{
	{registry.DefaultAgentType, NewDefaultAgent, nil},
	{"echo", NewEchoAgent, nil},
	{"branch", NewBranchAgent, nil},
	{"llm", NewLLMAgent, []string{"LLMCapable"}},
	{"prompt", NewPromptAgent, []string{"PromptCapable"}},
	{"csv", NewCSVAgent, []string{"CSVCapable"}},
	{"json", NewJSONAgent, []string{"JSONCapable"}},
	{"file", NewFileAgent, []string{"FileCapable"}},
	{"vector", NewVectorAgent, []string{"VectorCapable"}},
	{"memory", NewMemoryAgent, []string{"MemoryCapable"}},
	{"storage", NewGenericStorageAgent, []string{"StorageCapable"}},
	{"blob_storage", NewBlobStorageAgent, []string{"BlobStorageCapable"}},
	{"graph", NewGraphAgent, []string{"OrchestrationCapable"}},
	{"human", NewHumanAgent, nil},
}

// RegisterBuiltins registers every built-in agent type's constructor,
// class reference, and static capability list into reg (spec §4.3's
// bootstrap step (i)).
func RegisterBuiltins(reg *registry.AgentTypeRegistry) {
	for _, b := range builtins {
		classRef := registry.BuiltinNamespace + "/" + b.agentType
		reg.Register(b.agentType, classRef, b.constructor)
		if b.capabilities != nil {
			reg.SetCapabilities(b.agentType, b.capabilities)
		}
	}
}
