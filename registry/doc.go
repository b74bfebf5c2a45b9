// Package registry implements AgentMap's four process-wide registries:
//
//   - FeatureRegistry (C2): which optional provider families (llm, storage)
//     are enabled, and which of their providers validate successfully.
//   - AgentTypeRegistry (C3): agent-type name -> constructor.
//   - ServiceRegistry (C4): host-extension services indexed by name and by
//     the capability interfaces they implement.
//   - DeclarationRegistry (C5): the canonical list of known services, their
//     dependencies, and the capability interfaces they implement.
//
// Each registry is constructed explicitly (never accessed through a package
// global) so callers can hold one instance per process and pass it down,
// per spec §9's "global mutable state" design note.
package registry
