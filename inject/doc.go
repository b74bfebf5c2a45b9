// Package inject implements the service-injection engine (C11): a fixed
// catalog of capability interfaces, each with one configuration method, and
// the logic that wires a constructed agent to the provider backing whatever
// capability it implements.
//
// Capability detection happens through reflect.Type.Implements against the
// agent's concrete type — the "runtime type-assertion" approach spec §9
// calls out for Go — so an agent opts in to a capability simply by
// implementing its configuration method; there is no registration step on
// the agent side.
//
// The engine runs in strict mode: an agent implementing a capability whose
// provider cannot be resolved fails the whole configuration pass for that
// agent, rather than leaving it partially wired.
package inject
