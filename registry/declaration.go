package registry

import (
	"fmt"
	"sort"
	"sync"
)

// ServiceDeclaration is metadata about one declared service, consulted
// without ever instantiating it (spec C5 / §3 ServiceDeclaration).
type ServiceDeclaration struct {
	ServiceName          string
	ClassPath            string
	RequiredDependencies map[string]bool
	Implements           map[string]bool
}

// CycleError reports a dependency cycle detected while resolving or
// ordering a set of services.
type CycleError struct {
	Services []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("registry: dependency cycle involving services %v", e.Services)
}

// DeclarationRegistry is the canonical list of known services, their
// dependencies, and the capability interfaces they implement (spec C5).
type DeclarationRegistry struct {
	mu           sync.RWMutex
	declarations map[string]ServiceDeclaration
}

// NewDeclarationRegistry creates an empty registry.
func NewDeclarationRegistry() *DeclarationRegistry {
	return &DeclarationRegistry{declarations: make(map[string]ServiceDeclaration)}
}

// Load replaces the registry's contents, validating that the dependency
// graph across all declarations is acyclic before committing (spec §3
// invariant). On a cycle, the registry is left unchanged and a *CycleError
// is returned.
func (d *DeclarationRegistry) Load(decls []ServiceDeclaration) error {
	byName := make(map[string]ServiceDeclaration, len(decls))
	for _, decl := range decls {
		byName[decl.ServiceName] = decl
	}

	deps := make(map[string][]string, len(byName))
	for name, decl := range byName {
		for dep := range decl.RequiredDependencies {
			deps[name] = append(deps[name], dep)
		}
	}
	if _, err := topoSort(allNames(byName), deps); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.declarations = byName
	return nil
}

// GetServiceDeclaration returns the declaration for a service, if known.
func (d *DeclarationRegistry) GetServiceDeclaration(name string) (ServiceDeclaration, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	decl, ok := d.declarations[name]
	return decl, ok
}

// ResolveServiceDependencies returns the transitive closure of seed and
// everything it (transitively) depends on.
func (d *DeclarationRegistry) ResolveServiceDependencies(seed map[string]bool) map[string]bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	closure := make(map[string]bool)
	var visit func(name string)
	visit = func(name string) {
		if closure[name] {
			return
		}
		closure[name] = true
		decl, ok := d.declarations[name]
		if !ok {
			return
		}
		for dep := range decl.RequiredDependencies {
			visit(dep)
		}
	}
	for name := range seed {
		visit(name)
	}
	return closure
}

// CalculateLoadOrder topologically sorts the given services (which must
// already be known declarations) using Kahn's algorithm, breaking ties
// lexicographically for determinism. It fails with a *CycleError listing
// the involved services when the subset is cyclic.
func (d *DeclarationRegistry) CalculateLoadOrder(services map[string]bool) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	deps := make(map[string][]string, len(services))
	for name := range services {
		decl, ok := d.declarations[name]
		if !ok {
			continue
		}
		for dep := range decl.RequiredDependencies {
			if services[dep] {
				deps[name] = append(deps[name], dep)
			}
		}
	}
	return topoSort(services, deps)
}

// GetProtocolImplementations builds {protocol_name: service_name} from
// every declaration's Implements set.
func (d *DeclarationRegistry) GetProtocolImplementations() map[string]string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string]string)
	names := make([]string, 0, len(d.declarations))
	for name := range d.declarations {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for protocol := range d.declarations[name].Implements {
			out[protocol] = name
		}
	}
	return out
}

func allNames(m map[string]ServiceDeclaration) map[string]bool {
	out := make(map[string]bool, len(m))
	for name := range m {
		out[name] = true
	}
	return out
}

// topoSort runs iterative Kahn's algorithm over `nodes` with edges
// node -> dependency given by deps[node]. Dependencies must run before
// dependents, so the returned order lists a dependency before anything
// that requires it. Ties are broken lexicographically.
func topoSort(nodes map[string]bool, deps map[string][]string) ([]string, error) {
	indegree := make(map[string]int, len(nodes))
	adj := make(map[string][]string) // dependency -> dependents

	for n := range nodes {
		indegree[n] = 0
	}
	for n, ds := range deps {
		for _, dep := range ds {
			if !nodes[dep] {
				continue
			}
			adj[dep] = append(adj[dep], n)
			indegree[n]++
		}
	}

	var ready []string
	for n := range nodes {
		if indegree[n] == 0 {
			ready = append(ready, n)
		}
	}
	sort.Strings(ready)

	var order []string
	for len(ready) > 0 {
		sort.Strings(ready)
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		nextReady := []string{}
		for _, dependent := range adj[n] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				nextReady = append(nextReady, dependent)
			}
		}
		sort.Strings(nextReady)
		ready = append(ready, nextReady...)
	}

	if len(order) != len(nodes) {
		var remaining []string
		for n, deg := range indegree {
			if deg > 0 {
				remaining = append(remaining, n)
			}
		}
		sort.Strings(remaining)
		return nil, &CycleError{Services: remaining}
	}
	return order, nil
}
