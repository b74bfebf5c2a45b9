package registry

import (
	"maps"
	"reflect"
	"sync"

	"github.com/agentmap/agentmap-core/log"
)

// ServiceRegistration records everything known about one registered
// provider: the provider value itself (a class, factory callable, or
// constructed instance -- `any` on purpose), which capability interfaces it
// implements, and free-form metadata.
type ServiceRegistration struct {
	Name      string
	Provider  any
	Protocols map[reflect.Type]bool
	Metadata  map[string]any
}

// ServiceRegistry is the host-extension service registry (spec C4),
// indexed both by service name and by capability interface.
type ServiceRegistry struct {
	mu         sync.Mutex
	log        log.Logger
	byName     map[string]*ServiceRegistration
	byProtocol map[reflect.Type]string
}

// NewServiceRegistry creates an empty registry.
func NewServiceRegistry(logger log.Logger) *ServiceRegistry {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &ServiceRegistry{
		log:        logger,
		byName:     make(map[string]*ServiceRegistration),
		byProtocol: make(map[reflect.Type]string),
	}
}

// RegisterServiceProvider registers a provider under a name, optionally
// declaring the capability interfaces it implements and attaching metadata.
// Invalid input (empty name) is logged as a warning and rejected without
// raising, per spec §4.4 failure handling.
func (r *ServiceRegistry) RegisterServiceProvider(name string, provider any, protocols []reflect.Type, metadata map[string]any) bool {
	if name == "" {
		r.log.Warn("registry: rejected service registration with empty name")
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	protoSet := make(map[reflect.Type]bool, len(protocols))
	for _, p := range protocols {
		if !isCapabilityInterface(p) {
			r.log.Warn("registry: rejected invalid protocol %v for service %s", p, name)
			continue
		}
		protoSet[p] = true
	}

	reg := &ServiceRegistration{
		Name:      name,
		Provider:  provider,
		Protocols: protoSet,
		Metadata:  maps.Clone(metadata),
	}
	r.byName[name] = reg

	for p := range protoSet {
		r.byProtocol[p] = name
	}
	return true
}

// RegisterProtocolImplementation re-points a capability interface at a
// different already-registered service. Both services keep the protocol in
// their own capability list until explicitly unregistered.
func (r *ServiceRegistry) RegisterProtocolImplementation(protocol reflect.Type, serviceName string) bool {
	if !isCapabilityInterface(protocol) {
		r.log.Warn("registry: rejected invalid protocol %v", protocol)
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.byName[serviceName]
	if !ok {
		r.log.Warn("registry: cannot register protocol %v for unregistered service %s", protocol, serviceName)
		return false
	}

	if reg.Protocols == nil {
		reg.Protocols = make(map[reflect.Type]bool)
	}
	reg.Protocols[protocol] = true
	r.byProtocol[protocol] = serviceName
	return true
}

// GetServiceProvider looks up a provider by service name.
func (r *ServiceRegistry) GetServiceProvider(name string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return reg.Provider, true
}

// GetProtocolImplementation returns the service name currently resolving a
// capability interface.
func (r *ServiceRegistry) GetProtocolImplementation(protocol reflect.Type) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, ok := r.byProtocol[protocol]
	return name, ok
}

// DiscoverServicesByProtocol returns every service whose capability list
// includes the given protocol, regardless of which one is currently the
// active resolution in byProtocol.
func (r *ServiceRegistry) DiscoverServicesByProtocol(protocol reflect.Type) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for name, reg := range r.byName {
		if reg.Protocols[protocol] {
			out = append(out, name)
		}
	}
	return out
}

// UnregisterService removes a service from both indexes atomically: every
// protocol mapping pointing at it is purged too.
func (r *ServiceRegistry) UnregisterService(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.byName[name]
	if !ok {
		return false
	}
	delete(r.byName, name)
	for p, owner := range r.byProtocol {
		if owner == name {
			delete(r.byProtocol, p)
		}
	}
	_ = reg
	return true
}

// ClearRegistry empties both indexes.
func (r *ServiceRegistry) ClearRegistry() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName = make(map[string]*ServiceRegistration)
	r.byProtocol = make(map[reflect.Type]string)
}

// RegistrySummary reports aggregate counts for diagnostics.
type RegistrySummary struct {
	TotalServices  int
	TotalProtocols int
}

// GetRegistrySummary returns aggregate registration counts.
func (r *ServiceRegistry) GetRegistrySummary() RegistrySummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RegistrySummary{
		TotalServices:  len(r.byName),
		TotalProtocols: len(r.byProtocol),
	}
}

// ValidateServiceProvider reports whether a registered provider is present
// and non-nil.
func (r *ServiceRegistry) ValidateServiceProvider(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.byName[name]
	return ok && reg.Provider != nil
}

func isCapabilityInterface(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.Interface
}
