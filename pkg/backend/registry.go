// Package backend describes the storage backends a mount can use and checks
// whether a configured backend is reachable.
package backend

import (
	"context"
	"fmt"
	"net"
	"slices"
	"sync"
)

// Dialer opens network connections for reachability checks.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// CheckFunc reports whether a backend configured with options can be reached.
// It returns nil when the backend answered.
type CheckFunc func(ctx context.Context, dialer Dialer, options map[string]any) error

// EndpointFunc names the remote endpoint of a configured backend, for
// example "nas.example.com:445". Checks against the same endpoint share a
// rate limit.
type EndpointFunc func(options map[string]any) string

// Definition describes one backend class.
type Definition struct {
	// Class is the identifier stored in mount configs (e.g. "smb").
	Class string

	// Name is a human readable label.
	Name string

	// Options lists the option keys the backend understands.
	Options []string

	// PersonalAllowed allows users to configure the backend for their own
	// personal mounts.
	PersonalAllowed bool

	// Check probes reachability. Nil means the backend is always reported
	// as reachable.
	Check CheckFunc

	// Endpoint keys the rate limit. Nil limits per class.
	Endpoint EndpointFunc
}

// Registry holds the known backend definitions. It implements
// mount.BackendRegistry.
//
// Thread safety:
// All methods are safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry creates a registry holding defs. Later duplicates replace
// earlier ones.
func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	for _, def := range defs {
		r.defs[def.Class] = def
	}
	return r
}

// DefaultRegistry returns a registry with every built-in backend.
func DefaultRegistry() *Registry {
	return NewRegistry(Builtins()...)
}

// Register adds def. Registering an existing class is an error.
func (r *Registry) Register(def Definition) error {
	if def.Class == "" {
		return fmt.Errorf("backend class must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Class]; exists {
		return fmt.Errorf("backend %q already registered", def.Class)
	}
	r.defs[def.Class] = def
	return nil
}

// Get returns the definition of class.
func (r *Registry) Get(class string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[class]
	return def, ok
}

// Lookup reports whether class is known and whether personal mounts may use it.
func (r *Registry) Lookup(class string) (personalAllowed bool, ok bool) {
	def, ok := r.Get(class)
	return def.PersonalAllowed, ok
}

// Classes returns the registered classes in lexical order.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	classes := make([]string, 0, len(r.defs))
	for class := range r.defs {
		classes = append(classes, class)
	}
	slices.Sort(classes)
	return classes
}

// Restrict returns a registry limited to the given classes. Unknown names
// are reported as an error.
func (r *Registry) Restrict(classes []string) (*Registry, error) {
	restricted := NewRegistry()
	for _, class := range classes {
		def, ok := r.Get(class)
		if !ok {
			return nil, fmt.Errorf("unknown backend %q (known: %v)", class, r.Classes())
		}
		restricted.defs[class] = def
	}
	return restricted, nil
}

// SetPersonalAllowed overrides whether personal mounts may use class.
func (r *Registry) SetPersonalAllowed(class string, allowed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	def, ok := r.defs[class]
	if !ok {
		return fmt.Errorf("unknown backend %q", class)
	}
	def.PersonalAllowed = allowed
	r.defs[class] = def
	return nil
}
