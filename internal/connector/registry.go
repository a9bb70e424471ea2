package connector

import (
	"fmt"
	"sort"
	"sync"
)

// =============================================================================
// CONNECTOR REGISTRY
// Factories, metadata, mappers and translators indexed by connector name.
// Unknown names are configuration errors, never silent fallbacks.
// =============================================================================

// Registration bundles everything the engine needs to use a connector.
type Registration struct {
	Factory    Factory
	Metadata   Metadata
	Mapper     Mapper
	Translator Translator // optional
}

// Registry holds connector registrations indexed by name.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Registration
}

// NewRegistry creates an empty connector registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Registration)}
}

// Register adds a registration for the given connector name.
// Panics if the name is already registered or the registration is incomplete.
func (r *Registry) Register(name string, reg Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		panic(fmt.Sprintf("connector already registered: %s", name))
	}
	if reg.Factory == nil || reg.Mapper == nil {
		panic(fmt.Sprintf("connector %s: registration requires factory and mapper", name))
	}
	reg.Metadata.Name = name
	r.entries[name] = reg
}

// Get returns the registration for a connector name.
func (r *Registry) Get(name string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.entries[name]
	return reg, ok
}

// List returns all registered connector names, sorted for determinism.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create instantiates a connector by name.
func (r *Registry) Create(name string, config map[string]any) (Connector, error) {
	reg, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown connector: %s", name)
	}
	return reg.Factory(config)
}

// --- Default Global Registry ---

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the global connector registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds a registration to the default registry.
func Register(name string, reg Registration) {
	defaultRegistry.Register(name, reg)
}

// --- Config Helpers shared by connector packages ---

// GetString reads a string config value with a default.
func GetString(m map[string]any, key, defaultVal string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return defaultVal
}

// GetInt reads an int config value with a default.
func GetInt(m map[string]any, key string, defaultVal int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return defaultVal
}
