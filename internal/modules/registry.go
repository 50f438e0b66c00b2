package modules

import (
	"fmt"
	"sort"
	"sync"
)

// NotFoundError is returned for an unknown module name
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("module %s not found", e.Name)
}

// Registry manages available scaffold modules
type Registry struct {
	modules map[string]Module
	mutex   sync.RWMutex
}

// NewRegistry creates a new module registry
func NewRegistry() *Registry {
	return &Registry{
		modules: make(map[string]Module),
	}
}

// Register registers a module in the registry
func (r *Registry) Register(m Module) error {
	if m.Name() == "" {
		return fmt.Errorf("module name is required")
	}
	if err := m.Schema().Validate(); err != nil {
		return fmt.Errorf("invalid schema for module %s: %w", m.Name(), err)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.modules[m.Name()]; exists {
		return fmt.Errorf("module %s already registered", m.Name())
	}

	r.modules[m.Name()] = m
	return nil
}

// MustRegister registers modules and panics on error
func (r *Registry) MustRegister(ms ...Module) *Registry {
	for _, m := range ms {
		if err := r.Register(m); err != nil {
			panic(err)
		}
	}
	return r
}

// Get retrieves a module by name
func (r *Registry) Get(name string) (Module, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	m, exists := r.modules[name]
	if !exists {
		return nil, &NotFoundError{Name: name}
	}

	return m, nil
}

// List returns all registered modules sorted by name
func (r *Registry) List() []Module {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	modules := make([]Module, 0, len(r.modules))
	for _, m := range r.modules {
		modules = append(modules, m)
	}
	sort.Slice(modules, func(i, j int) bool {
		return modules[i].Name() < modules[j].Name()
	})

	return modules
}

// Names returns the sorted module names
func (r *Registry) Names() []string {
	list := r.List()
	names := make([]string, len(list))
	for i, m := range list {
		names[i] = m.Name()
	}
	return names
}

// Exists checks if a module exists
func (r *Registry) Exists(name string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, exists := r.modules[name]
	return exists
}

// Unregister removes a module from the registry
func (r *Registry) Unregister(name string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.modules[name]; !exists {
		return &NotFoundError{Name: name}
	}

	delete(r.modules, name)
	return nil
}
