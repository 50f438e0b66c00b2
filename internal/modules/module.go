// Package modules defines scaffold modules: named units that declare a
// configuration schema, dependencies on other modules and the requests they
// make against shared project files.
package modules

import (
	"sort"
)

// Module is a scaffold module
type Module interface {
	Name() string
	Description() string
	DependsOn() []string
	Schema() *Schema
	Init(ctx *InitContext) error
}

// Required is implemented by modules that are always enabled
type Required interface {
	Required() bool
}

// IsRequired reports whether a module is always enabled
func IsRequired(m Module) bool {
	r, ok := m.(Required)
	return ok && r.Required()
}

// State is the desired state of a request target
type State string

const (
	StatePresent State = "present"
	StateAbsent  State = "absent"
)

// Payload is the typed body of a request. The request type selects the
// executor that handles it.
type Payload interface {
	RequestType() string
}

// Emitter receives the requests a module makes during Init
type Emitter func(module string, state State, payload Payload)

// InitContext is handed to Module.Init
type InitContext struct {
	module  string
	enabled bool
	config  Values
	others  map[string]Values
	project string
	stages  []string
	emit    Emitter
}

// InitOptions configures an InitContext
type InitOptions struct {
	Module  string
	Enabled bool
	Config  Values
	// Others holds the resolved config of every enabled module
	Others  map[string]Values
	Project string
	Stages  []string
	Emit    Emitter
}

// NewInitContext creates the context for one module Init call
func NewInitContext(opts InitOptions) *InitContext {
	config := opts.Config
	if config == nil {
		config = Values{}
	}
	return &InitContext{
		module:  opts.Module,
		enabled: opts.Enabled,
		config:  config,
		others:  opts.Others,
		project: opts.Project,
		stages:  append([]string(nil), opts.Stages...),
		emit:    opts.Emit,
	}
}

// Module returns the name of the module being initialized
func (c *InitContext) Module() string { return c.module }

// Enabled is false when the module is being turned off
func (c *InitContext) Enabled() bool { return c.enabled }

// Config returns the module's resolved configuration
func (c *InitContext) Config() Values { return c.config }

// ProjectName returns the project name from scaffold.yaml
func (c *InitContext) ProjectName() string { return c.project }

// Stages returns the deployment stages
func (c *InitContext) Stages() []string { return c.stages }

// ModuleConfig returns the configuration of another enabled module
func (c *InitContext) ModuleConfig(name string) (Values, bool) {
	v, ok := c.others[name]
	if !ok {
		return nil, false
	}
	copied := make(Values, len(v))
	for k, val := range v {
		copied[k] = val
	}
	return copied, true
}

// ModuleEnabled reports whether another module is enabled in this run
func (c *InitContext) ModuleEnabled(name string) bool {
	_, ok := c.others[name]
	return ok
}

// EnabledModules lists the modules enabled in this run
func (c *InitContext) EnabledModules() []string {
	names := make([]string, 0, len(c.others))
	for name := range c.others {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Request enqueues a request that follows the module state: present while
// the module is enabled, absent when it is being turned off.
func (c *InitContext) Request(p Payload) {
	state := StatePresent
	if !c.enabled {
		state = StateAbsent
	}
	c.emit(c.module, state, p)
}

// Remove enqueues an absent request regardless of the module state
func (c *InitContext) Remove(p Payload) {
	c.emit(c.module, StateAbsent, p)
}

// RequestIf enqueues p as present when cond holds and the module is enabled,
// absent otherwise. Used for provider switches.
func (c *InitContext) RequestIf(cond bool, p Payload) {
	if cond {
		c.Request(p)
		return
	}
	c.Remove(p)
}
