package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/workspace"
)

// Executor converges the targets of one request type. Check must not mutate
// the workspace; Apply is only called when Check reported a change.
type Executor interface {
	Type() string
	Priority() int
	Key(req *Request) (string, error)
	Check(ctx context.Context, ws *workspace.Workspace, req *Request) (bool, error)
	Apply(ctx context.Context, ws *workspace.Workspace, req *Request) (Change, error)
}

// HookRegistrar is implemented by executors that need phase hooks
type HookRegistrar interface {
	RegisterHooks(h *Hooks)
}

// Change is one applied request
type Change struct {
	Type        string `json:"type"`
	Key         string `json:"key"`
	Module      string `json:"module"`
	State       string `json:"state"`
	Description string `json:"description"`
}

// Executors maps request types to executors
type Executors struct {
	executors map[string]Executor
	mutex     sync.RWMutex
}

// NewExecutors creates an executor registry
func NewExecutors(executors ...Executor) (*Executors, error) {
	r := &Executors{executors: make(map[string]Executor)}
	for _, ex := range executors {
		if err := r.Register(ex); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an executor
func (r *Executors) Register(ex Executor) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.executors[ex.Type()]; exists {
		return fmt.Errorf("executor for %s already registered", ex.Type())
	}
	r.executors[ex.Type()] = ex
	return nil
}

// Get returns the executor for a request type
func (r *Executors) Get(requestType string) (Executor, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ex, ok := r.executors[requestType]
	return ex, ok
}

// Types lists the registered request types
func (r *Executors) Types() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	types := make([]string, 0, len(r.executors))
	for t := range r.executors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// List returns executors sorted by type
func (r *Executors) List() []Executor {
	types := r.Types()
	list := make([]Executor, 0, len(types))
	for _, t := range types {
		ex, _ := r.Get(t)
		list = append(list, ex)
	}
	return list
}
