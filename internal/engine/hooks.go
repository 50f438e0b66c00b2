package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/workspace"
)

// Phase names a point in a run where hooks fire
type Phase string

const (
	BeforeAll Phase = "#before-all"
	AfterAll  Phase = "#after-all"
)

// HookFunc runs at a phase
type HookFunc func(ctx context.Context, ws *workspace.Workspace) error

type hook struct {
	name string
	fn   HookFunc
}

// Hooks holds phase hooks in registration order
type Hooks struct {
	hooks map[Phase][]hook
	mu    sync.Mutex
}

// NewHooks creates an empty hook set
func NewHooks() *Hooks {
	return &Hooks{hooks: make(map[Phase][]hook)}
}

// On registers fn at phase
func (h *Hooks) On(phase Phase, name string, fn HookFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks[phase] = append(h.hooks[phase], hook{name: name, fn: fn})
}

// Names lists hooks registered at phase
func (h *Hooks) Names(phase Phase) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.hooks[phase]))
	for _, hk := range h.hooks[phase] {
		names = append(names, hk.name)
	}
	return names
}

// Run calls every hook of phase, stopping at the first error
func (h *Hooks) Run(ctx context.Context, phase Phase, ws *workspace.Workspace) error {
	h.mu.Lock()
	hooks := append([]hook(nil), h.hooks[phase]...)
	h.mu.Unlock()

	for _, hk := range hooks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := hk.fn(ctx, ws); err != nil {
			return fmt.Errorf("%s hook %s: %w", phase, hk.name, err)
		}
	}
	return nil
}
