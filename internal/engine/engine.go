package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/graph"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/modules"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/workspace"
)

// ModuleSource provides the modules the engine can run
type ModuleSource interface {
	Get(name string) (modules.Module, error)
	List() []modules.Module
}

// Options configures an Engine
type Options struct {
	Modules   ModuleSource
	Executors *Executors
	Hooks     *Hooks
	Logger    *zap.Logger
}

// Engine runs scaffold modules against a workspace
type Engine struct {
	modules   ModuleSource
	executors *Executors
	hooks     *Hooks
	logger    *zap.Logger
}

// New creates an engine. Executors implementing HookRegistrar get to
// register their hooks.
func New(opts Options) *Engine {
	hooks := opts.Hooks
	if hooks == nil {
		hooks = NewHooks()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	executors := opts.Executors
	if executors == nil {
		executors, _ = NewExecutors()
	}

	for _, ex := range executors.List() {
		if hr, ok := ex.(HookRegistrar); ok {
			hr.RegisterHooks(hooks)
		}
	}

	return &Engine{
		modules:   opts.Modules,
		executors: executors,
		hooks:     hooks,
		logger:    logger,
	}
}

// Hooks returns the engine's phase hooks
func (e *Engine) Hooks() *Hooks {
	return e.hooks
}

// Executors returns the executor registry
func (e *Engine) Executors() *Executors {
	return e.executors
}

// Plan is the input of one run
type Plan struct {
	Project string
	Stages  []string
	// Enabled maps explicitly enabled modules to their raw configuration
	Enabled map[string]map[string]interface{}
	// Previous maps the modules applied by the last run to their configuration
	Previous map[string]map[string]interface{}
	DryRun   bool
}

// ModuleRun describes how a module took part in a run
type ModuleRun struct {
	Name     string         `json:"name"`
	Enabled  bool           `json:"enabled"`
	Implicit bool           `json:"implicit,omitempty"`
	Config   modules.Values `json:"config,omitempty"`
}

// Result is the outcome of a run
type Result struct {
	RunID      string                 `json:"run_id"`
	DryRun     bool                   `json:"dry_run"`
	Modules    []ModuleRun            `json:"modules"`
	Requests   int                    `json:"requests"`
	Changes    []Change               `json:"changes"`
	Files      []workspace.FileChange `json:"-"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
}

// Enabled returns the resolved config of every enabled module
func (r *Result) Enabled() map[string]modules.Values {
	enabled := make(map[string]modules.Values)
	for _, m := range r.Modules {
		if m.Enabled {
			enabled[m.Name] = m.Config
		}
	}
	return enabled
}

// ChangedFiles lists the paths of changed files
func (r *Result) ChangedFiles() []string {
	paths := make([]string, 0, len(r.Files))
	for _, f := range r.Files {
		paths = append(paths, f.Path)
	}
	return paths
}

type selected struct {
	module   modules.Module
	enabled  bool
	implicit bool
	config   modules.Values
}

// Resolve validates a plan and returns the modules taking part in dependency
// order, without running them
func (e *Engine) Resolve(plan Plan) ([]ModuleRun, error) {
	selection, err := e.resolve(plan)
	if err != nil {
		return nil, err
	}
	runs := make([]ModuleRun, len(selection))
	for i, s := range selection {
		runs[i] = ModuleRun{Name: s.module.Name(), Enabled: s.enabled, Implicit: s.implicit, Config: s.config}
	}
	return runs, nil
}

func (e *Engine) resolve(plan Plan) ([]selected, error) {
	g := graph.New()
	for _, m := range e.modules.List() {
		g.AddNode(m.Name(), m.DependsOn())
	}
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("failed to order modules: %w", err)
	}

	explicit := make(map[string]bool)
	var roots []string
	for name := range plan.Enabled {
		if _, err := e.modules.Get(name); err != nil {
			return nil, err
		}
		explicit[name] = true
		roots = append(roots, name)
	}
	for _, m := range e.modules.List() {
		if modules.IsRequired(m) && !explicit[m.Name()] {
			roots = append(roots, m.Name())
		}
	}
	sort.Strings(roots)

	closure, err := g.Closure(roots)
	if err != nil {
		return nil, err
	}
	active := make(map[string]bool, len(closure))
	for _, name := range closure {
		active[name] = true
	}

	for name := range plan.Previous {
		if !g.Has(name) {
			e.logger.Warn("previously applied module no longer exists", zap.String("module", name))
		}
	}

	var errs *multierror.Error
	var selection []selected
	for _, name := range order {
		m, _ := e.modules.Get(name)

		if active[name] {
			values, err := m.Schema().Resolve(name, plan.Enabled[name])
			if err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			implicit := !explicit[name] && !modules.IsRequired(m)
			if implicit {
				e.logger.Info("enabling dependency", zap.String("module", name), zap.Strings("required_by", g.Dependents(name)))
			}
			selection = append(selection, selected{module: m, enabled: true, implicit: implicit, config: values})
			continue
		}

		raw, ok := plan.Previous[name]
		if !ok {
			continue
		}
		values, err := m.Schema().Resolve(name, raw)
		if err != nil {
			e.logger.Warn("previous configuration no longer valid", zap.String("module", name), zap.Error(err))
			values = modules.Values(raw)
		}
		selection = append(selection, selected{module: m, enabled: false, config: values})
	}

	if errs != nil {
		if len(errs.Errors) == 1 {
			return nil, errs.Errors[0]
		}
		return nil, errs
	}
	return selection, nil
}

// Run resolves the plan, initializes every module, executes the resulting
// requests against ws and persists the workspace at #after-all. Nothing is
// written when the plan is a dry run or when any phase before persistence fails.
func (e *Engine) Run(ctx context.Context, ws *workspace.Workspace, plan Plan) (*Result, error) {
	result := &Result{
		RunID:     uuid.NewString(),
		DryRun:    plan.DryRun,
		StartedAt: time.Now(),
	}
	logger := e.logger.With(zap.String("run", result.RunID))

	// resolve
	selection, err := e.resolve(plan)
	if err != nil {
		return result, err
	}
	others := make(map[string]modules.Values)
	for _, s := range selection {
		result.Modules = append(result.Modules, ModuleRun{
			Name:     s.module.Name(),
			Enabled:  s.enabled,
			Implicit: s.implicit,
			Config:   s.config,
		})
		if s.enabled {
			others[s.module.Name()] = s.config
		}
	}

	// init
	queue := NewQueue()
	for i, s := range selection {
		order := i
		ictx := modules.NewInitContext(modules.InitOptions{
			Module:  s.module.Name(),
			Enabled: s.enabled,
			Config:  s.config,
			Others:  others,
			Project: plan.Project,
			Stages:  plan.Stages,
			Emit: func(module string, state modules.State, p modules.Payload) {
				queue.Push(&Request{
					Type:    p.RequestType(),
					Module:  module,
					State:   state,
					Payload: p,
					order:   order,
				})
			},
		})
		if err := s.module.Init(ictx); err != nil {
			return result, &ModuleError{Module: s.module.Name(), Err: err}
		}
		logger.Debug("module initialized", zap.String("module", s.module.Name()), zap.Bool("enabled", s.enabled))
	}

	requests, err := queue.Resolve(e.executors)
	if err != nil {
		return result, err
	}
	result.Requests = len(requests)
	logger.Debug("requests resolved", zap.Int("emitted", queue.Len()), zap.Int("resolved", len(requests)))

	if err := e.hooks.Run(ctx, BeforeAll, ws); err != nil {
		return result, err
	}

	// execute
	for _, req := range requests {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		ex, _ := e.executors.Get(req.Type)

		needed, err := ex.Check(ctx, ws, req)
		if err != nil {
			return result, &ExecutorError{Request: req, Phase: "check", Err: err}
		}
		if !needed {
			logger.Debug("up to date", zap.String("type", req.Type), zap.String("key", req.key))
			continue
		}

		change, err := ex.Apply(ctx, ws, req)
		if err != nil {
			return result, &ExecutorError{Request: req, Phase: "apply", Err: err}
		}
		change.Type = req.Type
		change.Key = req.key
		change.Module = req.Module
		change.State = string(req.State)
		result.Changes = append(result.Changes, change)
		logger.Info(change.Description,
			zap.String("type", req.Type),
			zap.String("module", req.Module),
			zap.String("state", string(req.State)))
	}

	// #after-all: hooks, then mutators persist
	if err := e.hooks.Run(ctx, AfterAll, ws); err != nil {
		return result, err
	}
	files, err := ws.Flush(plan.DryRun)
	result.Files = files
	if err != nil {
		return result, fmt.Errorf("failed to write project files: %w", err)
	}

	result.FinishedAt = time.Now()
	logger.Info("run finished",
		zap.Bool("dry_run", plan.DryRun),
		zap.Int("changes", len(result.Changes)),
		zap.Int("files", len(files)),
		zap.Duration("took", result.FinishedAt.Sub(result.StartedAt)))

	return result, nil
}
