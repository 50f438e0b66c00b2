// Package app runs scaffold operations against one project: it loads the
// applied state, runs the engine, and records the outcome.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/cli/config"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/diff"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/engine"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/executors"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/history"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/lock"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/modules"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/state"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/templates"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/workspace"
)

// Journal records runs
type Journal interface {
	Record(ctx context.Context, run *history.Run) error
	List(ctx context.Context, limit int) ([]history.Run, error)
	Get(ctx context.Context, id string) (*history.Run, error)
}

// Options configures a Service
type Options struct {
	// Fs is rooted at the project directory
	Fs       afero.Fs
	Config   *config.Config
	Registry *modules.Registry
	Logger   *zap.Logger
	// Journal is optional
	Journal Journal
	// Locker defaults to an in-process locker
	Locker lock.Locker
	// LockWait is how long Apply waits for a busy project
	LockWait time.Duration
}

// Service runs scaffold operations on a project
type Service struct {
	fs       afero.Fs
	config   *config.Config
	registry *modules.Registry
	engine   *engine.Engine
	logger   *zap.Logger
	journal  Journal
	locker   lock.Locker
	lockWait time.Duration
}

// New creates a service
func New(opts Options) (*Service, error) {
	if opts.Fs == nil || opts.Config == nil || opts.Registry == nil {
		return nil, fmt.Errorf("fs, config and registry are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	locker := opts.Locker
	if locker == nil {
		locker = lock.NewMemoryLocker()
	}

	ex, err := executors.Builtin(executors.Options{
		Project:      opts.Config.ProjectName,
		DotConfigDir: opts.Config.DotConfigDir,
		Templates:    templates.NewEngine(),
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	return &Service{
		fs:       opts.Fs,
		config:   opts.Config,
		registry: opts.Registry,
		engine:   engine.New(engine.Options{Modules: opts.Registry, Executors: ex, Logger: logger}),
		logger:   logger,
		journal:  opts.Journal,
		locker:   locker,
		lockWait: opts.LockWait,
	}, nil
}

// Config returns the project configuration
func (s *Service) Config() *config.Config {
	return s.config
}

// Registry returns the module registry
func (s *Service) Registry() *modules.Registry {
	return s.registry
}

// Journal returns the run journal, or nil
func (s *Service) Journal() Journal {
	return s.journal
}

// Request selects the modules of a run. Nil Modules uses scaffold.yaml.
type Request struct {
	Modules map[string]map[string]interface{}
}

// Report is the outcome of Plan or Apply
type Report struct {
	Result *engine.Result `json:"result"`
	Diffs  []*diff.Result `json:"-"`
}

// Summaries lists one line per changed file
func (r *Report) Summaries() []string {
	out := make([]string, 0, len(r.Diffs))
	for _, d := range r.Diffs {
		out = append(out, d.Summary())
	}
	return out
}

func (s *Service) plan(req Request, st *state.State, dryRun bool) engine.Plan {
	enabled := req.Modules
	if enabled == nil {
		enabled = s.config.Modules
	}
	project := s.config.ProjectName
	if project == "" {
		project = "app"
	}
	return engine.Plan{
		Project:  project,
		Stages:   s.config.Stages,
		Enabled:  enabled,
		Previous: st.Previous(),
		DryRun:   dryRun,
	}
}

// Resolve reports which modules a request would run without touching files
func (s *Service) Resolve(req Request) ([]engine.ModuleRun, error) {
	st, err := state.Load(s.fs)
	if err != nil {
		return nil, err
	}
	return s.engine.Resolve(s.plan(req, st, true))
}

// Plan runs the engine without writing anything
func (s *Service) Plan(ctx context.Context, req Request) (*Report, error) {
	st, err := state.Load(s.fs)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, "plan", s.plan(req, st, true), nil)
}

// Apply runs the engine, writes the project files and records the new state.
// Concurrent applies on one project are serialized through the locker.
func (s *Service) Apply(ctx context.Context, req Request) (*Report, error) {
	lockCtx := ctx
	if s.lockWait > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, s.lockWait)
		defer cancel()
	}
	release, err := lock.Lock(lockCtx, s.locker, s.lockKey(), 0)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("%w: gave up after %s", lock.ErrLocked, s.lockWait)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock project %s: %w", s.lockKey(), err)
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			s.logger.Warn("failed to release project lock", zap.Error(err))
		}
	}()

	st, err := state.Load(s.fs)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, "apply", s.plan(req, st, false), st)
}

func (s *Service) lockKey() string {
	if s.config.ProjectName == "" {
		return "project"
	}
	return s.config.ProjectName
}

func (s *Service) run(ctx context.Context, command string, plan engine.Plan, st *state.State) (*Report, error) {
	ws := workspace.New(s.fs)
	result, runErr := s.engine.Run(ctx, ws, plan)

	report := &Report{Result: result}
	if result != nil {
		for _, f := range result.Files {
			d := diff.Diff(f.Path, f.Before, f.After)
			d.Created, d.Deleted = f.Created, f.Deleted
			report.Diffs = append(report.Diffs, d)
		}
	}

	if runErr == nil && st != nil {
		st.Record(result)
		if err := st.Save(s.fs); err != nil {
			runErr = err
		}
	}

	if s.journal != nil {
		run := history.FromResult(command, result, runErr)
		if err := s.journal.Record(ctx, &run); err != nil {
			s.logger.Warn("failed to record run", zap.Error(err))
		}
	}
	if runErr != nil {
		return report, runErr
	}
	return report, nil
}

// Status describes a project compared with its configuration
type Status struct {
	Enabled  []string      `json:"enabled"`
	Applied  []string      `json:"applied"`
	Pending  []string      `json:"pending"`
	Removed  []string      `json:"removed"`
	Changes  int           `json:"changes"`
	Drift    []state.Drift `json:"drift"`
	LastRun  *state.Run    `json:"last_run,omitempty"`
	UpToDate bool          `json:"up_to_date"`
}

// Status compares scaffold.yaml, the applied state and the files on disk.
// Pending lists modules that an apply would add, including implicit
// dependencies. Removed lists modules it would turn off. Changes counts the
// requests an apply would execute.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	st, err := state.Load(s.fs)
	if err != nil {
		return nil, err
	}
	result, err := s.engine.Run(ctx, workspace.New(s.fs), s.plan(Request{}, st, true))
	if err != nil {
		return nil, err
	}

	status := &Status{Applied: st.ModuleNames(), LastRun: st.LastRun, Changes: len(result.Changes)}
	for _, r := range result.Modules {
		if !r.Enabled {
			status.Removed = append(status.Removed, r.Name)
			continue
		}
		status.Enabled = append(status.Enabled, r.Name)
		if _, ok := st.Modules[r.Name]; !ok {
			status.Pending = append(status.Pending, r.Name)
		}
	}
	sort.Strings(status.Enabled)
	sort.Strings(status.Removed)

	status.Drift, err = st.Drift(workspace.New(s.fs))
	if err != nil {
		return nil, err
	}
	status.UpToDate = status.Changes == 0 && len(status.Pending) == 0 && len(status.Removed) == 0
	return status, nil
}
