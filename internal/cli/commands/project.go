package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/app"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/cli/config"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/history"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/logging"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/modules"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/modules/builtin"
)

// project is a scaffold project opened from --dir
type project struct {
	root     string
	fs       afero.Fs
	config   *config.Config
	registry *modules.Registry
	logger   *zap.Logger
	journal  *history.Store
}

// openProject finds the project holding --dir and loads scaffold.yaml
func openProject(cmd *cobra.Command, opts *globalOptions) (*project, error) {
	root, err := config.FindRoot(opts.dir)
	if err != nil {
		return nil, err
	}
	return loadProject(cmd, opts, root)
}

func loadProject(cmd *cobra.Command, opts *globalOptions, root string) (*project, error) {
	fs := afero.NewBasePathFs(afero.NewOsFs(), root)
	cfg, err := config.Load(fs)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger, err := logging.New(level, cfg.Log.Format, !opts.noColor && !color.NoColor, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	return &project{
		root:     root,
		fs:       fs,
		config:   cfg,
		registry: builtin.Registry(),
		logger:   logger,
	}, nil
}

// openJournal opens the run history. Commands that only record runs keep
// going without it.
func (p *project) openJournal(ctx context.Context) error {
	path := p.config.HistoryPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.root, path)
	}
	store, err := history.Open(ctx, path)
	if err != nil {
		return err
	}
	p.journal = store
	return nil
}

func (p *project) service(opts app.Options) (*app.Service, error) {
	opts.Fs = p.fs
	opts.Config = p.config
	opts.Registry = p.registry
	opts.Logger = p.logger
	if p.journal != nil {
		opts.Journal = p.journal
	}
	return app.New(opts)
}

func (p *project) Close() {
	if p.journal != nil {
		if err := p.journal.Close(); err != nil {
			p.logger.Warn("failed to close history", zap.Error(err))
		}
	}
	_ = p.logger.Sync()
}

var projectNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// validateProjectName accepts names usable as a package.json name and a
// directory name
func validateProjectName(name string) error {
	name = strings.TrimSpace(name)
	if len(name) == 0 || len(name) > 100 {
		return fmt.Errorf("project name must be 1-100 characters")
	}
	if !projectNamePattern.MatchString(name) {
		return fmt.Errorf("project name can only contain letters, numbers, dashes, and underscores")
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
