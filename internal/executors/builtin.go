package executors

import (
	"go.uber.org/zap"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/engine"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/templates"
)

// Options configures the builtin executors
type Options struct {
	Project      string
	DotConfigDir string
	Templates    *templates.Engine
	Logger       *zap.Logger
}

// Builtin returns a registry with every builtin executor
func Builtin(opts Options) (*engine.Executors, error) {
	return engine.NewExecutors(
		DependencyExecutor{},
		ScriptExecutor{},
		TSConfigExecutor{},
		NewDotConfigExecutor(opts.DotConfigDir),
		EnvExecutor{},
		ComposeExecutor{},
		ImportExecutor{},
		DecoratorExecutor{},
		NewTemplateExecutor(opts.Templates, opts.Project, opts.Logger),
	)
}
