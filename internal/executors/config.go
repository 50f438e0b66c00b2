package executors

import (
	"context"
	"fmt"
	"path"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/engine"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/mutate/jsonfile"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/mutate/yamlfile"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/workspace"
)

// TSConfigExecutor manages compilerOptions.paths aliases
type TSConfigExecutor struct{}

func (TSConfigExecutor) Type() string  { return TypeTSConfigPath }
func (TSConfigExecutor) Priority() int { return 30 }

func tsconfigFile(p TSConfigPath) string {
	if p.File == "" {
		return "tsconfig.json"
	}
	return p.File
}

func (TSConfigExecutor) Key(req *engine.Request) (string, error) {
	p, ok := req.Payload.(TSConfigPath)
	if !ok {
		return "", fmt.Errorf("unexpected payload %T", req.Payload)
	}
	return tsconfigFile(p) + ":" + p.Alias, nil
}

func (TSConfigExecutor) Check(_ context.Context, ws *workspace.Workspace, req *engine.Request) (bool, error) {
	p := req.Payload.(TSConfigPath)
	doc, err := ws.JSON(tsconfigFile(p))
	if err != nil {
		return false, err
	}
	key := jsonfile.Path("compilerOptions", "paths", p.Alias)
	if req.Present() {
		return !doc.Equal(key, p.Paths), nil
	}
	return doc.Exists(key), nil
}

func (TSConfigExecutor) Apply(_ context.Context, ws *workspace.Workspace, req *engine.Request) (engine.Change, error) {
	p := req.Payload.(TSConfigPath)
	doc, err := ws.JSON(tsconfigFile(p))
	if err != nil {
		return engine.Change{}, err
	}
	key := jsonfile.Path("compilerOptions", "paths", p.Alias)
	if req.Present() {
		if err := doc.Set(key, p.Paths); err != nil {
			return engine.Change{}, err
		}
		return engine.Change{Description: fmt.Sprintf("mapped path alias %s", p.Alias)}, nil
	}
	if err := doc.Delete(key); err != nil {
		return engine.Change{}, err
	}
	return engine.Change{Description: fmt.Sprintf("removed path alias %s", p.Alias)}, nil
}

// DotConfigExecutor writes keys into the per-stage YAML files
type DotConfigExecutor struct {
	dir string
}

// NewDotConfigExecutor creates an executor writing below dir
func NewDotConfigExecutor(dir string) *DotConfigExecutor {
	if dir == "" {
		dir = ".config"
	}
	return &DotConfigExecutor{dir: dir}
}

func (x *DotConfigExecutor) Type() string  { return TypeDotConfig }
func (x *DotConfigExecutor) Priority() int { return 50 }

// File returns the YAML file a value belongs to
func (x *DotConfigExecutor) File(p ConfigValue) (string, error) {
	var name string
	switch p.Layer {
	case LayerDefault, "":
		name = "default"
	case LayerStage:
		if p.Stage == "" {
			return "", fmt.Errorf("stage layer for %s requires a stage", p.Key)
		}
		name = p.Stage
	case LayerLocal:
		name = "local"
		if p.Stage != "" {
			name = p.Stage + ".local"
		}
	default:
		return "", fmt.Errorf("unknown dot-config layer %q", p.Layer)
	}
	return path.Join(x.dir, name+".yaml"), nil
}

func (x *DotConfigExecutor) Key(req *engine.Request) (string, error) {
	p, ok := req.Payload.(ConfigValue)
	if !ok {
		return "", fmt.Errorf("unexpected payload %T", req.Payload)
	}
	if p.Key == "" {
		return "", fmt.Errorf("dot-config key is required")
	}
	file, err := x.File(p)
	if err != nil {
		return "", err
	}
	return file + ":" + p.Key, nil
}

func (x *DotConfigExecutor) Check(_ context.Context, ws *workspace.Workspace, req *engine.Request) (bool, error) {
	p := req.Payload.(ConfigValue)
	file, err := x.File(p)
	if err != nil {
		return false, err
	}
	doc, err := ws.YAML(file)
	if err != nil {
		return false, err
	}
	keys := yamlfile.SplitPath(p.Key)
	if !req.Present() {
		return doc.Has(keys...), nil
	}
	if !doc.Has(keys...) {
		return true, nil
	}
	return p.Overwrite && !doc.Equal(p.Value, keys...), nil
}

func (x *DotConfigExecutor) Apply(_ context.Context, ws *workspace.Workspace, req *engine.Request) (engine.Change, error) {
	p := req.Payload.(ConfigValue)
	file, err := x.File(p)
	if err != nil {
		return engine.Change{}, err
	}
	doc, err := ws.YAML(file)
	if err != nil {
		return engine.Change{}, err
	}
	keys := yamlfile.SplitPath(p.Key)
	if req.Present() {
		if err := doc.Set(p.Value, keys...); err != nil {
			return engine.Change{}, fmt.Errorf("failed to set %s in %s: %w", p.Key, file, err)
		}
		return engine.Change{Description: fmt.Sprintf("configured %s in %s", p.Key, file)}, nil
	}
	if err := doc.Delete(keys...); err != nil {
		return engine.Change{}, err
	}
	return engine.Change{Description: fmt.Sprintf("removed %s from %s", p.Key, file)}, nil
}
