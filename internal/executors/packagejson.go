package executors

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/engine"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/mutate/jsonfile"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/workspace"
)

const packageJSON = "package.json"

var dependencySections = []string{"dependencies", "devDependencies"}

// DependencyExecutor adds and removes npm dependencies. It never downgrades
// a version already present and keeps dependency maps sorted.
type DependencyExecutor struct{}

func (DependencyExecutor) Type() string  { return TypePackageDependency }
func (DependencyExecutor) Priority() int { return 20 }

func (DependencyExecutor) Key(req *engine.Request) (string, error) {
	p, ok := req.Payload.(Dependency)
	if !ok {
		return "", fmt.Errorf("unexpected payload %T", req.Payload)
	}
	if p.Name == "" {
		return "", fmt.Errorf("dependency name is required")
	}
	return p.Name, nil
}

func (DependencyExecutor) Check(_ context.Context, ws *workspace.Workspace, req *engine.Request) (bool, error) {
	doc, err := ws.JSON(packageJSON)
	if err != nil {
		return false, err
	}
	p := req.Payload.(Dependency)

	_, current, found := findDependency(doc, p.Name)
	if !req.Present() {
		return found, nil
	}
	if !found {
		return true, nil
	}
	return !Satisfies(current, p.Version), nil
}

func (DependencyExecutor) Apply(_ context.Context, ws *workspace.Workspace, req *engine.Request) (engine.Change, error) {
	doc, err := ws.JSON(packageJSON)
	if err != nil {
		return engine.Change{}, err
	}
	p := req.Payload.(Dependency)

	if !req.Present() {
		for _, section := range dependencySections {
			if err := doc.Delete(jsonfile.Path(section, p.Name)); err != nil {
				return engine.Change{}, err
			}
		}
		return engine.Change{Description: fmt.Sprintf("removed dependency %s", p.Name)}, nil
	}

	section, current, found := findDependency(doc, p.Name)
	if !found {
		section = "dependencies"
		if p.Dev {
			section = "devDependencies"
		}
	}
	if err := doc.Set(jsonfile.Path(section, p.Name), p.Version); err != nil {
		return engine.Change{}, err
	}
	if found {
		return engine.Change{Description: fmt.Sprintf("upgraded %s from %s to %s", p.Name, current, p.Version)}, nil
	}
	return engine.Change{Description: fmt.Sprintf("added %s@%s to %s", p.Name, p.Version, section)}, nil
}

// RegisterHooks sorts dependency maps of a modified package.json
func (DependencyExecutor) RegisterHooks(h *engine.Hooks) {
	h.On(engine.AfterAll, "sort-dependencies", func(_ context.Context, ws *workspace.Workspace) error {
		if !ws.Loaded(packageJSON) {
			return nil
		}
		doc, err := ws.JSON(packageJSON)
		if err != nil {
			return err
		}
		if !doc.Dirty() {
			return nil
		}
		for _, section := range dependencySections {
			if err := doc.SortObject(section); err != nil {
				return err
			}
		}
		return nil
	})
}

func findDependency(doc *jsonfile.Document, name string) (section, version string, found bool) {
	for _, s := range dependencySections {
		if v, ok := doc.GetString(jsonfile.Path(s, name)); ok {
			return s, v, true
		}
	}
	return "", "", false
}

// Satisfies reports whether the installed range current is at least as new
// as want. Ranges that are not plain versions (tags, git urls, workspace:)
// are left to the user.
func Satisfies(current, want string) bool {
	if current == want {
		return true
	}
	cv, ok := semverOf(current)
	if !ok {
		return true
	}
	wv, ok := semverOf(want)
	if !ok {
		return false
	}
	return semver.Compare(cv, wv) >= 0
}

func semverOf(r string) (string, bool) {
	r = strings.TrimSpace(r)
	r = strings.TrimLeft(r, "^~>=v ")
	if i := strings.IndexAny(r, " |<"); i >= 0 {
		r = r[:i]
	}
	r = strings.ReplaceAll(r, ".x", "")
	v := "v" + r
	if !semver.IsValid(v) {
		return "", false
	}
	return v, true
}

// ScriptExecutor manages npm scripts
type ScriptExecutor struct{}

func (ScriptExecutor) Type() string  { return TypePackageScript }
func (ScriptExecutor) Priority() int { return 21 }

func (ScriptExecutor) Key(req *engine.Request) (string, error) {
	p, ok := req.Payload.(Script)
	if !ok {
		return "", fmt.Errorf("unexpected payload %T", req.Payload)
	}
	return p.Name, nil
}

func (ScriptExecutor) Check(_ context.Context, ws *workspace.Workspace, req *engine.Request) (bool, error) {
	doc, err := ws.JSON(packageJSON)
	if err != nil {
		return false, err
	}
	p := req.Payload.(Script)
	current, ok := doc.GetString(jsonfile.Path("scripts", p.Name))
	if req.Present() {
		return !ok || (current != p.Command && p.Overwrite), nil
	}
	return ok && (current == p.Command || p.Overwrite), nil
}

func (ScriptExecutor) Apply(_ context.Context, ws *workspace.Workspace, req *engine.Request) (engine.Change, error) {
	doc, err := ws.JSON(packageJSON)
	if err != nil {
		return engine.Change{}, err
	}
	p := req.Payload.(Script)
	path := jsonfile.Path("scripts", p.Name)
	if req.Present() {
		if err := doc.Set(path, p.Command); err != nil {
			return engine.Change{}, err
		}
		return engine.Change{Description: fmt.Sprintf("set script %s", p.Name)}, nil
	}
	if err := doc.Delete(path); err != nil {
		return engine.Change{}, err
	}
	return engine.Change{Description: fmt.Sprintf("removed script %s", p.Name)}, nil
}
