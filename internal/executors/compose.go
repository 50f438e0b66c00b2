package executors

import (
	"context"
	"fmt"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/engine"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/workspace"
)

// ComposeExecutor manages docker-compose services and their named volumes.
// An existing service is left alone so local tweaks survive.
type ComposeExecutor struct{}

func (ComposeExecutor) Type() string  { return TypeComposeService }
func (ComposeExecutor) Priority() int { return 60 }

func composeFile(p ComposeService) string {
	if p.File == "" {
		return "docker-compose.yml"
	}
	return p.File
}

func (ComposeExecutor) Key(req *engine.Request) (string, error) {
	p, ok := req.Payload.(ComposeService)
	if !ok {
		return "", fmt.Errorf("unexpected payload %T", req.Payload)
	}
	if p.Name == "" {
		return "", fmt.Errorf("service name is required")
	}
	return composeFile(p) + ":" + p.Name, nil
}

func (ComposeExecutor) Check(_ context.Context, ws *workspace.Workspace, req *engine.Request) (bool, error) {
	p := req.Payload.(ComposeService)
	doc, err := ws.YAML(composeFile(p))
	if err != nil {
		return false, err
	}

	if req.Present() {
		if !doc.Has("services", p.Name) {
			return true, nil
		}
		for _, v := range p.Volumes {
			if !doc.Has("volumes", v) {
				return true, nil
			}
		}
		return false, nil
	}

	if doc.Has("services", p.Name) {
		return true, nil
	}
	for _, v := range p.Volumes {
		if doc.Has("volumes", v) {
			return true, nil
		}
	}
	return false, nil
}

func (ComposeExecutor) Apply(_ context.Context, ws *workspace.Workspace, req *engine.Request) (engine.Change, error) {
	p := req.Payload.(ComposeService)
	file := composeFile(p)
	doc, err := ws.YAML(file)
	if err != nil {
		return engine.Change{}, err
	}

	if req.Present() {
		if !doc.Has("services", p.Name) {
			if err := doc.Set(p.Service, "services", p.Name); err != nil {
				return engine.Change{}, err
			}
		}
		for _, v := range p.Volumes {
			if !doc.Has("volumes", v) {
				if err := doc.Set(map[string]interface{}{}, "volumes", v); err != nil {
					return engine.Change{}, err
				}
			}
		}
		return engine.Change{Description: fmt.Sprintf("added service %s to %s", p.Name, file)}, nil
	}

	if err := doc.Delete("services", p.Name); err != nil {
		return engine.Change{}, err
	}
	for _, v := range p.Volumes {
		if err := doc.Delete("volumes", v); err != nil {
			return engine.Change{}, err
		}
	}
	return engine.Change{Description: fmt.Sprintf("removed service %s from %s", p.Name, file)}, nil
}
