package executors

import (
	"context"
	"fmt"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/engine"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/workspace"
)

// EnvExecutor manages variables in dotenv files
type EnvExecutor struct{}

func (EnvExecutor) Type() string  { return TypeEnvVariable }
func (EnvExecutor) Priority() int { return 40 }

func envFile(p EnvVariable) string {
	if p.File == "" {
		return ".env"
	}
	return p.File
}

func (EnvExecutor) Key(req *engine.Request) (string, error) {
	p, ok := req.Payload.(EnvVariable)
	if !ok {
		return "", fmt.Errorf("unexpected payload %T", req.Payload)
	}
	if p.Name == "" {
		return "", fmt.Errorf("variable name is required")
	}
	return envFile(p) + ":" + p.Name, nil
}

func (EnvExecutor) Check(_ context.Context, ws *workspace.Workspace, req *engine.Request) (bool, error) {
	p := req.Payload.(EnvVariable)
	f, err := ws.Env(envFile(p))
	if err != nil {
		return false, err
	}
	current, ok := f.Get(p.Name)
	if !req.Present() {
		return ok, nil
	}
	return !ok || (current != p.Value && p.Overwrite), nil
}

func (EnvExecutor) Apply(_ context.Context, ws *workspace.Workspace, req *engine.Request) (engine.Change, error) {
	p := req.Payload.(EnvVariable)
	file := envFile(p)
	f, err := ws.Env(file)
	if err != nil {
		return engine.Change{}, err
	}
	if req.Present() {
		f.Set(p.Name, p.Value, p.Comment)
		return engine.Change{Description: fmt.Sprintf("set %s in %s", p.Name, file)}, nil
	}
	f.Delete(p.Name)
	return engine.Change{Description: fmt.Sprintf("removed %s from %s", p.Name, file)}, nil
}
