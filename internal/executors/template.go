package executors

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/engine"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/templates"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/workspace"
)

// TemplateExecutor creates files from templates. Existing files are never
// overwritten, and a file is only removed while it still matches the template.
type TemplateExecutor struct {
	templates *templates.Engine
	project   string
	logger    *zap.Logger
}

// NewTemplateExecutor creates a template executor
func NewTemplateExecutor(tmpl *templates.Engine, project string, logger *zap.Logger) *TemplateExecutor {
	if tmpl == nil {
		tmpl = templates.NewEngine()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateExecutor{templates: tmpl, project: project, logger: logger}
}

func (x *TemplateExecutor) Type() string  { return TypeFileTemplate }
func (x *TemplateExecutor) Priority() int { return 10 }

func (x *TemplateExecutor) Key(req *engine.Request) (string, error) {
	p, ok := req.Payload.(FileTemplate)
	if !ok {
		return "", fmt.Errorf("unexpected payload %T", req.Payload)
	}
	path, err := workspace.Clean(p.Path)
	if err != nil {
		return "", err
	}
	if !x.templates.Exists(p.Template) {
		return "", fmt.Errorf("template %s not found", p.Template)
	}
	return path, nil
}

func (x *TemplateExecutor) render(req *engine.Request) ([]byte, error) {
	p := req.Payload.(FileTemplate)
	return x.templates.Render(p.Template, &templates.Context{
		ProjectName: x.project,
		Module:      req.Module,
		Vars:        p.Vars,
	})
}

func (x *TemplateExecutor) Check(_ context.Context, ws *workspace.Workspace, req *engine.Request) (bool, error) {
	p := req.Payload.(FileTemplate)
	f, err := ws.Text(p.Path)
	if err != nil {
		return false, err
	}
	if req.Present() {
		return !f.Exists(), nil
	}
	if !f.Exists() {
		return false, nil
	}

	rendered, err := x.render(req)
	if err != nil {
		return false, err
	}
	if !bytes.Equal(rendered, f.Content()) {
		x.logger.Warn("keeping modified file", zap.String("path", p.Path), zap.String("module", req.Module))
		return false, nil
	}
	return true, nil
}

func (x *TemplateExecutor) Apply(_ context.Context, ws *workspace.Workspace, req *engine.Request) (engine.Change, error) {
	p := req.Payload.(FileTemplate)
	f, err := ws.Text(p.Path)
	if err != nil {
		return engine.Change{}, err
	}
	if !req.Present() {
		f.Delete()
		return engine.Change{Description: fmt.Sprintf("removed %s", p.Path)}, nil
	}

	rendered, err := x.render(req)
	if err != nil {
		return engine.Change{}, err
	}
	f.Set(rendered)
	return engine.Change{Description: fmt.Sprintf("created %s", p.Path)}, nil
}
