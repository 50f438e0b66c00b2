package executors

import (
	"context"
	"errors"
	"fmt"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/engine"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/mutate/tsfile"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/workspace"
)

// ImportExecutor manages ES import specifiers
type ImportExecutor struct{}

func (ImportExecutor) Type() string  { return TypeImport }
func (ImportExecutor) Priority() int { return 70 }

func (ImportExecutor) Key(req *engine.Request) (string, error) {
	p, ok := req.Payload.(Import)
	if !ok {
		return "", fmt.Errorf("unexpected payload %T", req.Payload)
	}
	if p.File == "" || p.Symbol == "" || p.From == "" {
		return "", fmt.Errorf("import requires file, symbol and source")
	}
	return fmt.Sprintf("%s:%s:%s", p.File, p.Symbol, p.From), nil
}

func (ImportExecutor) Check(_ context.Context, ws *workspace.Workspace, req *engine.Request) (bool, error) {
	p := req.Payload.(Import)
	if !req.Present() {
		exists, err := ws.Exists(p.File)
		if err != nil || !exists {
			return false, err
		}
	}
	f, err := ws.TypeScript(p.File)
	if err != nil {
		return false, err
	}
	return f.HasImport(p.Symbol, p.From) != req.Present(), nil
}

func (ImportExecutor) Apply(_ context.Context, ws *workspace.Workspace, req *engine.Request) (engine.Change, error) {
	p := req.Payload.(Import)
	f, err := ws.TypeScript(p.File)
	if err != nil {
		return engine.Change{}, err
	}
	if req.Present() {
		if _, err := f.EnsureImport(p.Symbol, p.From); err != nil {
			return engine.Change{}, err
		}
		return engine.Change{Description: fmt.Sprintf("imported %s in %s", p.Symbol, p.File)}, nil
	}
	if _, err := f.RemoveImport(p.Symbol, p.From); err != nil {
		return engine.Change{}, err
	}
	return engine.Change{Description: fmt.Sprintf("removed import %s from %s", p.Symbol, p.File)}, nil
}

// DecoratorExecutor manages elements of decorator array properties
type DecoratorExecutor struct{}

func (DecoratorExecutor) Type() string  { return TypeDecoratorArray }
func (DecoratorExecutor) Priority() int { return 80 }

func (DecoratorExecutor) Key(req *engine.Request) (string, error) {
	p, ok := req.Payload.(DecoratorElement)
	if !ok {
		return "", fmt.Errorf("unexpected payload %T", req.Payload)
	}
	ident := p.Match
	if ident == "" {
		ident = p.Element
	}
	return fmt.Sprintf("%s:@%s.%s:%s", p.File, p.Decorator, p.Property, ident), nil
}

func (DecoratorExecutor) Check(_ context.Context, ws *workspace.Workspace, req *engine.Request) (bool, error) {
	p := req.Payload.(DecoratorElement)
	if !req.Present() {
		exists, err := ws.Exists(p.File)
		if err != nil || !exists {
			return false, err
		}
	}
	f, err := ws.TypeScript(p.File)
	if err != nil {
		return false, err
	}
	has, err := f.HasDecoratorArrayElement(p.Decorator, p.Property, p.Element, p.Match)
	if err != nil {
		if !req.Present() && errors.Is(err, tsfile.ErrDecoratorNotFound) {
			return false, nil
		}
		return false, err
	}
	return has != req.Present(), nil
}

func (DecoratorExecutor) Apply(_ context.Context, ws *workspace.Workspace, req *engine.Request) (engine.Change, error) {
	p := req.Payload.(DecoratorElement)
	f, err := ws.TypeScript(p.File)
	if err != nil {
		return engine.Change{}, err
	}
	if req.Present() {
		if _, err := f.EnsureDecoratorArrayElement(p.Decorator, p.Property, p.Element, p.Match); err != nil {
			return engine.Change{}, err
		}
		return engine.Change{Description: fmt.Sprintf("added %s to @%s %s in %s", p.Element, p.Decorator, p.Property, p.File)}, nil
	}
	if _, err := f.RemoveDecoratorArrayElement(p.Decorator, p.Property, p.Element, p.Match); err != nil {
		return engine.Change{}, err
	}
	return engine.Change{Description: fmt.Sprintf("removed %s from @%s %s in %s", p.Element, p.Decorator, p.Property, p.File)}, nil
}
