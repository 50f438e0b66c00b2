package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/cli/ui"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/engine"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/lock"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/modules"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/modules/builtin"
)

// explain turns a command error into a user-facing message
func explain(err error) ui.Message {
	var (
		notFound *modules.NotFoundError
		invalid  *modules.ValidationError
		conflict *engine.ConflictError
	)
	switch {
	case errors.As(err, &notFound):
		return ui.ModuleNotFound(notFound.Name, builtin.Registry().Names(), color.NoColor)
	case errors.As(err, &invalid):
		details := make([]string, 0, len(invalid.Errors.Errors))
		for _, e := range invalid.Errors.Errors {
			details = append(details, e.Error())
		}
		return ui.InvalidConfig(fmt.Sprintf("Module '%s' has invalid settings.", invalid.Module), strings.Join(details, "\n"), color.NoColor)
	case errors.As(err, &conflict):
		return ui.Conflict(conflict.Error(), color.NoColor)
	case errors.Is(err, lock.ErrLocked):
		return ui.Locked(err.Error(), color.NoColor)
	}
	return ui.Message{Problem: err.Error(), NoColor: color.NoColor}
}

func writeError(w io.Writer, err error) {
	ui.Write(w, explain(err))
}
