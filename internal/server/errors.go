package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/engine"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/graph"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/history"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/lock"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/modules"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// renderJSON writes v as JSON with the given status
func renderJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// renderError maps err onto a status code and writes an ErrorResponse
func renderError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	renderJSON(w, status, &ErrorResponse{
		Error:   "error",
		Message: err.Error(),
		Code:    code,
	})
}

func classify(err error) (int, string) {
	var (
		notFound   *modules.NotFoundError
		validation *modules.ValidationError
		conflict   *engine.ConflictError
		cycle      *graph.CycleError
		missing    *graph.MissingDependencyError
		unknown    *engine.UnknownRequestError
		badRequest *requestError
	)
	switch {
	case errors.As(err, &badRequest):
		return http.StatusBadRequest, "BAD_REQUEST"
	case errors.As(err, &notFound), errors.Is(err, history.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity, "INVALID_CONFIGURATION"
	case errors.As(err, &conflict):
		return http.StatusConflict, "REQUEST_CONFLICT"
	case errors.As(err, &cycle), errors.As(err, &missing), errors.As(err, &unknown):
		return http.StatusUnprocessableEntity, "INVALID_MODULES"
	case errors.Is(err, lock.ErrLocked), errors.Is(err, context.DeadlineExceeded):
		return http.StatusLocked, "PROJECT_LOCKED"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

type requestError struct {
	err error
}

func (e *requestError) Error() string { return "invalid request body: " + e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }
