package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/app"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/engine"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/history"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/modules"
)

// Scaffolder is the part of app.Service the API needs
type Scaffolder interface {
	Registry() *modules.Registry
	Resolve(req app.Request) ([]engine.ModuleRun, error)
	Plan(ctx context.Context, req app.Request) (*app.Report, error)
	Apply(ctx context.Context, req app.Request) (*app.Report, error)
	Status(ctx context.Context) (*app.Status, error)
	Journal() app.Journal
}

const maxBodyBytes = 1 << 20

// NewHandler builds the API router
func NewHandler(svc Scaffolder, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger, "/healthz"))

	r.Get("/healthz", h.health)
	r.Get("/modules", h.listModules)
	r.Get("/modules/{name}", h.getModule)
	r.Post("/resolve", h.resolve)
	r.Post("/plan", h.plan)
	r.Post("/apply", h.apply)
	r.Get("/status", h.status)
	r.Get("/history", h.listHistory)
	r.Get("/history/{id}", h.getHistory)
	return r
}

type handler struct {
	svc    Scaffolder
	logger *zap.Logger
}

// RunRequest is the body of /resolve, /plan and /apply. Omitting modules
// uses scaffold.yaml.
type RunRequest struct {
	Modules map[string]map[string]interface{} `json:"modules"`
}

// FileDiff is a changed file in a run response
type FileDiff struct {
	Path    string `json:"path"`
	Summary string `json:"summary"`
	Created bool   `json:"created,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
	Diff    string `json:"diff"`
}

// RunResponse is returned by /plan and /apply
type RunResponse struct {
	*engine.Result
	Diffs []FileDiff `json:"diffs"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) listModules(w http.ResponseWriter, r *http.Request) {
	list := h.svc.Registry().List()
	infos := make([]modules.Info, 0, len(list))
	for _, m := range list {
		infos = append(infos, modules.Describe(m))
	}
	renderJSON(w, http.StatusOK, infos)
}

func (h *handler) getModule(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Registry().Get(chi.URLParam(r, "name"))
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, modules.Describe(m))
}

func decodeRunRequest(r *http.Request) (app.Request, error) {
	var body RunRequest
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body)
	if err != nil && !errors.Is(err, io.EOF) {
		return app.Request{}, &requestError{err: err}
	}
	return app.Request{Modules: body.Modules}, nil
}

func (h *handler) resolve(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRunRequest(r)
	if err != nil {
		renderError(w, err)
		return
	}
	runs, err := h.svc.Resolve(req)
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, runs)
}

func (h *handler) plan(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.svc.Plan)
}

func (h *handler) apply(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.svc.Apply)
}

func (h *handler) run(w http.ResponseWriter, r *http.Request, fn func(context.Context, app.Request) (*app.Report, error)) {
	req, err := decodeRunRequest(r)
	if err != nil {
		renderError(w, err)
		return
	}
	report, err := fn(r.Context(), req)
	if err != nil {
		h.logger.Warn("run failed", zap.String("path", r.URL.Path), zap.Error(err))
		renderError(w, err)
		return
	}

	resp := RunResponse{Result: report.Result, Diffs: []FileDiff{}}
	for _, d := range report.Diffs {
		resp.Diffs = append(resp.Diffs, FileDiff{
			Path:    d.Path,
			Summary: d.Summary(),
			Created: d.Created,
			Deleted: d.Deleted,
			Diff:    d.Unified(),
		})
	}
	renderJSON(w, http.StatusOK, resp)
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.Status(r.Context())
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, status)
}

func (h *handler) listHistory(w http.ResponseWriter, r *http.Request) {
	journal := h.svc.Journal()
	if journal == nil {
		renderJSON(w, http.StatusOK, []history.Run{})
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			renderError(w, &requestError{err: errors.New("limit must be a non-negative integer")})
			return
		}
		limit = n
	}

	runs, err := journal.List(r.Context(), limit)
	if err != nil {
		renderError(w, err)
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	renderJSON(w, http.StatusOK, runs)
}

func (h *handler) getHistory(w http.ResponseWriter, r *http.Request) {
	journal := h.svc.Journal()
	if journal == nil {
		renderError(w, history.ErrNotFound)
		return
	}
	run, err := journal.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, run)
}
