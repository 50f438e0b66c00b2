package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/app"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/cli/config"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/history"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/modules"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/modules/builtin"
)

type memoryJournal struct {
	runs []history.Run
}

func (j *memoryJournal) Record(_ context.Context, run *history.Run) error {
	j.runs = append(j.runs, *run)
	return nil
}

func (j *memoryJournal) List(_ context.Context, limit int) ([]history.Run, error) {
	if limit > 0 && limit < len(j.runs) {
		return j.runs[:limit], nil
	}
	return j.runs, nil
}

func (j *memoryJournal) Get(_ context.Context, id string) (*history.Run, error) {
	for i := range j.runs {
		if j.runs[i].ID == id {
			return &j.runs[i], nil
		}
	}
	return nil, history.ErrNotFound
}

func setupServer(t *testing.T) (http.Handler, afero.Fs, *memoryJournal) {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string]string{
		config.FileName:     "project_name: acme\n",
		"package.json":      "{\n  \"name\": \"acme\"\n}\n",
		"tsconfig.json":     "{\n  \"compilerOptions\": {}\n}\n",
		"src/app.module.ts": "import { Module } from '@nestjs/common';\n\n@Module({\n  imports: [],\n})\nexport class AppModule {}\n",
	}
	for p, content := range files {
		require.NoError(t, afero.WriteFile(fs, p, []byte(content), 0644))
	}

	cfg, err := config.Load(fs)
	require.NoError(t, err)
	journal := &memoryJournal{}
	svc, err := app.New(app.Options{Fs: fs, Config: cfg, Registry: builtin.Registry(), Journal: journal})
	require.NoError(t, err)
	return NewHandler(svc, nil), fs, journal
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _, _ := setupServer(t)
	rec := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListModules(t *testing.T) {
	h, _, _ := setupServer(t)
	rec := do(t, h, http.MethodGet, "/modules", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var infos []modules.Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	require.Len(t, infos, 8)
	assert.Equal(t, "auth", infos[0].Name)
}

func TestGetModule(t *testing.T) {
	h, _, _ := setupServer(t)

	rec := do(t, h, http.MethodGet, "/modules/queue", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var info modules.Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, []string{"redis"}, info.DependsOn)

	rec = do(t, h, http.MethodGet, "/modules/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestPlanAndApply(t *testing.T) {
	h, fs, journal := setupServer(t)
	body := `{"modules": {"redis": {"port": 6380}}}`

	rec := do(t, h, http.MethodPost, "/plan", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var plan RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	assert.True(t, plan.DryRun)
	require.NotEmpty(t, plan.Diffs)

	var compose *FileDiff
	for i := range plan.Diffs {
		if plan.Diffs[i].Path == "docker-compose.yml" {
			compose = &plan.Diffs[i]
		}
	}
	require.NotNil(t, compose)
	assert.True(t, compose.Created)
	assert.Contains(t, compose.Diff, "6380:6379")

	exists, _ := afero.Exists(fs, "docker-compose.yml")
	assert.False(t, exists)

	rec = do(t, h, http.MethodPost, "/apply", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	exists, _ = afero.Exists(fs, "docker-compose.yml")
	assert.True(t, exists)

	rec = do(t, h, http.MethodGet, "/history?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []history.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.Len(t, runs, 2)

	rec = do(t, h, http.MethodGet, "/history/"+journal.runs[1].ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"command":"apply"`)
}

func TestResolve(t *testing.T) {
	h, _, _ := setupServer(t)
	rec := do(t, h, http.MethodPost, "/resolve", `{"modules": {"push": {}}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"queue","enabled":true,"implicit":true`)
}

func TestRunErrors(t *testing.T) {
	h, _, _ := setupServer(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed body", `{"modules":`, http.StatusBadRequest, "BAD_REQUEST"},
		{"invalid config", `{"modules": {"email": {}}}`, http.StatusUnprocessableEntity, "INVALID_CONFIGURATION"},
		{"unknown module", `{"modules": {"kafka": {}}}`, http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/plan", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestStatus(t *testing.T) {
	h, _, _ := setupServer(t)
	rec := do(t, h, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status app.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.UpToDate)
	assert.Equal(t, []string{"core"}, status.Pending)
}

func TestHistoryBadLimit(t *testing.T) {
	h, _, _ := setupServer(t)
	rec := do(t, h, http.MethodGet, "/history?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "limit"))
}
