package history

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/engine"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/workspace"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Store) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewStore(db)
}

var columns = []string{"id", "command", "status", "started_at", "finished_at", "modules", "files", "changes", "error"}

func TestMigrate(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	run := &Run{
		Command:    "apply",
		Status:     StatusSucceeded,
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Modules:    []string{"core", "redis"},
		Changes:    4,
	}

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(
			sqlmock.AnyArg(), "apply", "succeeded", started, started.Add(time.Second),
			`["core","redis"]`, `[]`, 4, "",
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.Record(context.Background(), run))
	assert.NotEmpty(t, run.ID, "an id is assigned")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordError(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO runs`).WillReturnError(errors.New("disk full"))

	err := store.Record(context.Background(), &Run{ID: "x", Command: "apply"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestList(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(columns).
		AddRow("b", "apply", "failed", now, now, `["core"]`, `[]`, 0, "boom").
		AddRow("a", "plan", "dry-run", now.Add(-time.Hour), now.Add(-time.Hour), `["core"]`, `["package.json"]`, 2, "")

	mock.ExpectQuery(`SELECT id, command, status`).WithArgs(10).WillReturnRows(rows)

	runs, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].ID)
	assert.Equal(t, StatusFailed, runs[0].Status)
	assert.Equal(t, "boom", runs[0].Error)
	assert.Equal(t, []string{"package.json"}, runs[1].Files)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUnlimited(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, command, status`).WithArgs(-1).WillReturnRows(sqlmock.NewRows(columns))

	runs, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, command, status`).WithArgs("missing").WillReturnRows(sqlmock.NewRows(columns))

	_, err := store.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFromResult(t *testing.T) {
	res := &engine.Result{
		RunID:  "run-1",
		DryRun: true,
		Modules: []engine.ModuleRun{
			{Name: "core", Enabled: true},
			{Name: "queue", Enabled: false},
		},
		Changes: []engine.Change{{Type: "file:template"}},
		Files:   []workspace.FileChange{{Path: "src/queue/queue.module.ts", Deleted: true}},
	}

	run := FromResult("plan", res, nil)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, StatusDryRun, run.Status)
	assert.Equal(t, []string{"core"}, run.Modules)
	assert.Equal(t, []string{"src/queue/queue.module.ts"}, run.Files)
	assert.Equal(t, 1, run.Changes)
	assert.False(t, run.FinishedAt.IsZero())

	run = FromResult("apply", nil, errors.New("conflict"))
	assert.Equal(t, StatusFailed, run.Status)
	assert.Equal(t, "conflict", run.Error)
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), ".scaffold", "history.db"))
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, cmd := range []string{"apply", "plan", "apply"} {
		run := &Run{
			Command:    cmd,
			Status:     StatusSucceeded,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
			Modules:    []string{"core"},
		}
		require.NoError(t, store.Record(ctx, run))
	}

	runs, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))

	got, err := store.Get(ctx, runs[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "plan", got.Command)
	assert.Equal(t, []string{"core"}, got.Modules)
	assert.True(t, base.Add(time.Minute).Equal(got.StartedAt))
}
