// Package history keeps a journal of scaffold runs in SQLite.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/engine"
)

// DefaultPath is the journal location relative to the project root
const DefaultPath = ".scaffold/history.db"

// ErrNotFound is returned by Get for an unknown run
var ErrNotFound = errors.New("run not found")

// Status is the outcome of a run
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusDryRun    Status = "dry-run"
)

// Run is one journal entry
type Run struct {
	ID         string    `json:"id"`
	Command    string    `json:"command"`
	Status     Status    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Modules    []string  `json:"modules"`
	Files      []string  `json:"files"`
	Changes    int       `json:"changes"`
	Error      string    `json:"error,omitempty"`
}

// FromResult builds a journal entry from an engine result and its error
func FromResult(command string, res *engine.Result, runErr error) Run {
	run := Run{Command: command, Status: StatusSucceeded}
	if res != nil {
		run.ID = res.RunID
		run.StartedAt = res.StartedAt
		run.FinishedAt = res.FinishedAt
		run.Changes = len(res.Changes)
		run.Files = res.ChangedFiles()
		for _, m := range res.Modules {
			if m.Enabled {
				run.Modules = append(run.Modules, m.Name)
			}
		}
		if res.DryRun {
			run.Status = StatusDryRun
		}
	}
	if runErr != nil {
		run.Status = StatusFailed
		run.Error = runErr.Error()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = run.FinishedAt
	}
	return run
}

// Store persists runs
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database. Call Migrate before use.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens (creating when needed) the SQLite journal at path
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := NewStore(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the runs table
func (s *Store) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			command TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL,
			modules TEXT NOT NULL,
			files TEXT NOT NULL,
			changes INTEGER NOT NULL,
			error TEXT NOT NULL DEFAULT ''
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to migrate history: %w", err)
	}
	return nil
}

// Record stores a run, assigning an id when it has none
func (s *Store) Record(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	modulesJSON, err := json.Marshal(nonNil(run.Modules))
	if err != nil {
		return fmt.Errorf("failed to marshal modules: %w", err)
	}
	filesJSON, err := json.Marshal(nonNil(run.Files))
	if err != nil {
		return fmt.Errorf("failed to marshal files: %w", err)
	}

	query := `
		INSERT INTO runs (
			id, command, status, started_at, finished_at, modules, files, changes, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		run.ID, run.Command, string(run.Status), run.StartedAt.UTC(), run.FinishedAt.UTC(),
		string(modulesJSON), string(filesJSON), run.Changes, run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

const selectRuns = `
	SELECT id, command, status, started_at, finished_at, modules, files, changes, error
	FROM runs
`

// List returns the most recent runs first. A limit <= 0 returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, selectRuns+` ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Get returns a single run
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, err
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var status, modulesJSON, filesJSON string
	err := row.Scan(
		&run.ID, &run.Command, &status, &run.StartedAt, &run.FinishedAt,
		&modulesJSON, &filesJSON, &run.Changes, &run.Error,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	run.Status = Status(status)

	if err := json.Unmarshal([]byte(modulesJSON), &run.Modules); err != nil {
		return nil, fmt.Errorf("failed to unmarshal modules: %w", err)
	}
	if err := json.Unmarshal([]byte(filesJSON), &run.Files); err != nil {
		return nil, fmt.Errorf("failed to unmarshal files: %w", err)
	}
	return &run, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
