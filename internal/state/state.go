// Package state persists what the last apply did to a project so the next
// run can turn off modules that were removed and report drift.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sort"
	"time"

	"github.com/spf13/afero"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/engine"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/workspace"
)

const (
	// Dir holds scaffold bookkeeping inside the project
	Dir = ".scaffold"
	// Path is the state file relative to the project root
	Path = Dir + "/state.json"

	currentVersion = 1
)

// State is the applied state of a project
type State struct {
	Version int `json:"version"`
	// Modules maps every enabled module to its resolved configuration
	Modules map[string]map[string]interface{} `json:"modules"`
	// Files maps project paths to the sha256 of the content last written
	Files   map[string]string `json:"files"`
	LastRun *Run              `json:"last_run,omitempty"`
}

// Run identifies the run that produced the state
type Run struct {
	ID   string    `json:"id"`
	Time time.Time `json:"time"`
}

// New returns an empty state
func New() *State {
	return &State{
		Version: currentVersion,
		Modules: make(map[string]map[string]interface{}),
		Files:   make(map[string]string),
	}
}

// Load reads the state file. A missing file yields an empty state.
func Load(fs afero.Fs) (*State, error) {
	data, err := afero.ReadFile(fs, Path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("failed to open state: %w", err)
	}

	s := New()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to decode state %s: %w", Path, err)
	}
	if s.Version > currentVersion {
		return nil, fmt.Errorf("state %s has version %d, this build understands up to %d", Path, s.Version, currentVersion)
	}
	if s.Modules == nil {
		s.Modules = make(map[string]map[string]interface{})
	}
	if s.Files == nil {
		s.Files = make(map[string]string)
	}
	return s, nil
}

// Save writes the state atomically
func (s *State) Save(fs afero.Fs) error {
	if err := fs.MkdirAll(path.Dir(Path), 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", Dir, err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	data = append(data, '\n')

	tmp := Path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0644); err != nil {
		fs.Remove(tmp)
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := fs.Rename(tmp, Path); err != nil {
		fs.Remove(tmp)
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// Previous returns the module configuration of the last run, as expected by
// engine.Plan
func (s *State) Previous() map[string]map[string]interface{} {
	out := make(map[string]map[string]interface{}, len(s.Modules))
	for name, cfg := range s.Modules {
		out[name] = cfg
	}
	return out
}

// ModuleNames returns the applied modules sorted by name
func (s *State) ModuleNames() []string {
	names := make([]string, 0, len(s.Modules))
	for name := range s.Modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Record folds the result of a run into the state. Dry runs are ignored.
func (s *State) Record(result *engine.Result) {
	if result == nil || result.DryRun {
		return
	}

	s.Modules = make(map[string]map[string]interface{})
	for name, cfg := range result.Enabled() {
		s.Modules[name] = map[string]interface{}(cfg)
	}
	for _, f := range result.Files {
		if f.Deleted {
			delete(s.Files, f.Path)
			continue
		}
		s.Files[f.Path] = workspace.HashBytes(f.After)
	}
	s.LastRun = &Run{ID: result.RunID, Time: result.FinishedAt}
}

// DriftKind tells how a file diverged
type DriftKind string

const (
	DriftModified DriftKind = "modified"
	DriftMissing  DriftKind = "missing"
)

// Drift is a file that changed since scaffold last wrote it
type Drift struct {
	Path string    `json:"path"`
	Kind DriftKind `json:"kind"`
}

// Drift compares the recorded hashes with the workspace
func (s *State) Drift(ws *workspace.Workspace) ([]Drift, error) {
	paths := make([]string, 0, len(s.Files))
	for p := range s.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var drift []Drift
	for _, p := range paths {
		hash, ok, err := ws.Hash(p)
		if err != nil {
			return nil, err
		}
		switch {
		case !ok:
			drift = append(drift, Drift{Path: p, Kind: DriftMissing})
		case hash != s.Files[p]:
			drift = append(drift, Drift{Path: p, Kind: DriftModified})
		}
	}
	return drift, nil
}
