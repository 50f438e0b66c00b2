package state

import (
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/engine"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/modules"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/workspace"
)

func TestLoad_NewFile(t *testing.T) {
	s, err := Load(afero.NewMemMapFs())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Modules == nil || s.Files == nil {
		t.Error("maps should be initialized")
	}
	if s.LastRun != nil {
		t.Errorf("expected no last run, got %+v", s.LastRun)
	}
}

func TestSaveAndLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	original := New()
	original.Modules["redis"] = map[string]interface{}{"host": "localhost", "port": 6379}
	original.Files["package.json"] = "abc"
	original.LastRun = &Run{ID: "run-1", Time: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}

	if err := original.Save(fs); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if ok, _ := afero.Exists(fs, Path+".tmp"); ok {
		t.Error("temp file should be renamed away")
	}

	loaded, err := Load(fs)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Files["package.json"] != "abc" {
		t.Errorf("expected file hash abc, got %q", loaded.Files["package.json"])
	}
	// JSON numbers come back as float64
	if port := loaded.Modules["redis"]["port"]; port != float64(6379) {
		t.Errorf("expected port 6379, got %v", port)
	}
	if loaded.LastRun == nil || loaded.LastRun.ID != "run-1" {
		t.Errorf("expected last run run-1, got %+v", loaded.LastRun)
	}
	if names := loaded.ModuleNames(); len(names) != 1 || names[0] != "redis" {
		t.Errorf("unexpected module names %v", names)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, Path, []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(fs); err == nil {
		t.Error("expected decode error")
	}
}

func TestLoad_NewerVersion(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, Path, []byte(`{"version": 99}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(fs); err == nil {
		t.Error("expected version error")
	}
}

func TestRecord(t *testing.T) {
	s := New()
	s.Files["src/old.ts"] = "x"
	s.Modules["queue"] = map[string]interface{}{}

	s.Record(&engine.Result{
		RunID: "run-2",
		Modules: []engine.ModuleRun{
			{Name: "core", Enabled: true, Config: modules.Values{"port": 3000}},
			{Name: "queue", Enabled: false},
		},
		Files: []workspace.FileChange{
			{Path: "package.json", After: []byte("{}\n")},
			{Path: "src/old.ts", Deleted: true},
		},
	})

	if _, ok := s.Modules["queue"]; ok {
		t.Error("disabled module should be dropped")
	}
	if s.Modules["core"]["port"] != 3000 {
		t.Errorf("unexpected core config %v", s.Modules["core"])
	}
	if s.Files["package.json"] != workspace.HashBytes([]byte("{}\n")) {
		t.Error("file hash not recorded")
	}
	if _, ok := s.Files["src/old.ts"]; ok {
		t.Error("deleted file should be forgotten")
	}
	if s.LastRun == nil || s.LastRun.ID != "run-2" {
		t.Errorf("unexpected last run %+v", s.LastRun)
	}
}

func TestRecord_DryRun(t *testing.T) {
	s := New()
	s.Record(&engine.Result{
		DryRun:  true,
		Modules: []engine.ModuleRun{{Name: "core", Enabled: true}},
	})
	if len(s.Modules) != 0 || s.LastRun != nil {
		t.Error("dry run must not change state")
	}
}

func TestDrift(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"package.json":  "{}\n",
		".env":          "A=1\n",
		"src/config.ts": "export {}\n",
	}
	s := New()
	for p, content := range files {
		if err := afero.WriteFile(fs, p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		s.Files[p] = workspace.HashBytes([]byte(content))
	}
	s.Files["docker-compose.yml"] = "gone"

	if err := afero.WriteFile(fs, ".env", []byte("A=2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	drift, err := s.Drift(workspace.New(fs))
	if err != nil {
		t.Fatalf("Drift failed: %v", err)
	}
	want := []Drift{
		{Path: ".env", Kind: DriftModified},
		{Path: "docker-compose.yml", Kind: DriftMissing},
	}
	if len(drift) != len(want) {
		t.Fatalf("expected %d drifted files, got %v", len(want), drift)
	}
	for i := range want {
		if drift[i] != want[i] {
			t.Errorf("drift[%d] = %+v, want %+v", i, drift[i], want[i])
		}
	}
}
