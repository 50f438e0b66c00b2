package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestLoad(t *testing.T) {
	// no config file, defaults apply
	cfg, err := Load(afero.NewMemMapFs())
	if err != nil {
		t.Fatalf("expected no error loading defaults, got %v", err)
	}

	if len(cfg.Stages) != 2 || cfg.Stages[0] != "development" {
		t.Errorf("expected default stages, got %v", cfg.Stages)
	}
	if cfg.DotConfigDir != ".config" {
		t.Errorf("expected default dot config dir '.config', got %s", cfg.DotConfigDir)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "console" {
		t.Errorf("unexpected log defaults %+v", cfg.Log)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default addr ':8080', got %s", cfg.Server.Addr)
	}
	if len(cfg.Modules) != 0 {
		t.Errorf("expected no modules, got %v", cfg.Modules)
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	configContent := `
project_name: acme
stages: [staging, production]
log:
  format: json
server:
  redis_url: redis://localhost:6379/0
modules:
  redis:
  email:
    provider: smtp
    from: noreply@acme.dev
    smtpHost: mailpit
`
	afero.WriteFile(fs, FileName, []byte(configContent), 0644)

	cfg, err := Load(fs)
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}

	if cfg.ProjectName != "acme" {
		t.Errorf("expected project name 'acme', got %s", cfg.ProjectName)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected json log format, got %s", cfg.Log.Format)
	}
	if cfg.Server.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("expected redis url, got %s", cfg.Server.RedisURL)
	}
	if names := cfg.ModuleNames(); strings.Join(names, ",") != "email,redis" {
		t.Errorf("expected modules email,redis, got %v", names)
	}
	// field names keep their case
	if cfg.Modules["email"]["smtpHost"] != "mailpit" {
		t.Errorf("expected smtpHost 'mailpit', got %v", cfg.Modules["email"])
	}
	if cfg.Modules["redis"] == nil {
		t.Error("module without configuration should map to an empty config")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	os.Setenv("SCAFFOLD_LOG_LEVEL", "debug")
	defer os.Unsetenv("SCAFFOLD_LOG_LEVEL")

	cfg, err := Load(afero.NewMemMapFs())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level from environment, got %s", cfg.Log.Level)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad stage", "stages: [Prod]", `stage "Prod"`},
		{"reserved stage", "stages: [local]", "reserved"},
		{"duplicate stage", "stages: [dev, dev]", "listed twice"},
		{"log format", "log:\n  format: xml", "log.format"},
		{"dot config dir", "dot_config_dir: ../elsewhere", "dot_config_dir"},
		{"module not a mapping", "modules:\n  redis: yes", "modules.redis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			afero.WriteFile(fs, FileName, []byte(tt.content+"\n"), 0644)

			_, err := Load(fs)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestEnableAndDisableModule(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := Init(fs, "acme"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := Init(fs, "acme"); err == nil {
		t.Error("expected Init to refuse an existing file")
	}

	if err := EnableModule(fs, "redis", nil); err != nil {
		t.Fatalf("EnableModule failed: %v", err)
	}
	if err := EnableModule(fs, "email", map[string]interface{}{"from": "noreply@acme.dev", "provider": "ses"}); err != nil {
		t.Fatalf("EnableModule failed: %v", err)
	}

	cfg, err := Load(fs)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if names := cfg.ModuleNames(); strings.Join(names, ",") != "email,redis" {
		t.Errorf("expected modules email,redis, got %v", names)
	}
	if cfg.Modules["email"]["provider"] != "ses" {
		t.Errorf("unexpected email config %v", cfg.Modules["email"])
	}

	data, _ := afero.ReadFile(fs, FileName)
	if !strings.Contains(string(data), "# deployment stages") {
		t.Error("comments should survive edits")
	}

	if err := DisableModule(fs, "redis"); err != nil {
		t.Fatalf("DisableModule failed: %v", err)
	}
	cfg, err = Load(fs)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok := cfg.Modules["redis"]; ok {
		t.Error("redis should be disabled")
	}
}

func TestFindRoot(t *testing.T) {
	tmpDir := t.TempDir()
	nested := filepath.Join(tmpDir, "src", "modules")
	os.MkdirAll(nested, 0755)

	if _, err := FindRoot(nested); err == nil {
		t.Error("expected error outside a project")
	}

	os.WriteFile(filepath.Join(tmpDir, FileName), []byte(""), 0644)

	root, err := FindRoot(nested)
	if err != nil {
		t.Fatalf("FindRoot failed: %v", err)
	}
	want, _ := filepath.EvalSymlinks(tmpDir)
	got, _ := filepath.EvalSymlinks(root)
	if got != want {
		t.Errorf("expected root %s, got %s", want, got)
	}
}
