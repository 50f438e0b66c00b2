package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/mutate/yamlfile"
)

// FileName is the project configuration file
const FileName = "scaffold.yaml"

// Config represents the scaffold configuration of a project
type Config struct {
	ProjectName  string       `mapstructure:"project_name"`
	Stages       []string     `mapstructure:"stages"`
	DotConfigDir string       `mapstructure:"dot_config_dir"`
	HistoryPath  string       `mapstructure:"history_path"`
	Log          LogConfig    `mapstructure:"log"`
	Server       ServerConfig `mapstructure:"server"`

	// Modules maps enabled modules to their raw configuration. It is read
	// straight from the YAML so field names keep their case.
	Modules map[string]map[string]interface{} `mapstructure:"-"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig represents the scaffolding API server configuration
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// RedisURL enables the distributed apply lock
	RedisURL string `mapstructure:"redis_url"`
}

// ModuleNames returns the enabled modules sorted by name
func (c *Config) ModuleNames() []string {
	names := make([]string, 0, len(c.Modules))
	for name := range c.Modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load loads scaffold.yaml from the root of fs. A missing file yields the
// defaults.
func Load(fs afero.Fs) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)

	v.SetDefault("project_name", "")
	v.SetDefault("stages", []string{"development", "production"})
	v.SetDefault("dot_config_dir", ".config")
	v.SetDefault("history_path", ".scaffold/history.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.redis_url", "")

	v.SetConfigFile(FileName)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("SCAFFOLD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	exists, err := afero.Exists(fs, FileName)
	if err != nil {
		return nil, err
	}
	if exists {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	modules, err := loadModules(fs)
	if err != nil {
		return nil, err
	}
	config.Modules = modules

	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func loadModules(fs afero.Fs) (map[string]map[string]interface{}, error) {
	doc, err := openDocument(fs)
	if err != nil {
		return nil, err
	}

	modules := make(map[string]map[string]interface{})
	for _, name := range doc.Keys("modules") {
		raw, _ := doc.Get("modules", name)
		switch v := raw.(type) {
		case nil:
			modules[name] = map[string]interface{}{}
		case map[string]interface{}:
			modules[name] = v
		default:
			return nil, fmt.Errorf("modules.%s must be a mapping, got %T", name, raw)
		}
	}
	return modules, nil
}

func openDocument(fs afero.Fs) (*yamlfile.Document, error) {
	data, err := afero.ReadFile(fs, FileName)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}
	doc, err := yamlfile.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	return doc, nil
}

func saveDocument(fs afero.Fs, doc *yamlfile.Document) error {
	if !doc.Dirty() {
		return nil
	}
	data, err := doc.Bytes()
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, FileName, data, 0644)
}

// EnableModule adds a module to scaffold.yaml and sets the given fields.
// Fields already present and comments elsewhere in the file are kept.
func EnableModule(fs afero.Fs, name string, values map[string]interface{}) error {
	doc, err := openDocument(fs)
	if err != nil {
		return err
	}

	if node, ok := doc.Node("modules", name); len(values) == 0 && (!ok || node.Tag == "!!null") {
		if err := doc.Set(map[string]interface{}{}, "modules", name); err != nil {
			return err
		}
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := doc.Set(values[k], "modules", name, k); err != nil {
			return err
		}
	}
	return saveDocument(fs, doc)
}

// DisableModule removes a module from scaffold.yaml
func DisableModule(fs afero.Fs, name string) error {
	doc, err := openDocument(fs)
	if err != nil {
		return err
	}
	if err := doc.Delete("modules", name); err != nil {
		return err
	}
	return saveDocument(fs, doc)
}

// Init writes a starter scaffold.yaml. It fails if the file exists.
func Init(fs afero.Fs, projectName string) error {
	exists, err := afero.Exists(fs, FileName)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%s already exists", FileName)
	}

	content := fmt.Sprintf(`# scaffold project configuration
project_name: %s

# deployment stages with their own .config/<stage>.yaml
stages:
  - development
  - production

# enabled modules and their configuration
modules:
`, projectName)
	return afero.WriteFile(fs, FileName, []byte(content), 0644)
}

// FindRoot walks up from dir to the directory holding scaffold.yaml
func FindRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a scaffold project (no %s found)", FileName)
		}
		dir = parent
	}
}

var stagePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	var result *multierror.Error

	seen := make(map[string]bool)
	for _, stage := range cfg.Stages {
		switch {
		case !stagePattern.MatchString(stage):
			result = multierror.Append(result, fmt.Errorf("stage %q must be lowercase letters, digits and dashes", stage))
		case stage == "default" || stage == "local":
			result = multierror.Append(result, fmt.Errorf("stage %q is reserved", stage))
		case seen[stage]:
			result = multierror.Append(result, fmt.Errorf("stage %q is listed twice", stage))
		}
		seen[stage] = true
	}

	switch cfg.Log.Format {
	case "console", "json":
	default:
		result = multierror.Append(result, fmt.Errorf("log.format must be console or json, got: %s", cfg.Log.Format))
	}

	if cfg.DotConfigDir == "" || filepath.IsAbs(cfg.DotConfigDir) || strings.HasPrefix(filepath.Clean(cfg.DotConfigDir), "..") {
		result = multierror.Append(result, fmt.Errorf("dot_config_dir must be a relative path inside the project, got: %q", cfg.DotConfigDir))
	}

	return result.ErrorOrNil()
}
