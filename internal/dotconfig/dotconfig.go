// Package dotconfig loads the layered per-stage configuration of a generated
// project. Layers, lowest priority first:
//
//	default.yaml
//	<stage>.yaml
//	local.yaml
//	<stage>.local.yaml
//	APP_<KEY__PATH> environment variables
package dotconfig

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultDir is where the configuration files live
	DefaultDir = ".config"
	// EnvPrefix marks environment overrides
	EnvPrefix = "APP_"
	// EnvSeparator separates key path segments in environment overrides
	EnvSeparator = "__"
)

// Config is the merged configuration of one stage
type Config struct {
	v       *viper.Viper
	stage   string
	sources []string
}

// Layers returns the file names merged for stage, lowest priority first
func Layers(stage string) []string {
	if stage == "" {
		return []string{"default.yaml", "local.yaml"}
	}
	return []string{"default.yaml", stage + ".yaml", "local.yaml", stage + ".local.yaml"}
}

// Load merges the configuration of stage found in dir with the process
// environment
func Load(fs afero.Fs, dir, stage string) (*Config, error) {
	return LoadEnv(fs, dir, stage, os.Environ())
}

// LoadEnv is Load with an explicit environment
func LoadEnv(fs afero.Fs, dir, stage string, environ []string) (*Config, error) {
	if dir == "" {
		dir = DefaultDir
	}
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigType("yaml")

	c := &Config{v: v, stage: stage}
	for _, name := range Layers(stage) {
		file := path.Join(dir, name)
		ok, err := afero.Exists(fs, file)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		v.SetConfigFile(file)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		c.sources = append(c.sources, file)
	}

	overrides := envOverrides(environ)
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		o := overrides[name]
		v.Set(o.key, o.value)
		c.sources = append(c.sources, "env:"+name)
	}
	return c, nil
}

type override struct {
	key   string
	value interface{}
}

// envOverrides maps APP_REDIS__HOST=x to redis.host. Values are parsed as YAML
// scalars so APP_APP__PORT=8080 stays an int.
func envOverrides(environ []string) map[string]override {
	out := make(map[string]override)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		key := strings.TrimPrefix(name, EnvPrefix)
		if key == "" {
			continue
		}
		key = strings.ToLower(strings.ReplaceAll(key, EnvSeparator, "."))
		out[name] = override{key: key, value: scalar(value)}
	}
	return out
}

func scalar(value string) interface{} {
	var parsed interface{}
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
		return value
	}
	switch parsed.(type) {
	case string, int, float64, bool:
		return parsed
	}
	return value
}

// Stage returns the stage the configuration was loaded for
func (c *Config) Stage() string {
	return c.stage
}

// Get returns the value at a dotted key
func (c *Config) Get(key string) (interface{}, bool) {
	if !c.v.IsSet(key) {
		return nil, false
	}
	return c.v.Get(key), true
}

// GetString returns the value at key as a string
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// AllSettings returns the merged configuration as nested maps
func (c *Config) AllSettings() map[string]interface{} {
	return c.v.AllSettings()
}

// Sources lists the files and environment variables that contributed, in
// merge order
func (c *Config) Sources() []string {
	return append([]string(nil), c.sources...)
}

// Stages lists the stages that have their own file in dir
func Stages(fs afero.Fs, dir string) ([]string, error) {
	if dir == "" {
		dir = DefaultDir
	}
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var stages []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".local.yaml") {
			continue
		}
		stage := strings.TrimSuffix(name, ".yaml")
		if stage == "default" || stage == "local" {
			continue
		}
		stages = append(stages, stage)
	}
	sort.Strings(stages)
	return stages, nil
}
