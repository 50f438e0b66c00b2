package builtin

import (
	"github.com/robodev-projects/workers-e7408123-sub001/internal/executors"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/modules"
)

// Core sets up the application shell: the NestJS runtime, layered
// configuration and the module path alias. It is always enabled.
type Core struct{}

func (Core) Name() string        { return "core" }
func (Core) Description() string { return "NestJS runtime, layered configuration and path aliases" }
func (Core) DependsOn() []string { return nil }
func (Core) Required() bool      { return true }

func (Core) Schema() *modules.Schema {
	return modules.NewSchema(
		&modules.Field{
			Name:        "port",
			Description: "HTTP port the application listens on",
			Type:        modules.FieldTypeInt,
			Default:     3000,
			Prompt:      "Application port",
		},
		&modules.Field{
			Name:        "configDir",
			Description: "Directory holding the layered configuration files",
			Type:        modules.FieldTypeString,
			Default:     ".config",
		},
	)
}

func (Core) Init(ctx *modules.InitContext) error {
	cfg := ctx.Config()

	ctx.Request(executors.Dependency{Name: "@nestjs/common", Version: "^10.3.0"})
	ctx.Request(executors.Dependency{Name: "@nestjs/core", Version: "^10.3.0"})
	ctx.Request(executors.Dependency{Name: "config", Version: "^3.3.9"})
	ctx.Request(executors.Dependency{Name: "@types/config", Version: "^3.3.3", Dev: true})

	ctx.Request(executors.TSConfigPath{Alias: "@modules/*", Paths: []string{"src/modules/*"}})

	setting(ctx, "app.name", ctx.ProjectName())
	setting(ctx, "app.port", cfg.Int("port"))

	ctx.Request(executors.EnvVariable{Name: "NODE_ENV", Value: "development"})
	ctx.Request(executors.EnvVariable{Name: "NODE_CONFIG_DIR", Value: cfg.String("configDir")})
	exampleEnv(ctx, true, "NODE_ENV", "")
	exampleEnv(ctx, true, "NODE_CONFIG_DIR", "")

	// an existing application shell is never replaced
	source(ctx, AppModule, "core/app.module.ts", nil)
	source(ctx, "src/main.ts", "core/main.ts", nil)
	source(ctx, "src/config/config.service.ts", "core/config.service.ts", nil)
	source(ctx, "src/config/config.module.ts", "core/config.module.ts", nil)
	wire(ctx, "AppConfigModule", "./config/config.module")
	return nil
}
