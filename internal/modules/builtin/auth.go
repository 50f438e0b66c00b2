package builtin

import (
	"github.com/robodev-projects/workers-e7408123-sub001/internal/executors"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/modules"
)

// Auth adds Passport authentication with JWT and Google strategies
type Auth struct{}

func (Auth) Name() string        { return "auth" }
func (Auth) Description() string { return "Passport authentication (JWT, Google)" }
func (Auth) DependsOn() []string { return []string{"database"} }

func (Auth) Schema() *modules.Schema {
	return modules.NewSchema(
		&modules.Field{
			Name:        "strategies",
			Description: "Enabled authentication strategies, the first is the default",
			Type:        modules.FieldTypeList,
			Options:     []string{"jwt", "google"},
			Default:     []string{"jwt"},
			Prompt:      "Strategies (comma separated)",
		},
		&modules.Field{Name: "tokenTtl", Description: "Access token lifetime", Type: modules.FieldTypeString, Default: "15m"},
	)
}

func (Auth) Init(ctx *modules.InitContext) error {
	cfg := ctx.Config()
	strategies := cfg.Strings("strategies")
	if len(strategies) == 0 {
		strategies = []string{"jwt"}
	}
	jwt := cfg.Has("strategies", "jwt")
	google := cfg.Has("strategies", "google")

	ctx.Request(executors.Dependency{Name: "@nestjs/passport", Version: "^10.0.3"})
	ctx.Request(executors.Dependency{Name: "passport", Version: "^0.7.0"})

	ctx.RequestIf(jwt, executors.Dependency{Name: "@nestjs/jwt", Version: "^10.2.0"})
	ctx.RequestIf(jwt, executors.Dependency{Name: "passport-jwt", Version: "^4.0.1"})
	ctx.RequestIf(jwt, executors.Dependency{Name: "@types/passport-jwt", Version: "^4.0.0", Dev: true})
	settingIf(ctx, jwt, "auth.jwt.expiresIn", cfg.String("tokenTtl"))
	exampleEnv(ctx, jwt, "JWT_SECRET", "Auth")

	ctx.RequestIf(google, executors.Dependency{Name: "passport-google-oauth20", Version: "^2.0.0"})
	ctx.RequestIf(google, executors.Dependency{Name: "@types/passport-google-oauth20", Version: "^2.0.14", Dev: true})
	exampleEnv(ctx, google, "GOOGLE_CLIENT_ID", "")
	exampleEnv(ctx, google, "GOOGLE_CLIENT_SECRET", "")

	source(ctx, "src/auth/auth.module.ts", "auth/auth.module.ts", map[string]interface{}{
		"strategies": strategies,
	})
	wire(ctx, "AuthModule", "./auth/auth.module")
	return nil
}
