// Package builtin contains the scaffold modules shipped with the boilerplate.
package builtin

import (
	"github.com/robodev-projects/workers-e7408123-sub001/internal/executors"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/modules"
)

// AppModule is the root NestJS module every feature module is wired into
const AppModule = "src/app.module.ts"

// Modules returns every builtin module
func Modules() []modules.Module {
	return []modules.Module{
		Core{},
		Database{},
		Redis{},
		Queue{},
		Email{},
		Media{},
		Auth{},
		Push{},
	}
}

// Registry returns a registry holding the builtin modules
func Registry() *modules.Registry {
	return modules.NewRegistry().MustRegister(Modules()...)
}

// wire imports a NestJS module class into the app module and adds it to
// @Module({ imports })
func wire(ctx *modules.InitContext, class, from string) {
	ctx.Request(executors.Import{File: AppModule, Symbol: class, From: from})
	ctx.Request(executors.DecoratorElement{
		File:      AppModule,
		Decorator: "Module",
		Property:  "imports",
		Element:   class,
		Match:     class,
	})
}

// source renders a module source file from its template
func source(ctx *modules.InitContext, path, template string, vars map[string]interface{}) {
	ctx.Request(executors.FileTemplate{Path: path, Template: template, Vars: vars})
}

// setting writes a module-owned key to the default dot-config layer
func setting(ctx *modules.InitContext, key string, value interface{}) {
	ctx.Request(executors.ConfigValue{Key: key, Value: value, Layer: executors.LayerDefault, Overwrite: true})
}

// settingIf writes a module-owned key only while cond holds
func settingIf(ctx *modules.InitContext, cond bool, key string, value interface{}) {
	ctx.RequestIf(cond, executors.ConfigValue{Key: key, Value: value, Layer: executors.LayerDefault, Overwrite: true})
}

// exampleEnv documents a secret in .env.example
func exampleEnv(ctx *modules.InitContext, cond bool, name, comment string) {
	ctx.RequestIf(cond, executors.EnvVariable{File: ".env.example", Name: name, Comment: comment})
}

// awsEnv must emit identical payloads from every module using AWS
func awsEnv(ctx *modules.InitContext, cond bool) {
	exampleEnv(ctx, cond, "AWS_REGION", "AWS")
	exampleEnv(ctx, cond, "AWS_ACCESS_KEY_ID", "")
	exampleEnv(ctx, cond, "AWS_SECRET_ACCESS_KEY", "")
}
