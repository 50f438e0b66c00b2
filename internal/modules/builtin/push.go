package builtin

import (
	"github.com/robodev-projects/workers-e7408123-sub001/internal/executors"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/modules"
)

// Push adds push notifications delivered through a queue
type Push struct{}

func (Push) Name() string        { return "push" }
func (Push) Description() string { return "Push notifications via Firebase or Expo" }
func (Push) DependsOn() []string { return []string{"queue"} }

func (Push) Schema() *modules.Schema {
	return modules.NewSchema(
		&modules.Field{
			Name:        "provider",
			Description: "Push provider",
			Type:        modules.FieldTypeSelect,
			Options:     []string{"fcm", "expo"},
			Default:     "fcm",
			Prompt:      "Push provider",
		},
	)
}

func (Push) Init(ctx *modules.InitContext) error {
	provider := ctx.Config().String("provider")
	fcm := provider == "fcm"
	expo := provider == "expo"

	setting(ctx, "push.provider", provider)

	ctx.RequestIf(fcm, executors.Dependency{Name: "firebase-admin", Version: "^12.0.0"})
	exampleEnv(ctx, fcm, "FIREBASE_SERVICE_ACCOUNT", "Push")

	ctx.RequestIf(expo, executors.Dependency{Name: "expo-server-sdk", Version: "^3.7.0"})
	exampleEnv(ctx, expo, "EXPO_ACCESS_TOKEN", "Push")

	source(ctx, "src/push/push.module.ts", "push/push.module.ts", nil)
	wire(ctx, "PushModule", "./push/push.module")
	return nil
}
