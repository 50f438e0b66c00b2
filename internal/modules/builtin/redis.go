package builtin

import (
	"fmt"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/executors"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/modules"
)

// Redis adds an ioredis client shared by the other modules
type Redis struct{}

func (Redis) Name() string        { return "redis" }
func (Redis) Description() string { return "Redis client and local Redis service" }
func (Redis) DependsOn() []string { return []string{"core"} }

func (Redis) Schema() *modules.Schema {
	return modules.NewSchema(
		&modules.Field{Name: "host", Description: "Redis host", Type: modules.FieldTypeString, Default: "localhost"},
		&modules.Field{Name: "port", Description: "Redis port", Type: modules.FieldTypeInt, Default: 6379},
	)
}

func (Redis) Init(ctx *modules.InitContext) error {
	cfg := ctx.Config()

	ctx.Request(executors.Dependency{Name: "ioredis", Version: "^5.3.2"})
	setting(ctx, "redis.host", cfg.String("host"))
	setting(ctx, "redis.port", cfg.Int("port"))

	ctx.Request(executors.ComposeService{
		Name: "redis",
		Service: map[string]interface{}{
			"image":   "redis:7-alpine",
			"restart": "unless-stopped",
			"ports":   []string{fmt.Sprintf("%d:6379", cfg.Int("port"))},
			"volumes": []string{"redis-data:/data"},
		},
		Volumes: []string{"redis-data"},
	})

	source(ctx, "src/redis/redis.module.ts", "redis/redis.module.ts", nil)
	wire(ctx, "RedisModule", "./redis/redis.module")
	return nil
}
