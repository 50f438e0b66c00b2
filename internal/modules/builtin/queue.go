package builtin

import (
	"github.com/robodev-projects/workers-e7408123-sub001/internal/executors"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/modules"
)

// Queue adds BullMQ job queues on top of Redis
type Queue struct{}

func (Queue) Name() string        { return "queue" }
func (Queue) Description() string { return "BullMQ background job queues" }
func (Queue) DependsOn() []string { return []string{"redis"} }

func (Queue) Schema() *modules.Schema {
	return modules.NewSchema(
		&modules.Field{
			Name:        "queues",
			Description: "Queues registered at startup",
			Type:        modules.FieldTypeList,
			Default:     []string{"default"},
			Prompt:      "Queue names (comma separated)",
		},
		&modules.Field{Name: "prefix", Description: "Redis key prefix", Type: modules.FieldTypeString, Default: "bull"},
	)
}

func (Queue) Init(ctx *modules.InitContext) error {
	cfg := ctx.Config()

	ctx.Request(executors.Dependency{Name: "@nestjs/bullmq", Version: "^10.1.0"})
	ctx.Request(executors.Dependency{Name: "bullmq", Version: "^5.1.0"})
	setting(ctx, "queue.prefix", cfg.String("prefix"))

	source(ctx, "src/queue/queue.module.ts", "queue/queue.module.ts", map[string]interface{}{
		"queues": cfg.Strings("queues"),
	})
	wire(ctx, "QueueModule", "./queue/queue.module")
	return nil
}
