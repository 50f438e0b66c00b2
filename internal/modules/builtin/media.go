package builtin

import (
	"github.com/robodev-projects/workers-e7408123-sub001/internal/executors"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/modules"
)

// Media storage providers
const (
	MediaLocal = "local"
	MediaS3    = "s3"
)

// Media adds file uploads backed by local disk or S3
type Media struct{}

func (Media) Name() string        { return "media" }
func (Media) Description() string { return "File uploads stored on local disk or S3" }
func (Media) DependsOn() []string { return []string{"core"} }

func (Media) Schema() *modules.Schema {
	return modules.NewSchema(
		&modules.Field{
			Name:        "provider",
			Description: "Storage provider",
			Type:        modules.FieldTypeSelect,
			Options:     []string{MediaLocal, MediaS3},
			Default:     MediaLocal,
			Prompt:      "Storage provider",
		},
		&modules.Field{Name: "bucket", Description: "Bucket or directory name", Type: modules.FieldTypeString, Default: "uploads"},
		&modules.Field{Name: "maxUploadSize", Description: "Maximum upload size in bytes", Type: modules.FieldTypeInt, Default: 10485760},
		&modules.Field{Name: "publicUrl", Description: "Base URL files are served from", Type: modules.FieldTypeString, Default: "http://localhost:3000/uploads"},
	)
}

func (Media) Init(ctx *modules.InitContext) error {
	cfg := ctx.Config()
	s3 := cfg.String("provider") == MediaS3

	setting(ctx, "media.provider", cfg.String("provider"))
	setting(ctx, "media.bucket", cfg.String("bucket"))
	setting(ctx, "media.maxUploadSize", cfg.Int("maxUploadSize"))
	setting(ctx, "media.publicUrl", cfg.String("publicUrl"))

	ctx.Request(executors.Dependency{Name: "multer", Version: "^1.4.5-lts.1"})
	ctx.Request(executors.Dependency{Name: "@types/multer", Version: "^1.4.11", Dev: true})

	ctx.RequestIf(s3, executors.Dependency{Name: "@aws-sdk/client-s3", Version: "^3.490.0"})
	ctx.RequestIf(s3, executors.Dependency{Name: "@aws-sdk/s3-request-presigner", Version: "^3.490.0"})
	awsEnv(ctx, s3)
	ctx.RequestIf(s3, executors.ComposeService{
		Name: "minio",
		Service: map[string]interface{}{
			"image":       "minio/minio:latest",
			"command":     "server /data --console-address :9001",
			"restart":     "unless-stopped",
			"ports":       []string{"9000:9000", "9001:9001"},
			"environment": map[string]interface{}{"MINIO_ROOT_USER": "minio", "MINIO_ROOT_PASSWORD": "minio123"},
			"volumes":     []string{"minio-data:/data"},
		},
		Volumes: []string{"minio-data"},
	})

	source(ctx, "src/media/storage.service.ts", "media/storage.service.ts", nil)
	source(ctx, "src/media/media.module.ts", "media/media.module.ts", nil)
	wire(ctx, "MediaModule", "./media/media.module")
	return nil
}
