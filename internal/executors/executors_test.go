package executors

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/engine"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/modules"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/mutate/jsonfile"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/templates"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/workspace"
)

const packageFixture = `{
  "name": "workers",
  "scripts": {
    "build": "nest build"
  },
  "dependencies": {
    "@nestjs/common": "^10.3.0",
    "rxjs": "^7.8.1"
  },
  "devDependencies": {
    "typescript": "^5.4.0"
  }
}
`

func present(p modules.Payload) *engine.Request {
	return &engine.Request{Type: p.RequestType(), Module: "test", State: modules.StatePresent, Payload: p}
}

func absent(p modules.Payload) *engine.Request {
	return &engine.Request{Type: p.RequestType(), Module: "test", State: modules.StateAbsent, Payload: p}
}

func newWorkspace(t *testing.T, files map[string]string) (*workspace.Workspace, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for p, content := range files {
		require.NoError(t, afero.WriteFile(fs, p, []byte(content), 0644))
	}
	return workspace.New(fs), fs
}

// converge runs Check and, when needed, Apply. It reports whether Apply ran.
func converge(t *testing.T, ex engine.Executor, ws *workspace.Workspace, req *engine.Request) bool {
	t.Helper()
	_, err := ex.Key(req)
	require.NoError(t, err)
	needed, err := ex.Check(context.Background(), ws, req)
	require.NoError(t, err)
	if !needed {
		return false
	}
	_, err = ex.Apply(context.Background(), ws, req)
	require.NoError(t, err)
	return true
}

func TestDependencyAddsAndSorts(t *testing.T) {
	ws, _ := newWorkspace(t, map[string]string{"package.json": packageFixture})
	ex := DependencyExecutor{}

	assert.True(t, converge(t, ex, ws, present(Dependency{Name: "@nestjs/bullmq", Version: "^10.1.0"})))
	assert.True(t, converge(t, ex, ws, present(Dependency{Name: "@types/nodemailer", Version: "^6.4.14", Dev: true})))

	hooks := engine.NewHooks()
	ex.RegisterHooks(hooks)
	require.NoError(t, hooks.Run(context.Background(), engine.AfterAll, ws))

	doc, err := ws.JSON("package.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"@nestjs/bullmq", "@nestjs/common", "rxjs"}, doc.Keys("dependencies"))
	assert.Equal(t, []string{"@types/nodemailer", "typescript"}, doc.Keys("devDependencies"))
}

func TestDependencyNeverDowngrades(t *testing.T) {
	ws, _ := newWorkspace(t, map[string]string{"package.json": packageFixture})
	ex := DependencyExecutor{}

	assert.False(t, converge(t, ex, ws, present(Dependency{Name: "rxjs", Version: "^7.0.0"})))
	assert.True(t, converge(t, ex, ws, present(Dependency{Name: "@nestjs/common", Version: "^10.4.1"})))

	doc, err := ws.JSON("package.json")
	require.NoError(t, err)
	v, _ := doc.GetString(jsonfile.Path("dependencies", "@nestjs/common"))
	assert.Equal(t, "^10.4.1", v)
}

func TestDependencyStaysInUserSection(t *testing.T) {
	ws, _ := newWorkspace(t, map[string]string{"package.json": packageFixture})

	assert.True(t, converge(t, DependencyExecutor{}, ws, present(Dependency{Name: "typescript", Version: "^5.5.0"})))

	doc, err := ws.JSON("package.json")
	require.NoError(t, err)
	assert.False(t, doc.Exists("dependencies.typescript"))
	v, _ := doc.GetString("devDependencies.typescript")
	assert.Equal(t, "^5.5.0", v)
}

func TestDependencyRemove(t *testing.T) {
	ws, _ := newWorkspace(t, map[string]string{"package.json": packageFixture})
	ex := DependencyExecutor{}

	assert.True(t, converge(t, ex, ws, absent(Dependency{Name: "rxjs"})))
	assert.False(t, converge(t, ex, ws, absent(Dependency{Name: "rxjs"})))
}

func TestDependencySectionsShareOneKey(t *testing.T) {
	ex := DependencyExecutor{}
	prod, err := ex.Key(present(Dependency{Name: "prisma", Version: "^5.0.0"}))
	require.NoError(t, err)
	dev, err := ex.Key(present(Dependency{Name: "prisma", Version: "^5.0.0", Dev: true}))
	require.NoError(t, err)
	assert.Equal(t, prod, dev)

	executors, err := Builtin(Options{Project: "workers"})
	require.NoError(t, err)
	q := engine.NewQueue()
	q.Push(&engine.Request{Type: TypePackageDependency, Module: "database", State: modules.StatePresent, Payload: Dependency{Name: "prisma", Version: "^5.0.0", Dev: true}})
	q.Push(&engine.Request{Type: TypePackageDependency, Module: "media", State: modules.StatePresent, Payload: Dependency{Name: "prisma", Version: "^5.0.0"}})
	_, err = q.Resolve(executors)
	var conflict *engine.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "prisma", conflict.Key)
}

func TestSatisfies(t *testing.T) {
	tests := []struct {
		current, want string
		ok            bool
	}{
		{"^10.3.0", "^10.3.0", true},
		{"^10.4.0", "^10.3.0", true},
		{"^10.2.0", "^10.3.0", false},
		{"~5.0.0", "^5.0.1", false},
		{"5.x", "^4.0.0", true},
		{"latest", "^1.0.0", true},
		{"github:org/repo", "^1.0.0", true},
		{"^1.0.0", "next", false},
		{">=2.0.0 <3.0.0", "^2.1.0", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, Satisfies(tt.current, tt.want), "%s vs %s", tt.current, tt.want)
	}
}

func TestScriptKeepsUserEdits(t *testing.T) {
	ws, _ := newWorkspace(t, map[string]string{"package.json": packageFixture})
	ex := ScriptExecutor{}

	assert.True(t, converge(t, ex, ws, present(Script{Name: "prisma:migrate", Command: "prisma migrate deploy"})))
	assert.False(t, converge(t, ex, ws, present(Script{Name: "build", Command: "nest build --webpack"})))
	assert.True(t, converge(t, ex, ws, present(Script{Name: "build", Command: "nest build --webpack", Overwrite: true})))

	// a changed script is not removed
	assert.False(t, converge(t, ex, ws, absent(Script{Name: "prisma:migrate", Command: "prisma migrate dev"})))
	assert.True(t, converge(t, ex, ws, absent(Script{Name: "prisma:migrate", Command: "prisma migrate deploy"})))
}

func TestTSConfigPath(t *testing.T) {
	ws, _ := newWorkspace(t, map[string]string{"tsconfig.json": "{\n  \"compilerOptions\": {\n    \"baseUrl\": \"./\"\n  }\n}\n"})
	ex := TSConfigExecutor{}
	p := TSConfigPath{Alias: "@modules/*", Paths: []string{"src/modules/*"}}

	key, err := ex.Key(present(p))
	require.NoError(t, err)
	assert.Equal(t, "tsconfig.json:@modules/*", key)

	assert.True(t, converge(t, ex, ws, present(p)))
	assert.False(t, converge(t, ex, ws, present(p)))

	doc, err := ws.JSON("tsconfig.json")
	require.NoError(t, err)
	got, ok := doc.Get(jsonfile.Path("compilerOptions", "paths", "@modules/*"))
	require.True(t, ok)
	assert.Equal(t, []interface{}{"src/modules/*"}, got)

	assert.True(t, converge(t, ex, ws, absent(p)))
}

func TestDotConfigFiles(t *testing.T) {
	ex := NewDotConfigExecutor(".config")
	tests := []struct {
		value ConfigValue
		file  string
	}{
		{ConfigValue{Key: "a"}, ".config/default.yaml"},
		{ConfigValue{Key: "a", Layer: LayerStage, Stage: "production"}, ".config/production.yaml"},
		{ConfigValue{Key: "a", Layer: LayerLocal}, ".config/local.yaml"},
		{ConfigValue{Key: "a", Layer: LayerLocal, Stage: "test"}, ".config/test.local.yaml"},
	}
	for _, tt := range tests {
		file, err := ex.File(tt.value)
		require.NoError(t, err)
		assert.Equal(t, tt.file, file)
	}

	_, err := ex.File(ConfigValue{Key: "a", Layer: LayerStage})
	assert.Error(t, err)
	_, err = ex.Key(present(ConfigValue{Key: "a", Layer: "cloud"}))
	assert.Error(t, err)
}

func TestDotConfigKeepsUserEdits(t *testing.T) {
	ws, fs := newWorkspace(t, map[string]string{".config/default.yaml": "# defaults\nredis:\n  host: redis.internal # custom\n"})
	ex := NewDotConfigExecutor(".config")

	assert.False(t, converge(t, ex, ws, present(ConfigValue{Key: "redis.host", Value: "localhost"})))
	assert.True(t, converge(t, ex, ws, present(ConfigValue{Key: "redis.port", Value: 6379})))
	assert.False(t, converge(t, ex, ws, present(ConfigValue{Key: "redis.port", Value: 6379})))

	_, err := ws.Flush(false)
	require.NoError(t, err)
	data, err := afero.ReadFile(fs, ".config/default.yaml")
	require.NoError(t, err)
	assert.Equal(t, "# defaults\nredis:\n  host: redis.internal # custom\n  port: 6379\n", string(data))
}

func TestDotConfigOverwriteAndRemove(t *testing.T) {
	ws, _ := newWorkspace(t, map[string]string{".config/production.yaml": "email:\n  provider: log\n"})
	ex := NewDotConfigExecutor("")
	v := ConfigValue{Key: "email.provider", Value: "ses", Layer: LayerStage, Stage: "production", Overwrite: true}

	assert.True(t, converge(t, ex, ws, present(v)))
	assert.False(t, converge(t, ex, ws, present(v)))
	assert.True(t, converge(t, ex, ws, absent(v)))

	doc, err := ws.YAML(".config/production.yaml")
	require.NoError(t, err)
	assert.False(t, doc.Has("email"))
}

func TestEnvVariable(t *testing.T) {
	ws, fs := newWorkspace(t, map[string]string{".env": "PORT=3000\n"})
	ex := EnvExecutor{}

	assert.True(t, converge(t, ex, ws, present(EnvVariable{Name: "REDIS_URL", Value: "redis://localhost:6379", Comment: "Redis"})))
	assert.False(t, converge(t, ex, ws, present(EnvVariable{Name: "PORT", Value: "8080"})))
	assert.True(t, converge(t, ex, ws, present(EnvVariable{File: ".env.example", Name: "PORT", Value: "3000"})))

	_, err := ws.Flush(false)
	require.NoError(t, err)
	data, err := afero.ReadFile(fs, ".env")
	require.NoError(t, err)
	assert.Equal(t, "PORT=3000\n\n# Redis\nREDIS_URL=redis://localhost:6379\n", string(data))

	assert.True(t, converge(t, ex, ws, absent(EnvVariable{Name: "REDIS_URL"})))
}

func TestComposeService(t *testing.T) {
	ws, fs := newWorkspace(t, nil)
	ex := ComposeExecutor{}
	redis := ComposeService{
		Name: "redis",
		Service: map[string]interface{}{
			"image":   "redis:7-alpine",
			"ports":   []string{"6379:6379"},
			"volumes": []string{"redis-data:/data"},
		},
		Volumes: []string{"redis-data"},
	}

	assert.True(t, converge(t, ex, ws, present(redis)))
	assert.False(t, converge(t, ex, ws, present(redis)))

	_, err := ws.Flush(false)
	require.NoError(t, err)
	data, err := afero.ReadFile(fs, "docker-compose.yml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "services:\n  redis:\n")
	assert.Contains(t, string(data), "image: redis:7-alpine")
	assert.Contains(t, string(data), "volumes:\n  redis-data: {}\n")

	assert.True(t, converge(t, ex, ws, absent(redis)))
	doc, err := ws.YAML("docker-compose.yml")
	require.NoError(t, err)
	assert.False(t, doc.Has("services"))
	assert.False(t, doc.Has("volumes"))

	// the emptied compose file is removed rather than left blank
	changes, err := ws.Flush(false)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.True(t, changes[0].Deleted)
	exists, err := afero.Exists(fs, "docker-compose.yml")
	require.NoError(t, err)
	assert.False(t, exists)
}

const appModuleFixture = `import { Module } from '@nestjs/common';

@Module({
  imports: [],
})
export class AppModule {}
`

func TestImportAndDecorator(t *testing.T) {
	ws, _ := newWorkspace(t, map[string]string{"src/app.module.ts": appModuleFixture})

	imp := Import{File: "src/app.module.ts", Symbol: "QueueModule", From: "./modules/queue/queue.module"}
	dec := DecoratorElement{File: "src/app.module.ts", Decorator: "Module", Property: "imports", Element: "QueueModule"}

	assert.True(t, converge(t, ImportExecutor{}, ws, present(imp)))
	assert.True(t, converge(t, DecoratorExecutor{}, ws, present(dec)))
	assert.False(t, converge(t, ImportExecutor{}, ws, present(imp)))
	assert.False(t, converge(t, DecoratorExecutor{}, ws, present(dec)))

	f, err := ws.TypeScript("src/app.module.ts")
	require.NoError(t, err)
	assert.Contains(t, string(f.Bytes()), "import { QueueModule } from './modules/queue/queue.module';")
	assert.Contains(t, string(f.Bytes()), "imports: [QueueModule],")

	assert.True(t, converge(t, DecoratorExecutor{}, ws, absent(dec)))
	assert.True(t, converge(t, ImportExecutor{}, ws, absent(imp)))
	assert.Equal(t, appModuleFixture, string(f.Bytes()))
}

func TestTypeScriptAbsentOnMissingFile(t *testing.T) {
	ws, _ := newWorkspace(t, nil)

	assert.False(t, converge(t, ImportExecutor{}, ws, absent(Import{File: "src/app.module.ts", Symbol: "A", From: "./a"})))
	assert.False(t, converge(t, DecoratorExecutor{}, ws, absent(DecoratorElement{File: "src/app.module.ts", Decorator: "Module", Property: "imports", Element: "A"})))

	_, err := ImportExecutor{}.Check(context.Background(), ws, present(Import{File: "src/app.module.ts", Symbol: "A", From: "./a"}))
	assert.Error(t, err)
}

func TestFileTemplate(t *testing.T) {
	tmpl := templates.NewEngineFS(fstest.MapFS{
		"queue/queue.module.ts.tmpl": &fstest.MapFile{Data: []byte("// {{.ProjectName}} {{.Module}}\nexport class QueueModule {}\n")},
	})
	ex := NewTemplateExecutor(tmpl, "workers", nil)
	ft := FileTemplate{Path: "src/modules/queue/queue.module.ts", Template: "queue/queue.module.ts"}

	ws, fs := newWorkspace(t, nil)
	assert.True(t, converge(t, ex, ws, present(ft)))
	assert.False(t, converge(t, ex, ws, present(ft)))
	_, err := ws.Flush(false)
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "src/modules/queue/queue.module.ts")
	require.NoError(t, err)
	assert.Equal(t, "// workers test\nexport class QueueModule {}\n", string(data))

	// unchanged file is removed
	assert.True(t, converge(t, ex, workspace.New(fs), absent(ft)))

	// modified file is kept
	require.NoError(t, afero.WriteFile(fs, ft.Path, []byte("// mine\n"), 0644))
	assert.False(t, converge(t, ex, workspace.New(fs), absent(ft)))

	_, err = ex.Key(present(FileTemplate{Path: "x.ts", Template: "missing"}))
	assert.Error(t, err)
	_, err = ex.Key(present(FileTemplate{Path: "../x.ts", Template: "queue/queue.module.ts"}))
	assert.Error(t, err)
}

func TestBuiltinRegistersEveryType(t *testing.T) {
	executors, err := Builtin(Options{Project: "workers"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		TypeComposeService,
		TypeDotConfig,
		TypeEnvVariable,
		TypeFileTemplate,
		TypePackageDependency,
		TypePackageScript,
		TypeTSConfigPath,
		TypeDecoratorArray,
		TypeImport,
	}, executors.Types())
}
