package workspace

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for p, content := range files {
		require.NoError(t, afero.WriteFile(fs, p, []byte(content), 0644))
	}
	return fs
}

func TestJSONMutatorIsCached(t *testing.T) {
	ws := New(newFs(t, map[string]string{"package.json": "{\n  \"name\": \"workers\"\n}\n"}))

	a, err := ws.JSON("package.json")
	require.NoError(t, err)
	b, err := ws.JSON("./package.json")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.True(t, ws.Loaded("package.json"))

	_, err = ws.YAML("package.json")
	assert.Error(t, err)
}

func TestFlushWritesDirtyFiles(t *testing.T) {
	fs := newFs(t, map[string]string{"package.json": "{\n  \"name\": \"workers\"\n}\n"})
	ws := New(fs)

	pkg, err := ws.JSON("package.json")
	require.NoError(t, err)
	require.NoError(t, pkg.Set("version", "1.0.0"))

	env, err := ws.Env(".env")
	require.NoError(t, err)
	env.Set("PORT", "3000", "")

	// opened but untouched
	_, err = ws.YAML(".config/default.yaml")
	require.NoError(t, err)

	changes, err := ws.Flush(false)
	require.NoError(t, err)
	require.Len(t, changes, 2)

	assert.Equal(t, ".env", changes[0].Path)
	assert.True(t, changes[0].Created)
	assert.Equal(t, "package.json", changes[1].Path)
	assert.False(t, changes[1].Created)

	data, err := afero.ReadFile(fs, "package.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version": "1.0.0"`)

	exists, err := afero.Exists(fs, ".config/default.yaml")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFlushDryRunWritesNothing(t *testing.T) {
	fs := newFs(t, nil)
	ws := New(fs)

	doc, err := ws.YAML(".config/default.yaml")
	require.NoError(t, err)
	require.NoError(t, doc.Set("localhost", "redis", "host"))

	changes, err := ws.Flush(true)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "redis:\n  host: localhost\n", string(changes[0].After))

	exists, err := afero.Exists(fs, ".config/default.yaml")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTextCreateAndDelete(t *testing.T) {
	fs := newFs(t, map[string]string{"src/old.ts": "export {};\n"})
	ws := New(fs)

	created, err := ws.Text("src/modules/queue/queue.module.ts")
	require.NoError(t, err)
	assert.False(t, created.Exists())
	created.Set([]byte("export class QueueModule {}\n"))

	old, err := ws.Text("src/old.ts")
	require.NoError(t, err)
	old.Delete()

	ok, err := ws.Exists("src/old.ts")
	require.NoError(t, err)
	assert.False(t, ok)

	changes, err := ws.Flush(false)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.True(t, changes[0].Created)
	assert.True(t, changes[1].Deleted)

	exists, _ := afero.Exists(fs, "src/old.ts")
	assert.False(t, exists)
	data, err := afero.ReadFile(fs, "src/modules/queue/queue.module.ts")
	require.NoError(t, err)
	assert.Equal(t, "export class QueueModule {}\n", string(data))
}

func TestSecondFlushIsEmpty(t *testing.T) {
	ws := New(newFs(t, nil))
	env, err := ws.Env(".env")
	require.NoError(t, err)
	env.Set("A", "1", "")

	_, err = ws.Flush(false)
	require.NoError(t, err)

	changes, err := ws.Flush(false)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestTypeScriptRequiresFile(t *testing.T) {
	ws := New(newFs(t, nil))
	_, err := ws.TypeScript("src/app.module.ts")
	assert.Error(t, err)
}

func TestTypeScriptOpensFileCreatedInRun(t *testing.T) {
	fs := newFs(t, nil)
	ws := New(fs)

	text, err := ws.Text("src/app.module.ts")
	require.NoError(t, err)
	text.Set([]byte("import { Module } from '@nestjs/common';\n\n@Module({\n  imports: [],\n})\nexport class AppModule {}\n"))

	f, err := ws.TypeScript("./src/app.module.ts")
	require.NoError(t, err)
	_, err = f.EnsureImport("UsersModule", "./users/users.module")
	require.NoError(t, err)

	again, err := ws.TypeScript("src/app.module.ts")
	require.NoError(t, err)
	assert.Same(t, f, again)

	changes, err := ws.Flush(false)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.True(t, changes[0].Created)

	data, err := afero.ReadFile(fs, "src/app.module.ts")
	require.NoError(t, err)
	assert.Contains(t, string(data), "import { UsersModule } from './users/users.module';")
	assert.Contains(t, string(data), "export class AppModule {}")
}

func TestTypeScriptPromotionKeepsCreation(t *testing.T) {
	fs := newFs(t, nil)
	ws := New(fs)

	text, err := ws.Text("src/main.ts")
	require.NoError(t, err)
	text.Set([]byte("export const port = 3000;\n"))

	// opened but not edited: the created file is still written
	_, err = ws.TypeScript("src/main.ts")
	require.NoError(t, err)
	_, err = ws.Flush(false)
	require.NoError(t, err)

	exists, err := afero.Exists(fs, "src/main.ts")
	require.NoError(t, err)
	assert.True(t, exists)

	missing, err := New(fs).Text("src/other.ts")
	require.NoError(t, err)
	assert.False(t, missing.Exists())
}

func TestFlushRemovesEmptiedDocuments(t *testing.T) {
	fs := newFs(t, map[string]string{"docker-compose.yml": "services:\n  redis:\n    image: redis:7-alpine\n"})
	ws := New(fs)

	doc, err := ws.YAML("docker-compose.yml")
	require.NoError(t, err)
	require.NoError(t, doc.Delete("services", "redis"))

	pending, err := ws.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].Deleted)
	exists, err := afero.Exists(fs, "docker-compose.yml")
	require.NoError(t, err)
	assert.True(t, exists, "dry run keeps the file")

	_, err = ws.Flush(false)
	require.NoError(t, err)
	exists, err = afero.Exists(fs, "docker-compose.yml")
	require.NoError(t, err)
	assert.False(t, exists)

	// a document that never existed and stays empty is not created
	env, err := ws.Env(".env")
	require.NoError(t, err)
	env.Set("A", "1", "")
	env.Delete("A")
	changes, err := ws.Flush(false)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestCleanRejectsEscapes(t *testing.T) {
	for _, p := range []string{"../x", "/etc/passwd", "a/../../b", "."} {
		_, err := Clean(p)
		assert.Error(t, err, p)
	}
	cleaned, err := Clean("src/./app.module.ts")
	require.NoError(t, err)
	assert.Equal(t, "src/app.module.ts", cleaned)
}

func TestHash(t *testing.T) {
	ws := New(newFs(t, map[string]string{"a.txt": "hello"}))
	h, ok, err := ws.Hash("a.txt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, HashBytes([]byte("hello")), h)

	_, ok, err = ws.Hash("missing.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}
