package jsonfile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const packageJSON = `{
  "name": "workers",
  "version": "0.0.1",
  "scripts": {
    "build": "nest build"
  },
  "dependencies": {
    "@nestjs/common": "^10.0.0",
    "@nestjs/core": "^10.0.0"
  }
}
`

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte(`{"name": `))
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestParseEmptyIsObject(t *testing.T) {
	doc, err := Parse([]byte("  \n"))
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(doc.Bytes()))
}

func TestPathEscapesScopedPackages(t *testing.T) {
	assert.Equal(t, `dependencies.\@nestjs/core`, Path("dependencies", "@nestjs/core"))
	assert.Equal(t, `files.tsconfig\.build\.json`, Path("files", "tsconfig.build.json"))
}

func TestGetScopedDependency(t *testing.T) {
	doc, err := Parse([]byte(packageJSON))
	require.NoError(t, err)

	version, ok := doc.GetString(Path("dependencies", "@nestjs/core"))
	require.True(t, ok)
	assert.Equal(t, "^10.0.0", version)

	_, ok = doc.GetString(Path("dependencies", "@nestjs/bullmq"))
	assert.False(t, ok)
}

func TestSetPreservesOrderAndIndent(t *testing.T) {
	doc, err := Parse([]byte(packageJSON))
	require.NoError(t, err)

	require.NoError(t, doc.Set(Path("dependencies", "@nestjs/bullmq"), "^10.1.0"))
	require.NoError(t, doc.SortObject("dependencies"))
	assert.True(t, doc.Dirty())

	out := string(doc.Bytes())
	assert.Equal(t, []string{"name", "version", "scripts", "dependencies"}, doc.Keys(""))
	assert.Equal(t, []string{"@nestjs/bullmq", "@nestjs/common", "@nestjs/core"}, doc.Keys("dependencies"))
	assert.Contains(t, out, "\n  \"dependencies\": {\n    \"@nestjs/bullmq\": \"^10.1.0\",")
	assert.True(t, strings.HasSuffix(out, "}\n"))
}

func TestSetSameValueIsNotDirty(t *testing.T) {
	doc, err := Parse([]byte(packageJSON))
	require.NoError(t, err)

	require.NoError(t, doc.Set(Path("scripts", "build"), "nest build"))
	require.NoError(t, doc.SortObject("dependencies"))
	assert.False(t, doc.Dirty())
	assert.Equal(t, packageJSON, string(doc.Bytes()))
}

func TestEqualObjectsIgnoreKeyOrder(t *testing.T) {
	doc, err := Parse([]byte(`{"compilerOptions": {"paths": {"@app/*": ["src/*"]}, "strict": true}}`))
	require.NoError(t, err)

	assert.True(t, doc.Equal("compilerOptions", map[string]interface{}{
		"strict": true,
		"paths":  map[string]interface{}{"@app/*": []string{"src/*"}},
	}))
	assert.False(t, doc.Equal(Path("compilerOptions", "strict"), false))
}

func TestDelete(t *testing.T) {
	doc, err := Parse([]byte(packageJSON))
	require.NoError(t, err)

	require.NoError(t, doc.Delete(Path("dependencies", "@nestjs/core")))
	assert.False(t, doc.Exists(Path("dependencies", "@nestjs/core")))
	assert.True(t, doc.Dirty())

	other, err := Parse([]byte(packageJSON))
	require.NoError(t, err)
	require.NoError(t, other.Delete(Path("dependencies", "missing")))
	assert.False(t, other.Dirty())
}

func TestDetectIndent(t *testing.T) {
	assert.Equal(t, "    ", detectIndent([]byte("{\n    \"a\": 1\n}")))
	assert.Equal(t, "\t", detectIndent([]byte("{\n\t\"a\": 1\n}")))
	assert.Equal(t, "  ", detectIndent([]byte(`{"a":1}`)))
}
