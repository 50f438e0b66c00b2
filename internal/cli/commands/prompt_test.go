package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/modules/builtin"
)

func TestParseSets(t *testing.T) {
	schema := builtin.Email{}.Schema()

	values, err := parseSets(schema, []string{"provider=smtp", "smtpPort=2525", "from=noreply@example.com", "extra=true"})
	require.NoError(t, err)
	assert.Equal(t, "smtp", values["provider"])
	assert.Equal(t, 2525, values["smtpPort"])
	assert.Equal(t, "noreply@example.com", values["from"])
	assert.Equal(t, true, values["extra"])

	_, err = parseSets(schema, []string{"provider=pigeon"})
	assert.ErrorContains(t, err, "not one of")

	_, err = parseSets(schema, []string{"=x"})
	assert.ErrorContains(t, err, "expected key=value")
}

func TestScalar(t *testing.T) {
	assert.Equal(t, 42, scalar("42"))
	assert.Equal(t, false, scalar("false"))
	assert.Equal(t, "hello", scalar("hello"))
	assert.Equal(t, "", scalar(""))
	assert.Equal(t, "[a", scalar("[a"))
}

func TestMerge(t *testing.T) {
	base := map[string]interface{}{"a": 1, "b": 2}
	got := merge(base, map[string]interface{}{"b": 3})
	assert.Equal(t, map[string]interface{}{"a": 1, "b": 3}, got)
	assert.Equal(t, 2, base["b"])
	assert.Empty(t, merge(nil, nil))
}

func TestModuleStatuses(t *testing.T) {
	registry := builtin.Registry()
	statuses := moduleStatuses(registry, map[string]map[string]interface{}{"push": {}})
	assert.Equal(t, moduleEnabled, statuses["push"])
	assert.Equal(t, moduleImplicit, statuses["queue"])
	assert.Equal(t, moduleImplicit, statuses["redis"])
	assert.Equal(t, moduleRequired, statuses["core"])
	assert.Equal(t, moduleOff, statuses["media"])

	assert.Equal(t, []string{"push"}, dependents(registry, []string{"auth", "push"}, "redis"))
	assert.Equal(t, []string{"auth"}, dependents(registry, []string{"auth", "push"}, "database"))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "-", formatValue(nil))
	assert.Equal(t, "[jwt, google]", formatValue([]string{"jwt", "google"}))
	assert.Equal(t, "[1, 2]", formatValue([]interface{}{1, 2}))
	assert.Equal(t, "6379", formatValue(6379))
}
