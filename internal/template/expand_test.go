package template_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/benchalot/benchalot/internal/config"
	"github.com/benchalot/benchalot/internal/template"
)

func loadYAML(v *config.Value, doc string) error {
	return yaml.Unmarshal([]byte(doc), v)
}

func binding(pairs ...any) config.Binding {
	b := config.Binding{}
	for i := 0; i+1 < len(pairs); i += 2 {
		b[pairs[i].(string)] = pairs[i+1].(config.Value)
	}
	return b
}

func scalar(s string) config.Value {
	return config.NewScalarValue(config.NewStringScalar(s))
}

func TestExpandScalarSubstitution(t *testing.T) {
	b := binding("compiler", scalar("gcc"))
	out, err := template.Expand("{{compiler}} -O2", b)
	require.NoError(t, err)
	assert.Equal(t, "gcc -O2", out)
}

func TestExpandUnknownVariable(t *testing.T) {
	_, err := template.Expand("{{missing}}", config.Binding{})
	require.Error(t, err)
	var unknown *template.UnknownVariableError
	assert.ErrorAs(t, err, &unknown)
	assert.Equal(t, "missing", unknown.Name)
}

func TestExpandScalarFieldAccessIsBadFieldAccess(t *testing.T) {
	b := binding("compiler", scalar("gcc"))
	_, err := template.Expand("{{compiler.name}}", b)
	var bad *template.BadFieldAccessError
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, "name", bad.Field)
}

func TestExpandRecordWithoutFieldIsBadFieldAccess(t *testing.T) {
	record := config.Value{}
	require.NoError(t, loadYAML(&record, "name: a\nurl: x"))
	b := binding("target", record)

	_, err := template.Expand("{{target}}", b)
	var bad *template.BadFieldAccessError
	require.ErrorAs(t, err, &bad)
	assert.Empty(t, bad.Field)
}

func TestExpandRecordFieldAccess(t *testing.T) {
	record := config.Value{}
	require.NoError(t, loadYAML(&record, "name: a\nurl: https://example.com"))
	b := binding("target", record)

	out, err := template.Expand("curl {{target.url}}", b)
	require.NoError(t, err)
	assert.Equal(t, "curl https://example.com", out)
}

func TestExpandAllStopsAtFirstError(t *testing.T) {
	_, err := template.ExpandAll([]string{"echo ok", "echo {{missing}}"}, config.Binding{})
	require.Error(t, err)
}

func TestExpandEnvReportsOffendingKey(t *testing.T) {
	_, err := template.ExpandEnv(map[string]string{"PATH_SUFFIX": "{{missing}}"}, config.Binding{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PATH_SUFFIX")
}

func TestReferencedNamesDedupesAndKeepsFirstOccurrenceOrder(t *testing.T) {
	names := template.ReferencedNames("results-{{target.name}}-{{compiler}}-{{target.host}}.csv")
	assert.Equal(t, []string{"target", "compiler"}, names)
}

func TestReferencedNamesEmptyWhenNoPlaceholders(t *testing.T) {
	assert.Empty(t, template.ReferencedNames("results.csv"))
}
