package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestScalarStringFormsByKind(t *testing.T) {
	var numeric Value
	require.NoError(t, yaml.Unmarshal([]byte("3.5"), &numeric))
	assert.Equal(t, "3.5", numeric.Scalar().String())

	var boolean Value
	require.NoError(t, yaml.Unmarshal([]byte("true"), &boolean))
	assert.Equal(t, "true", boolean.Scalar().String())

	var str Value
	require.NoError(t, yaml.Unmarshal([]byte("gcc"), &str))
	assert.Equal(t, "gcc", str.Scalar().String())
}

func TestValueRecordFields(t *testing.T) {
	var v Value
	require.NoError(t, yaml.Unmarshal([]byte("name: a\nurl: https://example.com"), &v))
	require.True(t, v.IsRecord())
	assert.Equal(t, []string{"name", "url"}, v.FieldNames())
	field, ok := v.Field("name")
	require.True(t, ok)
	assert.Equal(t, "a", field.String())
}

func TestVarListRejectsNonList(t *testing.T) {
	var vl VarList
	err := yaml.Unmarshal([]byte("not-a-list"), &vl)
	assert.Error(t, err)
}

func TestNewStringScalarMarshalsAsPlainString(t *testing.T) {
	sc := NewStringScalar("2026-07-31T00-00-00Z")
	out, err := yaml.Marshal(sc)
	require.NoError(t, err)
	assert.Equal(t, "2026-07-31T00-00-00Z\n", string(out))
}

func TestNewRecordValueBuildsAFieldAccessibleRecord(t *testing.T) {
	v := NewRecordValue(map[string]Scalar{"name": NewStringScalar("api"), "host": NewStringScalar("a1")})
	require.True(t, v.IsRecord())
	field, ok := v.Field("name")
	require.True(t, ok)
	assert.Equal(t, "api", field.String())
}

func TestMatrixWithValuesPreservesOtherVariables(t *testing.T) {
	var m Matrix
	require.NoError(t, yaml.Unmarshal([]byte("compiler: [gcc, clang]\noptlevel: [2, 3]\n"), &m))

	replaced := m.WithValues("compiler", VarList{NewScalarValue(NewStringScalar("gcc"))})
	assert.Equal(t, []string{"compiler", "optlevel"}, replaced.Names())
	assert.Len(t, replaced.Values("compiler"), 1)
	assert.Len(t, replaced.Values("optlevel"), 2)
}
