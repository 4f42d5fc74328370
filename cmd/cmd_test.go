package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchalot/benchalot/internal/config"
	"github.com/benchalot/benchalot/internal/plan"
	"github.com/benchalot/benchalot/internal/resulttable"
)

func simpleCellForTest() plan.Cell {
	return plan.Cell{
		Index: 0,
		Binding: config.Binding{
			"compiler": config.NewScalarValue(config.NewStringScalar("gcc")),
			"datetime": config.NewScalarValue(config.NewStringScalar("2026-07-31T00-00-00Z")),
		},
		Benchmark: config.NewImplicitStage([]string{"echo hi"}),
		Metrics:   []string{"time"},
		Samples:   1,
	}
}

func newTableWithRows() *resulttable.Table {
	table := resulttable.New(nil)
	table.Append(resulttable.Row{CellIndex: 0, Sample: 0, Metric: "time", Value: 1, Bindings: map[string]string{"compiler": "gcc"}})
	table.Append(resulttable.Row{CellIndex: 0, Sample: 1, Metric: "time", Value: 2, Failed: true, Bindings: map[string]string{"compiler": "gcc"}})
	return table
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "bench.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	original, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(original) })
	return dir
}

func TestRunSplitWritesOnePartialConfigPerValue(t *testing.T) {
	chdirTemp(t)
	path := writeConfig(t, `
matrix:
  compiler: [gcc, clang]
benchmark:
  - echo "{{compiler}}"
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.NoError(t, runSplit(path, cfg, "compiler"))

	entries, err := os.ReadDir("out")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "bench.part0.yml", entries[0].Name())
	assert.Equal(t, "bench.part1.yml", entries[1].Name())

	part, err := config.Load(filepath.Join("out", "bench.part0.yml"))
	require.NoError(t, err)
	values := part.Matrix.Values("compiler")
	require.Len(t, values, 1)
	assert.Equal(t, "gcc", values[0].Scalar().String())
}

func TestRunSplitRejectsUndeclaredVariable(t *testing.T) {
	chdirTemp(t)
	path := writeConfig(t, `
benchmark:
  - echo hi
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	err = runSplit(path, cfg, "nope")
	assert.Error(t, err)
}

func TestSummarizeCellBindingOmitsReservedDatetime(t *testing.T) {
	cell := simpleCellForTest()
	summary := summarizeCellBinding(cell)
	assert.Equal(t, "compiler=gcc", summary)
}

func TestCountSamplesAndFailedSamplesDedupeByCellAndSample(t *testing.T) {
	table := newTableWithRows()
	assert.Equal(t, 2, countSamples(table))
	assert.Equal(t, 1, countFailedSamples(table))
}
