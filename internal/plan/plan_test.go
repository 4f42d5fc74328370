package plan_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchalot/benchalot/internal/config"
	"github.com/benchalot/benchalot/internal/plan"
)

func loadConfig(t *testing.T, contents string) config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "bench.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestBuildExpandsCartesianProductInDeclarationOrder(t *testing.T) {
	cfg := loadConfig(t, `
matrix:
  compiler: [gcc, clang]
  optlevel: [2, 3]
benchmark:
  - "{{compiler}} -O{{optlevel}}"
`)
	cells, err := plan.Build(cfg, time.Now())
	require.NoError(t, err)
	require.Len(t, cells, 4)

	commands := make([]string, len(cells))
	for i, c := range cells {
		commands[i] = c.Benchmark.Commands("time")[0]
	}
	assert.Equal(t, []string{
		"gcc -O2", "gcc -O3", "clang -O2", "clang -O3",
	}, commands)
}

func TestBuildAppliesExcludeBySuperset(t *testing.T) {
	cfg := loadConfig(t, `
matrix:
  compiler: [gcc, clang]
  optlevel: [2, 3]
exclude:
  - compiler: clang
    optlevel: 2
benchmark:
  - "{{compiler}} -O{{optlevel}}"
`)
	cells, err := plan.Build(cfg, time.Now())
	require.NoError(t, err)
	require.Len(t, cells, 3)
	for _, c := range cells {
		assert.NotEqual(t, "clang -O2", c.Benchmark.Commands("time")[0])
	}
}

func TestBuildAppendsIncludeVerbatimAfterProduct(t *testing.T) {
	cfg := loadConfig(t, `
matrix:
  compiler: [gcc]
include:
  - compiler: clang-special
benchmark:
  - "{{compiler}}"
`)
	cells, err := plan.Build(cfg, time.Now())
	require.NoError(t, err)
	require.Len(t, cells, 2)
	assert.Equal(t, "gcc", cells[0].Benchmark.Commands("time")[0])
	assert.Equal(t, "clang-special", cells[1].Benchmark.Commands("time")[0])
}

func TestBuildBindsReservedDatetime(t *testing.T) {
	cfg := loadConfig(t, `
benchmark:
  - echo hi
save-output: "out-{{datetime}}.log"
`)
	fixed := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	cells, err := plan.Build(cfg, fixed)
	require.NoError(t, err)
	require.Len(t, cells, 1)
	assert.Equal(t, "out-2026-07-31T12-00-00Z.log", cells[0].SaveOutput)
}

func TestBuildPassesThroughSTDOUTSentinelUnexpanded(t *testing.T) {
	cfg := loadConfig(t, `
benchmark:
  - echo hi
save-output: STDOUT
`)
	cells, err := plan.Build(cfg, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "STDOUT", cells[0].SaveOutput)
}

func TestBuildNamedBenchmarkStagesPreserveOrder(t *testing.T) {
	cfg := loadConfig(t, `
benchmark:
  build:
    - echo build
  run:
    - echo run
`)
	cells, err := plan.Build(cfg, time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"build", "run"}, cells[0].Benchmark.Names())
}

func TestBuildReportsUnknownVariableDuringExpansion(t *testing.T) {
	cfg := loadConfig(t, `
benchmark:
  - echo hi
cwd: "{{missing}}"
`)
	_, err := plan.Build(cfg, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown variable")
}
