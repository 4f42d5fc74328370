// Package plan builds the ordered list of benchmark cells from a validated
// configuration: the Cartesian product of matrix variables, filtered by
// exclude and extended by include, each cell fully template-expanded.
package plan

import (
	"fmt"
	"time"

	"github.com/benchalot/benchalot/internal/config"
	"github.com/benchalot/benchalot/internal/template"
)

// Cell is a matrix point together with its fully template-expanded command
// sequences, cwd, environment, and active metric set. Cells are numbered
// 0..N-1 in plan order and exist only for the duration of one Runner pass.
type Cell struct {
	Index   int
	Binding config.Binding

	Setup     []string
	Prepare   []string
	Benchmark config.BenchmarkStage
	Conclude  []string
	Cleanup   []string

	CustomMetrics []config.CustomMetric

	Cwd        string
	Env        map[string]string
	Metrics    []string
	Samples    int
	SaveOutput string
}

// FormatDatetime renders now as the reserved `datetime` binding: an
// ISO-8601 timestamp safe for filenames. Exported so the output stage can
// bind the same value used at plan time, since it runs after Build and
// Result Table rows don't carry `datetime` as a column.
func FormatDatetime(now time.Time) string {
	return now.UTC().Format("2006-01-02T15-04-05Z")
}

// Build expands cfg into an ordered cell list. now is bound to the
// reserved `datetime` variable as an ISO-8601 timestamp safe for filenames,
// per §3's Variable Binding.
func Build(cfg config.Config, now time.Time) ([]Cell, error) {
	points := cartesianProduct(cfg.Matrix)
	points = applyExclude(points, cfg.Exclude)
	points = append(points, includePoints(cfg.Include)...)

	datetime := FormatDatetime(now)

	cells := make([]Cell, 0, len(points))
	for i, pt := range points {
		binding := make(config.Binding, len(pt)+1)
		for k, v := range pt {
			binding[k] = v
		}
		binding["datetime"] = config.NewScalarValue(config.NewStringScalar(datetime))

		cell, err := buildCell(i, binding, cfg)
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", i, err)
		}
		cells = append(cells, cell)
	}
	return cells, nil
}

func buildCell(index int, binding config.Binding, cfg config.Config) (Cell, error) {
	setup, err := template.ExpandAll(cfg.Setup, binding)
	if err != nil {
		return Cell{}, fmt.Errorf("setup: %w", err)
	}
	prepare, err := template.ExpandAll(cfg.Prepare, binding)
	if err != nil {
		return Cell{}, fmt.Errorf("prepare: %w", err)
	}
	conclude, err := template.ExpandAll(cfg.Conclude, binding)
	if err != nil {
		return Cell{}, fmt.Errorf("conclude: %w", err)
	}
	cleanup, err := template.ExpandAll(cfg.Cleanup, binding)
	if err != nil {
		return Cell{}, fmt.Errorf("cleanup: %w", err)
	}
	benchmark, err := expandBenchmarkStage(cfg.Benchmark, binding)
	if err != nil {
		return Cell{}, fmt.Errorf("benchmark: %w", err)
	}
	customMetrics, err := expandCustomMetrics(cfg.CustomMetrics, binding)
	if err != nil {
		return Cell{}, fmt.Errorf("custom-metrics: %w", err)
	}
	cwd, err := template.Expand(cfg.Cwd, binding)
	if err != nil {
		return Cell{}, fmt.Errorf("cwd: %w", err)
	}
	env, err := template.ExpandEnv(cfg.Env, binding)
	if err != nil {
		return Cell{}, err
	}
	saveOutput := cfg.SaveOutput
	if saveOutput != "STDOUT" && saveOutput != "STDERR" && saveOutput != "" {
		saveOutput, err = template.Expand(saveOutput, binding)
		if err != nil {
			return Cell{}, fmt.Errorf("save-output: %w", err)
		}
	}

	return Cell{
		Index:         index,
		Binding:       binding,
		Setup:         setup,
		Prepare:       prepare,
		Benchmark:     benchmark,
		Conclude:      conclude,
		Cleanup:       cleanup,
		CustomMetrics: customMetrics,
		Cwd:           cwd,
		Env:           env,
		Metrics:       cfg.Metrics,
		Samples:       cfg.Samples,
		SaveOutput:    saveOutput,
	}, nil
}

func expandBenchmarkStage(stage config.BenchmarkStage, binding config.Binding) (config.BenchmarkStage, error) {
	if stage.IsImplicit() {
		cmds, err := template.ExpandAll(stage.Commands("time"), binding)
		if err != nil {
			return config.BenchmarkStage{}, err
		}
		return config.NewImplicitStage(cmds), nil
	}
	named := make(map[string][]string, len(stage.Names()))
	for _, name := range stage.Names() {
		cmds, err := template.ExpandAll(stage.Commands(name), binding)
		if err != nil {
			return config.BenchmarkStage{}, fmt.Errorf("stage %s: %w", name, err)
		}
		named[name] = cmds
	}
	return config.NewNamedStage(named, stage.Names()), nil
}

func expandCustomMetrics(metrics []config.CustomMetric, binding config.Binding) ([]config.CustomMetric, error) {
	out := make([]config.CustomMetric, len(metrics))
	for i, m := range metrics {
		cmd, err := template.Expand(m.Command, binding)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.Name, err)
		}
		out[i] = config.CustomMetric{Name: m.Name, Command: cmd}
	}
	return out, nil
}
