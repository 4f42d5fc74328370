// Package runner drives the per-cell lifecycle state machine of §4.4:
// Setup -> (Prepare -> Benchmark -> Conclude -> CustomMetrics) x samples ->
// Cleanup -> Done, emitting Sample Rows into the Result Table as it goes.
package runner

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/benchalot/benchalot/internal/config"
	"github.com/benchalot/benchalot/internal/errkind"
	"github.com/benchalot/benchalot/internal/metrics"
	"github.com/benchalot/benchalot/internal/plan"
	"github.com/benchalot/benchalot/internal/report"
	"github.com/benchalot/benchalot/internal/resulttable"
	"github.com/benchalot/benchalot/internal/system"
)

// Options configures a Runner pass across every cell.
type Options struct {
	DisableASLR bool
	Progress    *report.ProgressReporter
}

// Runner executes cells sequentially, appending rows to table as it goes.
// At most one measured child is alive at a time, matching §5's
// single-threaded resource-accounting contract.
type Runner struct {
	table    *resulttable.Table
	opts     Options
	logPaths map[string]bool
}

// New builds a Runner that appends rows to table.
func New(table *resulttable.Table, opts Options) *Runner {
	return &Runner{table: table, opts: opts, logPaths: map[string]bool{}}
}

// LogPaths returns, sorted, every distinct file `save-output` destination
// used by cells run so far. STDOUT/STDERR passthrough destinations are
// excluded since there is no file to report.
func (r *Runner) LogPaths() []string {
	paths := make([]string, 0, len(r.logPaths))
	for p := range r.logPaths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Run drives every cell's lifecycle in order. ctx cancellation (SIGINT) is
// honored at command boundaries: the current command finishes, the
// current cell's cleanup runs, and Run returns with errkind.Interrupt.
func (r *Runner) Run(ctx context.Context, cells []plan.Cell) error {
	for _, cell := range cells {
		if err := r.runCell(ctx, cell, len(cells)); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("interrupted after cell %d: %w", cell.Index, errkind.Interrupt)
		}
	}
	return nil
}

func (r *Runner) runCell(ctx context.Context, cell plan.Cell, total int) error {
	bindingSummary := summarizeBinding(cell.Binding)
	if r.opts.Progress != nil {
		r.opts.Progress.ReportCellStart(cell.Index, total, bindingSummary)
	}

	env := mergedEnv(cell.Env)

	log, err := openOutputLog(cell.SaveOutput, cell.Index)
	if err != nil {
		return err
	}
	defer log.close()
	if cell.SaveOutput != "" && cell.SaveOutput != "STDOUT" && cell.SaveOutput != "STDERR" {
		r.logPaths[cell.SaveOutput] = true
	}

	r.transition(cell.Index, "Start", "Setup")
	runLifecycleCommands(ctx, cell, "setup", cell.Setup, env, r.opts.DisableASLR, log)

	for sample := 0; sample < cell.Samples; sample++ {
		failed := false

		r.transition(cell.Index, "Setup", "Prepare")
		prepareRes := runLifecycleCommands(ctx, cell, "prepare", cell.Prepare, env, r.opts.DisableASLR, log)
		failed = failed || prepareRes.anyFailed

		r.transition(cell.Index, "Prepare", "Benchmark")
		benchFailed := r.runBenchmarkStage(ctx, cell, sample, env, log)
		failed = failed || benchFailed

		r.transition(cell.Index, "Benchmark", "Conclude")
		concludeRes := runLifecycleCommands(ctx, cell, "conclude", cell.Conclude, env, r.opts.DisableASLR, log)
		failed = failed || concludeRes.anyFailed

		r.transition(cell.Index, "Conclude", "CustomMetrics")
		cmFailed := r.runCustomMetrics(ctx, cell, sample, env, log)
		failed = failed || cmFailed

		if r.opts.Progress != nil {
			r.opts.Progress.ReportSampleComplete(cell.Index, sample, cell.Samples, failed)
		}

		if ctx.Err() != nil {
			break
		}
	}

	r.transition(cell.Index, "CustomMetrics", "Cleanup")
	runLifecycleCommands(context.WithoutCancel(ctx), cell, "cleanup", cell.Cleanup, env, r.opts.DisableASLR, log)

	r.transition(cell.Index, "Cleanup", "Done")
	if r.opts.Progress != nil {
		r.opts.Progress.ReportCellComplete(cell.Index)
	}
	return nil
}

func (r *Runner) transition(cellIndex int, from, to string) {
	if r.opts.Progress != nil {
		r.opts.Progress.ReportStateTransition(cellIndex, from, to)
	}
}

type lifecycleResult struct {
	anyFailed bool
}

// runLifecycleCommands runs setup/prepare/conclude/cleanup command lists:
// every command runs in order regardless of earlier failures in the same
// list, so conclude/cleanup always run per §4.4's transition rule. These
// stages produce no sample rows per §3.
func runLifecycleCommands(ctx context.Context, cell plan.Cell, stage string, commands []string, env []string, disableASLR bool, log *outputLog) lifecycleResult {
	result := lifecycleResult{}
	for _, command := range commands {
		if ctx.Err() != nil {
			break
		}
		cr, err := metrics.Run(ctx, system.ASLRCommand(command, disableASLR), cell.Cwd, env)
		if err != nil {
			result.anyFailed = true
			continue
		}
		log.record(stage, cr)
		if cr.Failed {
			result.anyFailed = true
		}
	}
	return result
}

// runBenchmarkStage runs every declared benchmark stage's command list as
// one measured unit (times summed, peak RSS maximized across its
// commands), appending one Sample Row per numeric metric per stage, per
// §4.5's stage-aggregation rule.
func (r *Runner) runBenchmarkStage(ctx context.Context, cell plan.Cell, sample int, env []string, log *outputLog) bool {
	anyFailed := false
	for _, stageName := range cell.Benchmark.Names() {
		commands := cell.Benchmark.Commands(stageName)
		agg := stageAggregate{}
		stageFailed := false

		for _, command := range commands {
			if ctx.Err() != nil {
				break
			}
			cr, err := metrics.Run(ctx, system.ASLRCommand(command, r.opts.DisableASLR), cell.Cwd, env)
			if err != nil {
				stageFailed = true
				continue
			}
			log.record(stageName, cr)
			if cr.Failed {
				stageFailed = true
			}
			agg.add(cr)

			if wantsMetric(cell.Metrics, "stdout") {
				r.table.Append(textRow(cell, sample, stageName, "stdout", cr.Stdout, cr.Failed))
			}
			if wantsMetric(cell.Metrics, "stderr") {
				r.table.Append(textRow(cell, sample, stageName, "stderr", cr.Stderr, cr.Failed))
			}
		}

		if wantsMetric(cell.Metrics, "time") {
			r.table.Append(numericRow(cell, sample, stageName, "time", agg.wallSeconds, stageFailed))
		}
		if wantsMetric(cell.Metrics, "utime") {
			r.table.Append(numericRow(cell, sample, stageName, "utime", agg.userSeconds, stageFailed))
		}
		if wantsMetric(cell.Metrics, "stime") {
			r.table.Append(numericRow(cell, sample, stageName, "stime", agg.sysSeconds, stageFailed))
		}
		if wantsMetric(cell.Metrics, "rss") {
			r.table.Append(numericRow(cell, sample, stageName, "rss", metrics.BytesToMiB(agg.maxRSSBytes), stageFailed))
		}

		anyFailed = anyFailed || stageFailed
	}
	return anyFailed
}

// runCustomMetrics runs each custom-metrics command, parsing its output
// into one or more stage rows. Malformed output is a sample failure, not
// fatal, per §4.5.
func (r *Runner) runCustomMetrics(ctx context.Context, cell plan.Cell, sample int, env []string, log *outputLog) bool {
	anyFailed := false
	for _, cm := range cell.CustomMetrics {
		if ctx.Err() != nil {
			break
		}
		cr, err := metrics.Run(ctx, system.ASLRCommand(cm.Command, r.opts.DisableASLR), cell.Cwd, env)
		if err != nil {
			anyFailed = true
			continue
		}
		log.record(cm.Name, cr)
		if cr.Failed {
			anyFailed = true
			continue
		}
		rows, perr := metrics.ParseCustomMetric(cm.Name, cr.Stdout)
		if perr != nil {
			anyFailed = true
			continue
		}
		for _, row := range rows {
			r.table.Append(numericRow(cell, sample, row.Stage, cm.Name, row.Value, false))
		}
	}
	return anyFailed
}

type stageAggregate struct {
	wallSeconds float64
	userSeconds float64
	sysSeconds  float64
	maxRSSBytes float64
}

func (a *stageAggregate) add(cr metrics.CommandResult) {
	a.wallSeconds += cr.Wall.Seconds()
	a.userSeconds += cr.UserTime.Seconds()
	a.sysSeconds += cr.SysTime.Seconds()
	if float64(cr.MaxRSSBytes) > a.maxRSSBytes {
		a.maxRSSBytes = float64(cr.MaxRSSBytes)
	}
}

func wantsMetric(metricsList []string, name string) bool {
	for _, m := range metricsList {
		if m == name {
			return true
		}
	}
	return false
}

func numericRow(cell plan.Cell, sample int, stage, metric string, value float64, failed bool) resulttable.Row {
	return resulttable.Row{
		CellIndex: cell.Index,
		Bindings:  bindingColumns(cell.Binding),
		Sample:    sample,
		Stage:     stage,
		Metric:    metric,
		Value:     value,
		Failed:    failed,
	}
}

func textRow(cell plan.Cell, sample int, stage, metric, text string, failed bool) resulttable.Row {
	return resulttable.Row{
		CellIndex: cell.Index,
		Bindings:  bindingColumns(cell.Binding),
		Sample:    sample,
		Stage:     stage,
		Metric:    metric,
		Text:      text,
		Failed:    failed,
	}
}

// bindingColumns flattens a Binding to string columns, expanding record
// fields as "var.field" per the Result CSV schema in §6. The reserved
// `datetime` binding is a template-only convenience, not a matrix
// variable, so it is excluded from result columns.
func bindingColumns(binding config.Binding) map[string]string {
	out := make(map[string]string, len(binding))
	for name, val := range binding {
		if name == "datetime" {
			continue
		}
		if val.IsScalar() {
			out[name] = val.Scalar().String()
			continue
		}
		for _, field := range val.FieldNames() {
			sc, _ := val.Field(field)
			out[name+"."+field] = sc.String()
		}
	}
	return out
}

func mergedEnv(delta map[string]string) []string {
	base := os.Environ()
	if len(delta) == 0 {
		return base
	}
	overlay := make(map[string]string, len(base)+len(delta))
	for _, kv := range base {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			overlay[kv[:i]] = kv[i+1:]
		}
	}
	for k, v := range delta {
		overlay[k] = v
	}
	out := make([]string, 0, len(overlay))
	for k, v := range overlay {
		out = append(out, k+"="+v)
	}
	return out
}

// summarizeBinding renders a binding as "name=value, ..." for progress
// reporting, sorted by name for determinism.
func summarizeBinding(binding config.Binding) string {
	cols := bindingColumns(binding)
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + cols[name]
	}
	return strings.Join(parts, ", ")
}
