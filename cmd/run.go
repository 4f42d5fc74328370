package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/benchalot/benchalot/internal/config"
	"github.com/benchalot/benchalot/internal/errkind"
	"github.com/benchalot/benchalot/internal/output"
	"github.com/benchalot/benchalot/internal/plan"
	"github.com/benchalot/benchalot/internal/postprocess"
	"github.com/benchalot/benchalot/internal/report"
	"github.com/benchalot/benchalot/internal/resulttable"
	"github.com/benchalot/benchalot/internal/runner"
	"github.com/benchalot/benchalot/internal/system"
)

var (
	flagPlan            bool
	flagResultsFromCSV  string
	flagIncludeFile     string
	flagSplitVar        string
	flagIncludeFailed   bool
	flagIncludeOutliers bool
)

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&flagPlan, "plan", "p", false, "print the expanded plan and exit without running anything")
	cmd.Flags().StringVarP(&flagResultsFromCSV, "results-from-csv", "r", "", "skip planning/execution, load sample rows from PATH")
	cmd.Flags().StringVar(&flagIncludeFile, "include", "", "concatenate sample rows from PATH before post-processing")
	cmd.Flags().StringVar(&flagSplitVar, "split", "", "emit one partial configuration per value of VAR and exit")
	cmd.Flags().BoolVar(&flagIncludeFailed, "include-failed", false, "disable failure filtering in post-processing")
	cmd.Flags().BoolVar(&flagIncludeOutliers, "include-outliers", false, "disable outlier filtering in post-processing")
}

func runRun(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	configPath := args[0]

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if flagSplitVar != "" {
		return runSplit(configPath, cfg, flagSplitVar)
	}

	logger := newLogger()
	progress := report.NewProgressReporter(progressFormat(), logger)

	if flagResultsFromCSV != "" {
		return runFromCSV(cfg)
	}

	now := startTime()
	cells, err := plan.Build(cfg, now)
	if err != nil {
		return err
	}

	if flagPlan {
		printPlan(cells)
		return nil
	}

	table := resulttable.New(nil)
	if flagIncludeFile != "" {
		if err := includeRowsFromFile(table, flagIncludeFile); err != nil {
			return err
		}
	}

	guard, err := system.Apply(
		cfg.System.IsolateCPUs,
		cfg.System.DisableASLR,
		cfg.System.DisableSMT,
		cfg.System.DisableCoreBoost,
		cfg.System.GovernorPerformance,
	)
	if err != nil {
		return err
	}
	defer func() {
		for _, w := range guard.Release() {
			logger.Warn("system control revert failed", map[string]any{"error": w.Error()})
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Warn("received interrupt, finishing current command", nil)
		cancel()
	}()

	r := runner.New(table, runner.Options{
		DisableASLR: cfg.System.DisableASLR,
		Progress:    progress,
	})
	runErr := r.Run(ctx, cells)

	rows := postprocess.Apply(table, postprocess.Options{
		IncludeFailed:   flagIncludeFailed,
		IncludeOutliers: flagIncludeOutliers,
	})

	failedSamples := countFailedSamples(table)
	progress.ReportRunSummary(report.RunSummary{
		TotalCells:    len(cells),
		TotalSamples:  countSamples(table),
		FailedSamples: failedSamples,
		LogPaths:      r.LogPaths(),
	})

	if err := output.Run(cfg.Results, rows, output.Default(), plan.FormatDatetime(now)); err != nil {
		return err
	}

	if runErr != nil && errkind.Fatal(runErr) {
		return runErr
	}
	if runErr != nil {
		// Interrupt: report and exit non-zero without re-wrapping.
		return runErr
	}
	return nil
}

func runFromCSV(cfg config.Config) error {
	f, err := os.Open(flagResultsFromCSV)
	if err != nil {
		return fmt.Errorf("opening %s: %v: %w", flagResultsFromCSV, err, errkind.IO)
	}
	defer f.Close()

	table, err := resulttable.ReadCSV(f)
	if err != nil {
		return err
	}

	if flagIncludeFile != "" {
		if err := includeRowsFromFile(table, flagIncludeFile); err != nil {
			return err
		}
	}

	rows := postprocess.Apply(table, postprocess.Options{
		IncludeFailed:   flagIncludeFailed,
		IncludeOutliers: flagIncludeOutliers,
	})
	return output.Run(cfg.Results, rows, output.Default(), plan.FormatDatetime(startTime()))
}

func includeRowsFromFile(table *resulttable.Table, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening --include %s: %v: %w", path, err, errkind.IO)
	}
	defer f.Close()

	included, err := resulttable.ReadCSV(f)
	if err != nil {
		return err
	}
	for _, r := range included.Rows() {
		table.Append(r)
	}
	return nil
}

func printPlan(cells []plan.Cell) {
	for _, cell := range cells {
		fmt.Printf("cell %d: %s\n", cell.Index, summarizeCellBinding(cell))
		for _, stageName := range cell.Benchmark.Names() {
			for _, command := range cell.Benchmark.Commands(stageName) {
				fmt.Printf("  [%s] %s\n", stageName, command)
			}
		}
	}
}

func summarizeCellBinding(cell plan.Cell) string {
	names := cell.Binding
	parts := ""
	first := true
	for name, val := range names {
		if name == "datetime" {
			continue
		}
		if !first {
			parts += ", "
		}
		first = false
		if val.IsScalar() {
			parts += name + "=" + val.Scalar().String()
		} else {
			parts += name + "={record}"
		}
	}
	return parts
}

func countFailedSamples(table *resulttable.Table) int {
	seen := map[string]bool{}
	count := 0
	for _, r := range table.Rows() {
		key := fmt.Sprintf("%d|%d", r.CellIndex, r.Sample)
		if r.Failed && !seen[key] {
			seen[key] = true
			count++
		}
	}
	return count
}

func countSamples(table *resulttable.Table) int {
	seen := map[string]bool{}
	for _, r := range table.Rows() {
		seen[fmt.Sprintf("%d|%d", r.CellIndex, r.Sample)] = true
	}
	return len(seen)
}

func startTime() time.Time {
	return time.Now()
}
