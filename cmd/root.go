// Package cmd implements benchalot's cobra command tree: a root command
// defaulting to `run`, plus `plan`, `results`, and `split` subcommands.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/benchalot/benchalot/internal/report"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "benchalot CONFIG",
	Short: "Automate repeatable software benchmarks",
	Long: `Benchalot expands a declarative YAML configuration into a matrix of
benchmark cells, runs each the configured number of times while collecting
time/resource/custom metrics, and emits tabular reports.

Run a configuration:
  benchalot config.yml

Print the expanded plan without running anything:
  benchalot config.yml --plan`,
	Version:      Version,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runRun,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// SetVersion sets the version string, called from main.
func SetVersion(v string) {
	Version = v
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log output format: text, json")

	addRunFlags(rootCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(splitCmd)
}

func newLogger() *report.Logger {
	format := report.LogFormatText
	if logFormat == "json" {
		format = report.LogFormatJSON
	}
	return report.NewLogger(report.LoggerConfig{
		Level:  report.ParseLevel(logLevel),
		Format: format,
		Output: os.Stderr,
	})
}

func progressFormat() report.OutputFormat {
	if logFormat == "json" {
		return report.FormatJSON
	}
	return report.FormatText
}
