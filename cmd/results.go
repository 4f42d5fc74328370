package cmd

import (
	"github.com/spf13/cobra"
)

// resultsCmd is a thin alias for `benchalot CONFIG --results-from-csv PATH`.
var resultsCmd = &cobra.Command{
	Use:   "results CONFIG PATH",
	Short: "Re-render results from a previously exported Result CSV",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		flagResultsFromCSV = args[1]
		return runRun(cmd, args[:1])
	},
}
