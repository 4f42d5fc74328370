package cmd

import (
	"github.com/spf13/cobra"
)

// planCmd is a thin alias for `benchalot CONFIG --plan`, kept as its own
// subcommand since scripts that only ever print plans read more clearly
// without a flag.
var planCmd = &cobra.Command{
	Use:   "plan CONFIG",
	Short: "Print the expanded plan without running anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flagPlan = true
		return runRun(cmd, args)
	},
}
