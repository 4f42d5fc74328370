// Command benchalot runs the benchalot CLI: expand a YAML configuration
// into a matrix of benchmark cells, run each the configured number of
// times, and emit tabular reports.
package main

import "github.com/benchalot/benchalot/cmd"

var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
