package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benchalot/benchalot/internal/config"
	"github.com/benchalot/benchalot/internal/errkind"
)

// splitCmd is a thin alias for `benchalot CONFIG --split VAR`.
var splitCmd = &cobra.Command{
	Use:   "split CONFIG VAR",
	Short: "Write one partial configuration per value of VAR",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(args[0])
		if err != nil {
			return err
		}
		return runSplit(args[0], cfg, args[1])
	},
}

// runSplit writes one partial config per declared value of varName to
// out/<configbase>.part<N>.yml, each config's matrix holding a single
// value for varName and every other matrix variable unchanged.
func runSplit(configPath string, cfg config.Config, varName string) error {
	values := cfg.Matrix.Values(varName)
	if len(values) == 0 {
		return fmt.Errorf("split variable %q is not declared in matrix: %w", varName, errkind.Configuration)
	}

	if err := os.MkdirAll("out", 0o755); err != nil {
		return fmt.Errorf("creating out directory: %v: %w", err, errkind.IO)
	}

	base := strings.TrimSuffix(filepath.Base(configPath), filepath.Ext(configPath))
	for i, value := range values {
		part := cfg
		part.Matrix = cfg.Matrix.WithValues(varName, config.VarList{value})

		outPath := filepath.Join("out", fmt.Sprintf("%s.part%d.yml", base, i))
		if err := config.Save(part, outPath); err != nil {
			return err
		}
		fmt.Println(outPath)
	}
	return nil
}
