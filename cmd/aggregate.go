package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/grxam/Joules-per-Bit/internal/aggregate"
	"github.com/spf13/cobra"
)

var (
	flagSummariesDir string
	flagPowerDir     string
	flagOutFile      string
)

func newAggregateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Join run summaries with power telemetry into one table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			summariesDir := cfg.Dirs.Summaries
			if flagSummariesDir != "" {
				summariesDir = flagSummariesDir
			}
			powerDir := cfg.Dirs.Power
			if flagPowerDir != "" {
				powerDir = flagPowerDir
			}
			outFile := filepath.Join(cfg.Dirs.Aggregate, "aggregate_results.csv")
			if flagOutFile != "" {
				outFile = flagOutFile
			}

			n, err := aggregate.Run(summariesDir, powerDir, outFile)
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %d rows to %s\n", n, outFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&flagSummariesDir, "summaries", "", "directory of summary files")
	cmd.Flags().StringVar(&flagPowerDir, "power", "", "directory of power telemetry logs")
	cmd.Flags().StringVar(&flagOutFile, "out", "", "output CSV path")
	return cmd
}
