package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/grxam/Joules-per-Bit/internal/summary"
	"github.com/grxam/Joules-per-Bit/internal/telemetry"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List discovered runs and their telemetry counterparts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			entries, err := os.ReadDir(cfg.Dirs.Summaries)
			if err != nil {
				return fmt.Errorf("reading summaries dir: %w", err)
			}
			var names []string
			for _, e := range entries {
				if !e.IsDir() && strings.HasPrefix(e.Name(), "summary_") && strings.HasSuffix(e.Name(), ".csv") {
					names = append(names, e.Name())
				}
			}
			sort.Strings(names)

			if len(names) == 0 {
				fmt.Println("No runs found.")
				return nil
			}
			fmt.Println("Runs:")
			for _, name := range names {
				runID, mode, err := summary.ParseFilename(name)
				if err != nil {
					fmt.Printf("  - %s [malformed filename]\n", name)
					continue
				}
				counterpart := filepath.Join(cfg.Dirs.Power, telemetry.Filename(runID, mode))
				status := "power: ok"
				if _, err := os.Stat(counterpart); err != nil {
					status = "power: missing"
				}
				fmt.Printf("  - %s (%s) [%s]\n", runID, mode, status)
			}

			idlePath := filepath.Join(cfg.Dirs.Power, telemetry.IdleFilename)
			if _, err := os.Stat(idlePath); err != nil {
				fmt.Println("\nNo idle baseline log; net metrics will be blank.")
			}
			return nil
		},
	}
}
