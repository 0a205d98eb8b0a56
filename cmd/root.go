package cmd

import (
	"errors"
	"os"

	"github.com/grxam/Joules-per-Bit/internal/config"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "jpb.yaml"

var cfgFile string

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "jpb",
		Short: "Forced-token entropy protocol runner and power-telemetry aggregator",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigFile, "config file path")
	root.AddCommand(newRunCmd())
	root.AddCommand(newAggregateCmd())
	root.AddCommand(newRunsCmd())
	return root
}

// loadConfig reads the config file named by --config. The default file is
// optional; an explicitly named one is not.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if errors.Is(err, os.ErrNotExist) && cfgFile == defaultConfigFile {
		return config.Default(), nil
	}
	return cfg, err
}
