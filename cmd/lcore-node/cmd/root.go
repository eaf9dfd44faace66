// Package cmd implements the lcore-node CLI commands.
package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "lcore-node",
	Short: "IoT data processing node",
	Long: `lcore-node ingests signed IoT sensor readings from an external
coordinator, authenticates the originating device, applies a two-stage
authenticated encryption transform, and persists the result for later
inspection.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (optional; LCORE_* env vars override)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
