package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Modern-Society-Labs/lcore-node/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the lcore-node version",
	Run: func(cmd *cobra.Command, args []string) {
		bold := color.New(color.Bold).SprintFunc()
		fmt.Printf("%s %s\n", bold("lcore-node"), version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
