package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "isoenv",
	Short: "Isolated test environments from one ini file.",
	Long: `isoenv reads an ini file declaring named environments, creates an
isolated interpreter environment for each, installs its dependency
list, and runs its commands in order. The first failing command
aborts the environment; any failure makes the overall run fail.

Running isoenv with no subcommand is the same as "isoenv run".`,
	Args: cobra.ArbitraryArgs,
	RunE: runCommand,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}
