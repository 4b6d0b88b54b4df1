package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/isoenv/isoenv/packages/core/runner"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the config file without running anything",
	Long: `Validate the config file: it must parse, every substitution must
resolve, and every declared command must name a resolvable executable.

Examples:
  isoenv validate
  isoenv validate -e docs`,
	Args: cobra.NoArgs,
	RunE: validateCommand,
}

func init() {
	validateCmd.Flags().StringVarP(&envFlag, "env", "e", envFlag, "Comma-separated environments to validate (default: all)")
	validateCmd.Flags().StringVarP(&configFlag, "config", "c", configFlag, "Path to config file (env: ISOENV_CONFIG)")
	validateCmd.Flags().BoolVar(&strictFlag, "strict", strictFlag, "Require externals to be whitelisted")
}

func validateCommand(cmd *cobra.Command, args []string) error {
	project, err := loadCheckedProject()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitConfigError)
	}

	names := splitEnvSelection(envFlag)
	if len(names) == 0 {
		names = project.EnvNames()
	}

	r := runner.NewRunner(project, &runner.Config{Strict: strictFlag})

	hasErrors := false
	for _, name := range names {
		findings := r.Check(name)
		if len(findings) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", name)
			continue
		}
		hasErrors = true
		for _, f := range findings {
			fmt.Fprintf(cmd.OutOrStderr(), "Error in %s: %v\n", name, f)
		}
	}

	if hasErrors {
		os.Exit(ExitParseError)
	}
	return nil
}
