package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List declared environments",
	Long: `List the environments declared in the config file. Environments in
the default envlist are marked with *.

Examples:
  isoenv list
  isoenv list -c path/to/isoenv.ini`,
	Args: cobra.NoArgs,
	RunE: listCommand,
}

func init() {
	listCmd.Flags().StringVarP(&configFlag, "config", "c", configFlag, "Path to config file (env: ISOENV_CONFIG)")
}

func listCommand(cmd *cobra.Command, args []string) error {
	project, err := loadProject()
	if err != nil {
		return err
	}

	names := project.EnvNames()
	if len(names) == 0 {
		return fmt.Errorf("no environments declared in %s", project.Path)
	}

	for _, name := range names {
		marker := " "
		if slices.Contains(project.Envlist, name) {
			marker = "*"
		}
		env, err := project.Env(name)
		if err != nil {
			return err
		}
		if env.Description != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s - %s\n", marker, name, env.Description)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
		}
	}
	return nil
}
