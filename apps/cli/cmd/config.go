package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective per-environment configuration",
	Long: `Show the effective configuration of each environment after
[testenv] inheritance, before substitution.

Examples:
  isoenv config
  isoenv config -e docs`,
	Args: cobra.NoArgs,
	RunE: configCommand,
}

func init() {
	configCmd.Flags().StringVarP(&envFlag, "env", "e", envFlag, "Comma-separated environments to show (default: all)")
	configCmd.Flags().StringVarP(&configFlag, "config", "c", configFlag, "Path to config file (env: ISOENV_CONFIG)")
}

func configCommand(cmd *cobra.Command, args []string) error {
	project, err := loadProject()
	if err != nil {
		return err
	}

	names := splitEnvSelection(envFlag)
	if len(names) == 0 {
		names = project.EnvNames()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "config file: %s\n", project.Path)
	fmt.Fprintf(out, "envlist:     %s\n", strings.Join(project.Envlist, ", "))
	fmt.Fprintf(out, "workdir:     %s\n", project.WorkDir)
	fmt.Fprintf(out, "skipsdist:   %v\n", project.SkipSDist)

	for _, name := range names {
		env, err := project.Env(name)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "\n[%s]\n", name)
		if env.Description != "" {
			fmt.Fprintf(out, "  description:         %s\n", env.Description)
		}
		if env.BasePython != "" {
			fmt.Fprintf(out, "  basepython:          %s\n", env.BasePython)
		}
		if env.ChangeDir != "" {
			fmt.Fprintf(out, "  changedir:           %s\n", env.ChangeDir)
		}
		fmt.Fprintf(out, "  envdir:              %s\n", env.EnvDir)
		fmt.Fprintf(out, "  install_command:     %s\n", env.InstallCommand)
		if env.SkipInstall {
			fmt.Fprintf(out, "  skip_install:        true\n")
		}
		printList(out, "deps", env.Deps)
		printList(out, "commands", env.Commands)
		printList(out, "passenv", env.PassEnv)
		printList(out, "whitelist_externals", env.WhitelistExternals)
		if len(env.SetEnv) > 0 {
			fmt.Fprintf(out, "  setenv:\n")
			for k, v := range env.SetEnv {
				fmt.Fprintf(out, "    %s=%s\n", k, v)
			}
		}
	}
	return nil
}

func printList(out io.Writer, key string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(out, "  %s:\n", key)
	for _, v := range values {
		fmt.Fprintf(out, "    %s\n", v)
	}
}
