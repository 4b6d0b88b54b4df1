package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/isoenv/isoenv/packages/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent runs",
	Long: `Show recent environment runs recorded in the history database.

Examples:
  isoenv history
  isoenv history -n 50`,
	Args: cobra.NoArgs,
	RunE: historyCommand,
}

var historyLimitFlag int

func init() {
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", getEnvInt("ISOENV_HISTORY_LIMIT", 20), "Maximum rows to show (env: ISOENV_HISTORY_LIMIT)")
	historyCmd.Flags().StringVarP(&configFlag, "config", "c", configFlag, "Path to config file (env: ISOENV_CONFIG)")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	project, err := loadProject()
	if err != nil {
		return err
	}

	path := filepath.Join(projectWorkDir(project), history.FileName)
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "No history recorded yet.")
		return nil
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Recent(cmd.Context(), historyLimitFlag)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No history recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tENV\tRESULT\tDURATION\tCOMMANDS")
	for _, rec := range records {
		result := "ok"
		if rec.ExitCode != 0 {
			result = fmt.Sprintf("exit %d", rec.ExitCode)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%dms\t%d\n",
			rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
			rec.Env, result, rec.Duration.Milliseconds(), rec.Commands)
	}
	return w.Flush()
}
