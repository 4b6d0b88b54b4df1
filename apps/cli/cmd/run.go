package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/isoenv/isoenv/packages/core/config"
	"github.com/isoenv/isoenv/packages/core/runner"
	"github.com/isoenv/isoenv/packages/core/subst"
	"github.com/isoenv/isoenv/packages/history"
	"github.com/isoenv/isoenv/packages/output"
)

var runCmd = &cobra.Command{
	Use:   "run [-- posargs...]",
	Short: "Run environments from the config file",
	Long: `Run the configured environments: create each isolated environment,
install its dependency list, and execute its commands in order.

Examples:
  isoenv run
  isoenv run -e docs
  isoenv run -e default,docs --recreate
  isoenv run -- -k test_changes
  isoenv run -o junit --output-file report.xml`,
	Args: cobra.ArbitraryArgs,
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	envFlag        string
	configFlag     string
	recreateFlag   bool
	strictFlag     bool
	quietFlag      bool
	verboseFlag    bool
	noColorFlag    bool
	outputFlag     string
	outputFileFlag string
	watchFlag      bool
	noHistoryFlag  bool
)

func init() {
	registerRunFlags(runCmd)
	registerRunFlags(rootCmd)
}

// registerRunFlags binds the run flag set; the root command carries the same
// flags so that bare "isoenv -e docs" works.
func registerRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&envFlag, "env", "e", getEnvString("ISOENV_ENV", ""), "Comma-separated environments to run (env: ISOENV_ENV)")
	cmd.Flags().StringVarP(&configFlag, "config", "c", getEnvString("ISOENV_CONFIG", ""), "Path to config file (env: ISOENV_CONFIG)")
	cmd.Flags().BoolVar(&recreateFlag, "recreate", false, "Recreate environments even when up to date")
	cmd.Flags().BoolVar(&strictFlag, "strict", getEnvBool("ISOENV_STRICT", false), "Fail on non-whitelisted external commands (env: ISOENV_STRICT)")
	cmd.Flags().BoolVarP(&quietFlag, "quiet", "q", getEnvBool("ISOENV_QUIET", false), "Suppress command output (env: ISOENV_QUIET)")
	cmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose output")
	cmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("ISOENV_NO_COLOR", false), "Disable colored output (env: ISOENV_NO_COLOR)")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("ISOENV_OUTPUT", "console"), "Output format: console, json, junit (env: ISOENV_OUTPUT)")
	cmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("ISOENV_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: ISOENV_OUTPUT_FILE)")
	cmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch the project for changes and re-run")
	cmd.Flags().BoolVar(&noHistoryFlag, "no-history", false, "Do not record this run in the history database")
}

// Formatter interface for all output formatters
type Formatter interface {
	FormatHeader(version string)
	FormatEnvResult(result *runner.EnvResult)
	FormatError(err error)
}

// Flushable interface for formatters that accumulate output
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

func runCommand(cmd *cobra.Command, args []string) error {
	posargs := []string{}
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		posargs = args[dash:]
		args = args[:dash]
	}
	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected argument %q (positional arguments go after --)\n", args[0])
		os.Exit(ExitUsageError)
	}

	project, err := loadCheckedProject()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitConfigError)
	}

	var outWriter *os.File
	if outputFileFlag != "" {
		outWriter, err = os.Create(outputFileFlag)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer outWriter.Close()
	}

	formatter := newFormatter(outWriter)
	formatter.FormatHeader(version)

	// Machine-readable formats own stdout, so command output is silenced
	// unless it goes to a file.
	structured := !strings.EqualFold(outputFlag, "console")
	quiet := quietFlag || (structured && outputFileFlag == "")

	runCfg := &runner.Config{
		Envs:     splitEnvSelection(envFlag),
		Posargs:  posargs,
		Recreate: recreateFlag,
		Strict:   strictFlag,
		Quiet:    quiet,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runAll := func(f Formatter) (failed int, duration time.Duration) {
		r := runner.NewRunner(project, runCfg)
		result, err := r.Run(ctx)
		if err != nil {
			f.FormatError(err)
			return 1, 0
		}
		for _, envResult := range result.Envs {
			f.FormatEnvResult(envResult)
		}
		if !noHistoryFlag {
			recordHistory(ctx, project, result)
		}
		return result.Failed, result.Duration
	}

	failed, duration := runAll(formatter)
	if flushable, ok := formatter.(Flushable); ok {
		if err := flushable.Flush(duration); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}

	if !watchFlag {
		if failed > 0 {
			os.Exit(ExitEnvFailure)
		}
		return nil
	}

	return watchAndRerun(ctx, cmd, project, runAll)
}

func watchAndRerun(ctx context.Context, cmd *cobra.Command, project *config.Config, runAll func(Formatter) (int, time.Duration)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	workDir := projectWorkDir(project)
	err = filepath.WalkDir(project.RootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path == workDir || (strings.HasPrefix(filepath.Base(path), ".") && path != project.RootDir) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		return fmt.Errorf("failed to watch project tree: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	var debounceTimer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if strings.HasPrefix(event.Name, workDir) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "\n\nFile changed: %s\nRe-running environments...\n\n", event.Name)

				// Fresh formatter per rerun so accumulating formats
				// start from a clean state.
				f := newFormatter(nil)
				_, duration := runAll(f)
				if flushable, ok := f.(Flushable); ok {
					_ = flushable.Flush(duration)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "warning: watcher error: %v\n", err)
		}
	}
}

func newFormatter(outWriter *os.File) Formatter {
	switch strings.ToLower(outputFlag) {
	case "json":
		opts := []output.JSONOption{}
		if outWriter != nil {
			opts = append(opts, output.JSONWithWriter(outWriter))
		}
		return output.NewJSONFormatter(opts...)
	case "junit":
		opts := []output.JUnitOption{}
		if outWriter != nil {
			opts = append(opts, output.JUnitWithWriter(outWriter))
		}
		return output.NewJUnitFormatter(opts...)
	default: // "console"
		consoleOpts := []output.ConsoleOption{
			output.WithVerbose(verboseFlag),
			output.WithNoColor(noColorFlag || quietFlag),
		}
		if outWriter != nil {
			consoleOpts = append(consoleOpts, output.WithWriter(outWriter))
		}
		return output.NewConsoleFormatter(consoleOpts...)
	}
}

func recordHistory(ctx context.Context, project *config.Config, result *runner.RunResult) {
	store, err := history.Open(filepath.Join(projectWorkDir(project), history.FileName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		return
	}
	defer store.Close()

	startedAt := time.Now().Add(-result.Duration)
	for _, envResult := range result.Envs {
		rec := &history.Record{
			Env:       envResult.Name,
			StartedAt: startedAt,
			Duration:  envResult.Duration,
			ExitCode:  envResult.ExitCode,
			Commands:  len(envResult.Commands),
		}
		if err := store.Insert(ctx, rec); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			return
		}
	}
}

func loadProject() (*config.Config, error) {
	if configFlag != "" {
		return config.Load(configFlag)
	}
	return config.Discover(".")
}

// loadCheckedProject loads the config and enforces its minversion key.
func loadCheckedProject() (*config.Config, error) {
	project, err := loadProject()
	if err != nil {
		return nil, err
	}
	if err := project.CheckMinVersion(version); err != nil {
		return nil, err
	}
	return project, nil
}

// projectWorkDir expands the configured work directory to an absolute path.
func projectWorkDir(project *config.Config) string {
	res := subst.NewResolver().
		Set("rootdir", project.RootDir).
		Set("toxinidir", project.RootDir)
	workDir, err := res.Expand(project.WorkDir)
	if err != nil || workDir == "" {
		workDir = ".isoenv"
	}
	if !filepath.IsAbs(workDir) {
		workDir = filepath.Join(project.RootDir, workDir)
	}
	return workDir
}

func splitEnvSelection(value string) []string {
	var envs []string
	for _, e := range strings.Split(value, ",") {
		e = strings.TrimSpace(e)
		if e != "" {
			envs = append(envs, e)
		}
	}
	return envs
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
