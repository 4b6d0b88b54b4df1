package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/isoenv/isoenv/packages/core/runner"
)

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool

	results []*runner.EnvResult
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("isoenv"), version)
}

func (f *ConsoleFormatter) FormatEnvResult(result *runner.EnvResult) {
	f.results = append(f.results, result)

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n", bold(result.Name+":"))
	if result.Created {
		fmt.Fprintf(f.writer, "  %s environment created\n", cyan("~"))
	}

	for _, c := range result.Commands {
		switch {
		case c.Err != nil:
			fmt.Fprintf(f.writer, "  %s %s %s\n", red("x"), c.Line, red(fmt.Sprintf("(%v)", c.Err)))
		case c.ExitCode != 0 && c.Ignored:
			fmt.Fprintf(f.writer, "  %s %s %s\n", yellow("-"), c.Line, yellow(fmt.Sprintf("(exit %d, ignored)", c.ExitCode)))
		case c.ExitCode != 0:
			fmt.Fprintf(f.writer, "  %s %s %s\n", red("✗"), c.Line, red(fmt.Sprintf("(exit %d)", c.ExitCode)))
		default:
			fmt.Fprintf(f.writer, "  %s %s %s\n", green("✓"), c.Line, cyan(fmt.Sprintf("(%dms)", c.Duration.Milliseconds())))
		}
	}

	switch result.Status {
	case runner.StatusPassed:
		fmt.Fprintf(f.writer, "  %s\n", green("commands succeeded"))
	case runner.StatusFailed:
		fmt.Fprintf(f.writer, "  %s\n", red(fmt.Sprintf("failed with exit code %d", result.ExitCode)))
	default:
		fmt.Fprintf(f.writer, "  %s\n", red(fmt.Sprintf("error: %v", result.Err)))
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

// Flush prints the per-run roll-up summary.
func (f *ConsoleFormatter) Flush(totalDuration time.Duration) error {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(f.writer, "\nSummary\n")
	allPassed := true
	for _, r := range f.results {
		switch r.Status {
		case runner.StatusPassed:
			fmt.Fprintf(f.writer, "  %s: %s (%dms)\n", r.Name, green("ok"), r.Duration.Milliseconds())
		case runner.StatusFailed:
			allPassed = false
			fmt.Fprintf(f.writer, "  %s: %s (exit %d)\n", r.Name, red("failed"), r.ExitCode)
		default:
			allPassed = false
			fmt.Fprintf(f.writer, "  %s: %s (%v)\n", r.Name, red("error"), r.Err)
		}
	}
	if allPassed {
		fmt.Fprintf(f.writer, "  %s (%dms)\n", green("congratulations :)"), totalDuration.Milliseconds())
	}
	return nil
}
