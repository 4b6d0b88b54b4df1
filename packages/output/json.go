package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/isoenv/isoenv/packages/core/runner"
)

// JSONFormatter accumulates results and writes one JSON document on Flush.
type JSONFormatter struct {
	writer  io.Writer
	version string
	envs    []jsonEnv
	errors  []string
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

type jsonDocument struct {
	Version string      `json:"version,omitempty"`
	Envs    []jsonEnv   `json:"environments"`
	Errors  []string    `json:"errors,omitempty"`
	Summary jsonSummary `json:"summary"`
}

type jsonEnv struct {
	Name       string        `json:"name"`
	Status     string        `json:"status"`
	ExitCode   int           `json:"exitCode"`
	DurationMs int64         `json:"durationMs"`
	Created    bool          `json:"created"`
	Error      string        `json:"error,omitempty"`
	Commands   []jsonCommand `json:"commands"`
}

type jsonCommand struct {
	Line       string `json:"line"`
	ExitCode   int    `json:"exitCode"`
	Ignored    bool   `json:"ignored,omitempty"`
	DurationMs int64  `json:"durationMs"`
	Error      string `json:"error,omitempty"`
}

type jsonSummary struct {
	Passed     int   `json:"passed"`
	Failed     int   `json:"failed"`
	DurationMs int64 `json:"durationMs"`
}

func (f *JSONFormatter) FormatHeader(version string) {
	f.version = version
}

func (f *JSONFormatter) FormatEnvResult(result *runner.EnvResult) {
	env := jsonEnv{
		Name:       result.Name,
		Status:     result.Status.String(),
		ExitCode:   result.ExitCode,
		DurationMs: result.Duration.Milliseconds(),
		Created:    result.Created,
	}
	if result.Err != nil {
		env.Error = result.Err.Error()
	}
	for _, c := range result.Commands {
		jc := jsonCommand{
			Line:       c.Line,
			ExitCode:   c.ExitCode,
			Ignored:    c.Ignored,
			DurationMs: c.Duration.Milliseconds(),
		}
		if c.Err != nil {
			jc.Error = c.Err.Error()
		}
		env.Commands = append(env.Commands, jc)
	}
	f.envs = append(f.envs, env)
}

func (f *JSONFormatter) FormatError(err error) {
	f.errors = append(f.errors, err.Error())
}

func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	doc := jsonDocument{
		Version: f.version,
		Envs:    f.envs,
		Errors:  f.errors,
		Summary: jsonSummary{DurationMs: totalDuration.Milliseconds()},
	}
	if doc.Envs == nil {
		doc.Envs = []jsonEnv{}
	}
	for _, e := range f.envs {
		if e.Status == runner.StatusPassed.String() {
			doc.Summary.Passed++
		} else {
			doc.Summary.Failed++
		}
	}

	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
