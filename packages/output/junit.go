package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/isoenv/isoenv/packages/core/runner"
)

// JUnitFormatter writes a JUnit XML report for CI systems: one testsuite per
// environment, one testcase per command.
type JUnitFormatter struct {
	writer io.Writer
	suites []junitSuite
}

type JUnitOption func(*JUnitFormatter)

func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		f.writer = w
	}
}

type junitSuites struct {
	XMLName  xml.Name     `xml:"testsuites"`
	Tests    int          `xml:"tests,attr"`
	Failures int          `xml:"failures,attr"`
	Errors   int          `xml:"errors,attr"`
	Time     string       `xml:"time,attr"`
	Suites   []junitSuite `xml:"testsuite"`
}

type junitSuite struct {
	Name     string      `xml:"name,attr"`
	Tests    int         `xml:"tests,attr"`
	Failures int         `xml:"failures,attr"`
	Errors   int         `xml:"errors,attr"`
	Time     string      `xml:"time,attr"`
	Cases    []junitCase `xml:"testcase"`
}

type junitCase struct {
	Name    string        `xml:"name,attr"`
	Time    string        `xml:"time,attr"`
	Failure *junitFailure `xml:"failure,omitempty"`
	Error   *junitFailure `xml:"error,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Content string `xml:",chardata"`
}

func (f *JUnitFormatter) FormatHeader(string) {}

func (f *JUnitFormatter) FormatEnvResult(result *runner.EnvResult) {
	suite := junitSuite{
		Name: result.Name,
		Time: formatSeconds(result.Duration),
	}

	for _, c := range result.Commands {
		tc := junitCase{
			Name: c.Line,
			Time: formatSeconds(c.Duration),
		}
		switch {
		case c.Err != nil:
			tc.Error = &junitFailure{Message: c.Err.Error(), Content: c.Output}
			suite.Errors++
		case c.Failed():
			tc.Failure = &junitFailure{
				Message: fmt.Sprintf("exit code %d", c.ExitCode),
				Content: c.Output,
			}
			suite.Failures++
		}
		suite.Cases = append(suite.Cases, tc)
		suite.Tests++
	}

	if result.Status == runner.StatusError && result.Err != nil && len(result.Commands) == 0 {
		suite.Cases = append(suite.Cases, junitCase{
			Name:  "environment setup",
			Time:  "0",
			Error: &junitFailure{Message: result.Err.Error()},
		})
		suite.Tests++
		suite.Errors++
	}

	f.suites = append(f.suites, suite)
}

func (f *JUnitFormatter) FormatError(err error) {
	f.suites = append(f.suites, junitSuite{
		Name:   "isoenv",
		Tests:  1,
		Errors: 1,
		Time:   "0",
		Cases: []junitCase{{
			Name:  "run",
			Time:  "0",
			Error: &junitFailure{Message: err.Error()},
		}},
	})
}

func (f *JUnitFormatter) Flush(totalDuration time.Duration) error {
	doc := junitSuites{
		Time:   formatSeconds(totalDuration),
		Suites: f.suites,
	}
	for _, s := range f.suites {
		doc.Tests += s.Tests
		doc.Failures += s.Failures
		doc.Errors += s.Errors
	}

	if _, err := io.WriteString(f.writer, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(f.writer)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding JUnit output: %w", err)
	}
	_, err := io.WriteString(f.writer, "\n")
	return err
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
