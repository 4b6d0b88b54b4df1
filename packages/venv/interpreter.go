package venv

import (
	"fmt"
	"os/exec"
	"strings"
)

// Interpreter is a resolved Python interpreter.
type Interpreter struct {
	// Name is the requested executable name, e.g. "python3.11".
	Name string
	// Path is the absolute path found on PATH.
	Path string
	// Version is the version reported by the interpreter, e.g. "3.11.4".
	Version string
}

// defaultInterpreters are tried in order when basepython is not set.
var defaultInterpreters = []string{"python3", "python"}

// ResolveInterpreter locates the interpreter named by basepython, or the
// first default interpreter on PATH when basepython is empty, and probes its
// version.
func ResolveInterpreter(basepython string) (*Interpreter, error) {
	candidates := defaultInterpreters
	if basepython != "" {
		candidates = []string{basepython}
	}

	var lastErr error
	for _, name := range candidates {
		path, err := exec.LookPath(name)
		if err != nil {
			lastErr = err
			continue
		}
		version, err := probeVersion(path)
		if err != nil {
			return nil, fmt.Errorf("interpreter %s: %w", name, err)
		}
		return &Interpreter{Name: name, Path: path, Version: version}, nil
	}
	return nil, fmt.Errorf("no usable interpreter (tried %s): %w", strings.Join(candidates, ", "), lastErr)
}

func probeVersion(path string) (string, error) {
	out, err := exec.Command(path, "--version").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("probing version: %w", err)
	}
	return ParseVersionOutput(string(out)), nil
}

// ParseVersionOutput extracts the version number from interpreter output
// such as "Python 3.11.4".
func ParseVersionOutput(out string) string {
	fields := strings.Fields(strings.TrimSpace(out))
	for _, f := range fields {
		if len(f) > 0 && f[0] >= '0' && f[0] <= '9' {
			return f
		}
	}
	return strings.TrimSpace(out)
}
