package runner

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"

	"github.com/isoenv/isoenv/packages/venv"
)

var errNotWhitelisted = errors.New("command is not installed in the environment and not whitelisted")

// resolveExecutable locates the executable for the first argv element.
// Commands installed in the environment's bin directory win; anything else
// must match a whitelist_externals pattern to be taken from PATH. A
// non-whitelisted external is reported via errNotWhitelisted so the caller
// can decide between a warning and a hard failure.
func resolveExecutable(name, envDir string, whitelist []string, strict bool) (string, error) {
	if filepath.Base(name) != name {
		// Explicit paths bypass lookup entirely.
		return name, nil
	}

	inEnv := filepath.Join(venv.BinDir(envDir), name)
	if _, err := os.Stat(inEnv); err == nil {
		return inEnv, nil
	}

	if matchesWhitelist(name, whitelist) {
		p, err := exec.LookPath(name)
		if err != nil {
			return "", fmt.Errorf("whitelisted command %q not found on PATH: %w", name, err)
		}
		return p, nil
	}

	if p, err := exec.LookPath(name); err == nil && !strict {
		return p, fmt.Errorf("%q: %w (add it to whitelist_externals)", name, errNotWhitelisted)
	}
	return "", fmt.Errorf("%q: %w (add it to whitelist_externals)", name, errNotWhitelisted)
}

func matchesWhitelist(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := path.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
