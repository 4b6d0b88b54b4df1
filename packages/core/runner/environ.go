package runner

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/hashicorp/go-envparse"

	"github.com/isoenv/isoenv/packages/core/config"
	"github.com/isoenv/isoenv/packages/core/subst"
	"github.com/isoenv/isoenv/packages/venv"
)

// basePassEnv are always passed through to commands regardless of passenv.
var basePassEnv = []string{
	"PATH",
	"HOME",
	"LANG",
	"LANGUAGE",
	"LC_ALL",
	"TMPDIR",
	"TEMP",
	"TMP",
	"USER",
}

// buildEnviron assembles the filtered process environment for commands:
// the base set, passenv matches, envfile values and setenv entries, with
// PATH prefixed by the environment's bin directory.
func buildEnviron(envCfg *config.EnvConfig, res *subst.Resolver, envDir string) ([]string, error) {
	vars := make(map[string]string)

	patterns := append([]string{}, basePassEnv...)
	patterns = append(patterns, envCfg.PassEnv...)
	for _, kv := range os.Environ() {
		name, value, _ := strings.Cut(kv, "=")
		if matchesAny(name, patterns) {
			vars[name] = value
		}
	}

	for _, file := range envCfg.EnvFiles {
		expanded, err := res.Expand(file)
		if err != nil {
			return nil, fmt.Errorf("expanding envfile path: %w", err)
		}
		fileVars, err := parseEnvFile(expanded)
		if err != nil {
			return nil, err
		}
		for k, v := range fileVars {
			vars[k] = v
		}
	}

	for name, raw := range envCfg.SetEnv {
		value, err := res.Expand(raw)
		if err != nil {
			return nil, fmt.Errorf("expanding setenv %s: %w", name, err)
		}
		vars[name] = value
	}

	binDir := venv.BinDir(envDir)
	if current, ok := vars["PATH"]; ok && current != "" {
		vars["PATH"] = binDir + string(os.PathListSeparator) + current
	} else {
		vars["PATH"] = binDir
	}
	vars["VIRTUAL_ENV"] = envDir

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	environ := make([]string, 0, len(names))
	for _, name := range names {
		environ = append(environ, name+"="+vars[name])
	}
	return environ, nil
}

func parseEnvFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening envfile: %w", err)
	}
	defer f.Close()

	vars, err := envparse.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing envfile %s: %w", path, err)
	}
	return vars, nil
}

func matchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := path.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
