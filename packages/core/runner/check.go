package runner

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/isoenv/isoenv/packages/core/cmdline"
	"github.com/isoenv/isoenv/packages/core/config"
	"github.com/isoenv/isoenv/packages/core/subst"
	"github.com/isoenv/isoenv/packages/venv"
)

// Check verifies an environment without executing it: every command line
// must substitute, tokenize, and name a resolvable executable. The
// environment's bin directory may not exist yet; commands that would be
// installed by deps are resolved against PATH as a fallback.
func (r *Runner) Check(name string) []error {
	var findings []error

	envCfg, err := r.project.Env(name)
	if err != nil {
		return []error{err}
	}

	if _, err := venv.ResolveInterpreter(envCfg.BasePython); err != nil {
		findings = append(findings, err)
	}

	res, err := r.newResolver(name)
	if err != nil {
		return append(findings, err)
	}

	envDir, err := res.Expand(envCfg.EnvDir)
	if err != nil {
		return append(findings, fmt.Errorf("envdir: %w", err))
	}
	envDir = r.abs(envDir)
	res.Set("envdir", envDir)
	res.Set("envbindir", venv.BinDir(envDir))
	res.Set("envpython", venv.PythonPath(envDir))

	if _, err := r.buildSpec(envCfg, res, &venv.Interpreter{}, envDir); err != nil {
		findings = append(findings, err)
	}

	workDir := r.project.RootDir
	if envCfg.ChangeDir != "" {
		cd, err := res.Expand(envCfg.ChangeDir)
		if err != nil {
			findings = append(findings, fmt.Errorf("changedir: %w", err))
		} else {
			workDir = r.abs(cd)
		}
	}

	for _, line := range envCfg.Commands {
		if err := r.checkCommand(line, res, envCfg, envDir, workDir); err != nil {
			findings = append(findings, err)
		}
	}
	return findings
}

func (r *Runner) checkCommand(line string, res *subst.Resolver, envCfg *config.EnvConfig, envDir, workDir string) error {
	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
	expanded, err := res.Expand(raw)
	if err != nil {
		return fmt.Errorf("command %q: %w", line, err)
	}
	expanded = strings.TrimSpace(expanded)
	if expanded == "" {
		return nil
	}

	argv, err := cmdline.Split(expanded)
	if err != nil {
		return fmt.Errorf("command %q: %w", line, err)
	}

	name := argv[0]
	if filepath.Base(name) != name {
		// Explicit paths run relative to the command working directory.
		p := name
		if !filepath.IsAbs(p) {
			p = filepath.Join(workDir, p)
		}
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("command %q: executable %s not found", line, name)
		}
		return nil
	}
	if _, err := os.Stat(filepath.Join(venv.BinDir(envDir), name)); err == nil {
		return nil
	}
	if _, err := exec.LookPath(name); err == nil {
		if !matchesWhitelist(name, envCfg.WhitelistExternals) && r.cfg.Strict {
			return fmt.Errorf("command %q: %q resolves outside the environment and is not in whitelist_externals", line, name)
		}
		return nil
	}
	return fmt.Errorf("command %q: executable %q not resolvable", line, name)
}
