package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/isoenv/isoenv/packages/core/cmdline"
	"github.com/isoenv/isoenv/packages/core/config"
	"github.com/isoenv/isoenv/packages/core/subst"
	"github.com/isoenv/isoenv/packages/venv"
)

// Status is the outcome of one environment.
type Status int

const (
	// StatusPassed means every command succeeded (or had failures ignored).
	StatusPassed Status = iota
	// StatusFailed means a command failed and aborted the sequence.
	StatusFailed
	// StatusError means the environment could not be prepared at all.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	default:
		return "error"
	}
}

// Config holds the options of one run.
type Config struct {
	// Envs selects environments to run; empty means the config's envlist.
	Envs []string
	// Posargs are substituted for {posargs} in commands.
	Posargs []string
	// Recreate forces environments to be rebuilt.
	Recreate bool
	// Strict turns non-whitelisted external commands into errors.
	Strict bool
	// Quiet suppresses command output streaming.
	Quiet bool

	// Stdout and Stderr receive streamed command output. Defaults are the
	// process streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Runner executes environments from a loaded configuration.
type Runner struct {
	project *config.Config
	cfg     *Config
	venvs   *venv.Manager
}

func NewRunner(project *config.Config, cfg *Config) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}

	var vout, verr io.Writer = io.Discard, io.Discard
	if !cfg.Quiet {
		vout, verr = cfg.Stdout, cfg.Stderr
	}

	return &Runner{
		project: project,
		cfg:     cfg,
		venvs:   venv.NewManager(vout, verr),
	}
}

// RunResult aggregates the results of all executed environments.
type RunResult struct {
	Envs     []*EnvResult
	Duration time.Duration
	Passed   int
	Failed   int
}

// EnvResult is the outcome of a single environment.
type EnvResult struct {
	Name     string
	Status   Status
	ExitCode int
	Duration time.Duration
	Created  bool
	Commands []*CommandResult
	Err      error
}

// CommandResult is the outcome of a single command.
type CommandResult struct {
	Line     string
	Argv     []string
	ExitCode int
	Ignored  bool
	Duration time.Duration
	Output   string
	Err      error
}

// Failed reports whether the command failed and was not ignored.
func (c *CommandResult) Failed() bool {
	return c.ExitCode != 0 && !c.Ignored
}

// Selection returns the environment names this run will execute.
func (r *Runner) Selection() []string {
	if len(r.cfg.Envs) > 0 {
		return r.cfg.Envs
	}
	return r.project.Envlist
}

// Run executes the selected environments sequentially.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{}

	for _, name := range r.Selection() {
		if !r.project.HasEnv(name) {
			return nil, fmt.Errorf("environment %q is not declared", name)
		}
	}

	for _, name := range r.Selection() {
		envResult := r.runEnv(ctx, name)
		result.Envs = append(result.Envs, envResult)
		if envResult.Status == StatusPassed {
			result.Passed++
		} else {
			result.Failed++
		}
		if ctx.Err() != nil {
			break
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (r *Runner) runEnv(ctx context.Context, name string) *EnvResult {
	start := time.Now()
	result := &EnvResult{Name: name}
	defer func() { result.Duration = time.Since(start) }()

	envCfg, err := r.project.Env(name)
	if err != nil {
		return fail(result, err)
	}

	python, err := venv.ResolveInterpreter(envCfg.BasePython)
	if err != nil {
		return fail(result, err)
	}

	res, err := r.newResolver(name)
	if err != nil {
		return fail(result, err)
	}

	envDir, err := res.Expand(envCfg.EnvDir)
	if err != nil {
		return fail(result, err)
	}
	envDir = r.abs(envDir)
	res.Set("envdir", envDir)
	res.Set("envbindir", venv.BinDir(envDir))
	res.Set("envpython", venv.PythonPath(envDir))

	spec, err := r.buildSpec(envCfg, res, python, envDir)
	if err != nil {
		return fail(result, err)
	}

	created, err := r.venvs.Ensure(ctx, spec, r.cfg.Recreate)
	result.Created = created
	if err != nil {
		return fail(result, err)
	}

	environ, err := buildEnviron(envCfg, res, envDir)
	if err != nil {
		return fail(result, err)
	}

	workDir := r.project.RootDir
	if envCfg.ChangeDir != "" {
		cd, err := res.Expand(envCfg.ChangeDir)
		if err != nil {
			return fail(result, err)
		}
		workDir = r.abs(cd)
	}

	for _, line := range envCfg.Commands {
		cmdResult := r.runCommand(ctx, line, res, envCfg, envDir, workDir, environ)
		result.Commands = append(result.Commands, cmdResult)
		if cmdResult.Failed() {
			result.Status = StatusFailed
			result.ExitCode = cmdResult.ExitCode
			return result
		}
		if ctx.Err() != nil {
			result.Status = StatusError
			result.Err = ctx.Err()
			return result
		}
	}

	result.Status = StatusPassed
	return result
}

func (r *Runner) runCommand(ctx context.Context, line string, res *subst.Resolver, envCfg *config.EnvConfig, envDir, workDir string, environ []string) *CommandResult {
	start := time.Now()
	result := &CommandResult{Line: line}
	defer func() { result.Duration = time.Since(start) }()

	// The ignore marker is read from the raw line so substituted arguments
	// starting with "-" keep their meaning.
	raw := strings.TrimSpace(line)
	if strings.HasPrefix(raw, "-") {
		result.Ignored = true
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "-"))
	}

	expanded, err := res.Expand(raw)
	if err != nil {
		result.Err = err
		result.ExitCode = -1
		return result
	}

	expanded = strings.TrimSpace(expanded)
	if expanded == "" {
		return result
	}

	argv, err := cmdline.Split(expanded)
	if err != nil {
		result.Err = fmt.Errorf("command %q: %w", line, err)
		result.ExitCode = -1
		return result
	}
	result.Argv = argv

	path, err := resolveExecutable(argv[0], envDir, envCfg.WhitelistExternals, r.cfg.Strict)
	if err != nil {
		if !errors.Is(err, errNotWhitelisted) || r.cfg.Strict || path == "" {
			result.Err = err
			result.ExitCode = -1
			return result
		}
		fmt.Fprintf(r.cfg.Stderr, "warning: %s: %v\n", envCfg.Name, err)
	}

	var output bytes.Buffer
	stdout := io.Writer(&output)
	stderr := io.Writer(&output)
	if !r.cfg.Quiet {
		stdout = io.MultiWriter(r.cfg.Stdout, &output)
		stderr = io.MultiWriter(r.cfg.Stderr, &output)
	}

	cmd := exec.CommandContext(ctx, path, argv[1:]...)
	cmd.Dir = workDir
	cmd.Env = environ
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err = cmd.Run()
	result.Output = output.String()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
			result.Err = err
		}
	}
	return result
}

// newResolver builds the substitution resolver shared by every value of an
// environment. envdir aliases are filled in once the env dir is known.
func (r *Runner) newResolver(name string) (*subst.Resolver, error) {
	workDir, err := subst.NewResolver().
		Set("rootdir", r.project.RootDir).
		Set("toxinidir", r.project.RootDir).
		Expand(r.project.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("expanding workdir: %w", err)
	}
	workDir = r.abs(workDir)

	res := subst.NewResolver().
		Set("rootdir", r.project.RootDir).
		Set("toxinidir", r.project.RootDir).
		Set("workdir", workDir).
		Set("toxworkdir", workDir).
		Set("envname", name).
		SetPosargs(r.cfg.Posargs).
		SetPassthrough("packages").
		SetPassthrough("opts").
		SetLookup(r.project.Lookup)
	return res, nil
}

func (r *Runner) buildSpec(envCfg *config.EnvConfig, res *subst.Resolver, python *venv.Interpreter, envDir string) (*venv.Spec, error) {
	deps, err := res.ExpandAll(envCfg.Deps)
	if err != nil {
		return nil, fmt.Errorf("expanding deps: %w", err)
	}

	installLine, err := res.Expand(envCfg.InstallCommand)
	if err != nil {
		return nil, fmt.Errorf("expanding install_command: %w", err)
	}
	installArgv, err := cmdline.Split(installLine)
	if err != nil {
		return nil, fmt.Errorf("install_command: %w", err)
	}

	return &venv.Spec{
		Name:           envCfg.Name,
		Dir:            envDir,
		Python:         python,
		Deps:           deps,
		InstallCommand: installArgv,
		ProjectDir:     r.project.RootDir,
		InstallProject: !r.project.SkipSDist && !envCfg.SkipInstall,
	}, nil
}

func (r *Runner) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.project.RootDir, path)
}

func fail(result *EnvResult, err error) *EnvResult {
	result.Status = StatusError
	result.ExitCode = -1
	result.Err = err
	return result
}
