package venv

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"
)

// Spec describes the environment to create or reuse.
type Spec struct {
	// Name is the environment name, for messages only.
	Name string
	// Dir is the absolute environment directory.
	Dir string
	// Python is the resolved base interpreter.
	Python *Interpreter
	// Deps are the packages to install.
	Deps []string
	// InstallCommand is the tokenized install command; the {packages}
	// element expands to Deps and {opts} is dropped when empty.
	InstallCommand []string
	// ProjectDir is the project root, installed editable unless
	// InstallProject is false.
	ProjectDir     string
	InstallProject bool
}

// BinDir returns the scripts directory of an environment.
func BinDir(envDir string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(envDir, "Scripts")
	}
	return filepath.Join(envDir, "bin")
}

// PythonPath returns the interpreter inside an environment.
func PythonPath(envDir string) string {
	name := "python"
	if runtime.GOOS == "windows" {
		name = "python.exe"
	}
	return filepath.Join(BinDir(envDir), name)
}

// Manager creates environments and installs dependencies into them.
type Manager struct {
	// Stdout and Stderr receive creation and installer output.
	Stdout io.Writer
	Stderr io.Writer
}

func NewManager(stdout, stderr io.Writer) *Manager {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	return &Manager{Stdout: stdout, Stderr: stderr}
}

// Ensure makes the environment described by spec exist and be up to date.
// It returns true when the environment was (re)created.
func (m *Manager) Ensure(ctx context.Context, spec *Spec, recreate bool) (bool, error) {
	state, err := ReadState(spec.Dir)
	if err != nil {
		// Unreadable state means an undefined environment: rebuild it.
		state = nil
	}

	if state != nil && !recreate && state.ConfigHash == spec.Fingerprint() {
		return false, nil
	}

	if err := os.RemoveAll(spec.Dir); err != nil {
		return false, fmt.Errorf("removing stale environment %s: %w", spec.Name, err)
	}
	if err := os.MkdirAll(filepath.Dir(spec.Dir), 0o755); err != nil {
		return false, fmt.Errorf("creating work directory: %w", err)
	}

	if err := m.run(ctx, spec.ProjectDir, spec.Python.Path, "-m", "venv", spec.Dir); err != nil {
		return false, fmt.Errorf("creating environment %s: %w", spec.Name, err)
	}

	if err := m.install(ctx, spec); err != nil {
		return false, err
	}

	newState := &State{
		Python:     spec.Python.Path,
		Version:    spec.Python.Version,
		Deps:       spec.Deps,
		ConfigHash: spec.Fingerprint(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := newState.Write(spec.Dir); err != nil {
		return true, err
	}
	return true, nil
}

func (m *Manager) install(ctx context.Context, spec *Spec) error {
	if len(spec.Deps) > 0 {
		argv, err := buildInstallArgv(spec.InstallCommand, spec.Deps)
		if err != nil {
			return err
		}
		// The installer runs inside the environment when it exists there.
		argv[0] = resolveInEnv(spec.Dir, argv[0])
		if err := m.run(ctx, spec.ProjectDir, argv[0], argv[1:]...); err != nil {
			return fmt.Errorf("installing deps for %s: %w", spec.Name, err)
		}
	}

	if spec.InstallProject {
		python := PythonPath(spec.Dir)
		if err := m.run(ctx, spec.ProjectDir, python, "-m", "pip", "install", "-e", spec.ProjectDir); err != nil {
			return fmt.Errorf("installing project into %s: %w", spec.Name, err)
		}
	}
	return nil
}

// buildInstallArgv expands the {packages} placeholder into the dependency
// list and drops an empty {opts}.
func buildInstallArgv(template []string, deps []string) ([]string, error) {
	if len(template) == 0 {
		return nil, fmt.Errorf("empty install_command")
	}
	argv := make([]string, 0, len(template)+len(deps))
	sawPackages := false
	for _, arg := range template {
		switch arg {
		case "{packages}":
			argv = append(argv, deps...)
			sawPackages = true
		case "{opts}":
			// Reserved for installer options, nothing to add.
		default:
			argv = append(argv, arg)
		}
	}
	if !sawPackages {
		argv = append(argv, deps...)
	}
	return argv, nil
}

// resolveInEnv prefers the environment's own copy of a bare command name.
func resolveInEnv(envDir, name string) string {
	if filepath.Base(name) != name {
		return name
	}
	path := filepath.Join(BinDir(envDir), name)
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return name
}

func (m *Manager) run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = m.Stdout
	cmd.Stderr = m.Stderr
	return cmd.Run()
}
