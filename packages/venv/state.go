package venv

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// StateFileName is the metadata file written inside each environment.
const StateFileName = "state.yaml"

// State records how an environment was built. A hash mismatch on a later run
// means the configuration changed and the environment must be recreated.
type State struct {
	Python     string    `yaml:"python"`
	Version    string    `yaml:"version"`
	Deps       []string  `yaml:"deps,omitempty"`
	ConfigHash string    `yaml:"config_hash"`
	CreatedAt  time.Time `yaml:"created_at"`
}

// ReadState loads the state file from an environment directory. A missing
// file returns nil with no error.
func ReadState(envDir string) (*State, error) {
	data, err := os.ReadFile(filepath.Join(envDir, StateFileName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading environment state: %w", err)
	}
	var s State
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing environment state: %w", err)
	}
	return &s, nil
}

// Write stores the state file in the environment directory.
func (s *State) Write(envDir string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding environment state: %w", err)
	}
	if err := os.WriteFile(filepath.Join(envDir, StateFileName), data, 0o644); err != nil {
		return fmt.Errorf("writing environment state: %w", err)
	}
	return nil
}

// Fingerprint hashes the parts of a Spec that require a rebuild when they
// change: interpreter, dependencies and the install command.
func (spec *Spec) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintln(h, spec.Python.Name)
	fmt.Fprintln(h, spec.Python.Version)
	fmt.Fprintln(h, strings.Join(spec.Deps, "\n"))
	fmt.Fprintln(h, strings.Join(spec.InstallCommand, " "))
	fmt.Fprintln(h, spec.InstallProject)
	return hex.EncodeToString(h.Sum(nil))
}
