package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `[isoenv]
envlist = default, docs
skipsdist = true
minversion = 1.0

[testenv]
deps =
    pytest
    coverage
passenv = CI TRAVIS
commands =
    coverage run -m pytest tests
    coverage report

[testenv:docs]
description = build the HTML documentation
basepython = python3.11
changedir = docs
whitelist_externals =
    make
deps =
    sphinx
commands =
    make html
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "isoenv.ini", sampleConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"default", "docs"}, cfg.Envlist)
	assert.True(t, cfg.SkipSDist)
	assert.Equal(t, "1.0", cfg.MinVersion)
	assert.Equal(t, "{rootdir}/.isoenv", cfg.WorkDir)
	assert.Equal(t, filepath.Dir(path), cfg.RootDir)
}

func TestLoadToxSectionAlias(t *testing.T) {
	path := writeConfig(t, "tox.ini", `[tox]
envlist = default
toxworkdir = {toxinidir}/.tox

[testenv]
commands = pytest
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"default"}, cfg.Envlist)
	assert.Equal(t, "{toxinidir}/.tox", cfg.WorkDir)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "isoenv.ini", "[testenv]\ncommands = pytest\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultEnvName}, cfg.Envlist)
	assert.False(t, cfg.SkipSDist)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "isoenv.ini"))
	assert.Error(t, err)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tox.ini"), []byte(sampleConfig), 0o644))

	cfg, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "tox.ini"), cfg.Path)
}

func TestDiscoverPrefersIsoenvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "isoenv.ini"), []byte(sampleConfig), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tox.ini"), []byte(sampleConfig), 0o644))

	cfg, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, "isoenv.ini", filepath.Base(cfg.Path))
}

func TestDiscoverNotFound(t *testing.T) {
	_, err := Discover(t.TempDir())
	assert.Error(t, err)
}

func TestEnvNames(t *testing.T) {
	path := writeConfig(t, "isoenv.ini", sampleConfig)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"default", "docs"}, cfg.EnvNames())
	assert.True(t, cfg.HasEnv("default"))
	assert.True(t, cfg.HasEnv("docs"))
	assert.False(t, cfg.HasEnv("lint"))
}

func TestEnvInheritance(t *testing.T) {
	path := writeConfig(t, "isoenv.ini", sampleConfig)
	cfg, err := Load(path)
	require.NoError(t, err)

	env, err := cfg.Env("docs")
	require.NoError(t, err)

	assert.Equal(t, "docs", env.Name)
	assert.Equal(t, "build the HTML documentation", env.Description)
	assert.Equal(t, "python3.11", env.BasePython)
	assert.Equal(t, "docs", env.ChangeDir)
	// Overridden by the named section.
	assert.Equal(t, []string{"sphinx"}, env.Deps)
	assert.Equal(t, []string{"make html"}, env.Commands)
	// Inherited from [testenv].
	assert.Equal(t, []string{"CI", "TRAVIS"}, env.PassEnv)
	assert.Equal(t, []string{"make"}, env.WhitelistExternals)
}

func TestEnvDefault(t *testing.T) {
	path := writeConfig(t, "isoenv.ini", sampleConfig)
	cfg, err := Load(path)
	require.NoError(t, err)

	env, err := cfg.Env("default")
	require.NoError(t, err)

	assert.Equal(t, []string{"pytest", "coverage"}, env.Deps)
	assert.Equal(t, []string{
		"coverage run -m pytest tests",
		"coverage report",
	}, env.Commands)
	assert.Empty(t, env.BasePython)
	assert.Equal(t, "{workdir}/{envname}", env.EnvDir)
	assert.Equal(t, "python -m pip install {opts} {packages}", env.InstallCommand)
}

func TestEnvUnknown(t *testing.T) {
	path := writeConfig(t, "isoenv.ini", sampleConfig)
	cfg, err := Load(path)
	require.NoError(t, err)

	_, err = cfg.Env("lint")
	assert.ErrorContains(t, err, "not declared")
}

func TestLookup(t *testing.T) {
	path := writeConfig(t, "isoenv.ini", sampleConfig)
	cfg, err := Load(path)
	require.NoError(t, err)

	value, ok := cfg.Lookup("testenv", "passenv")
	assert.True(t, ok)
	assert.Equal(t, "CI TRAVIS", value)

	_, ok = cfg.Lookup("testenv", "nope")
	assert.False(t, ok)
	_, ok = cfg.Lookup("nope", "key")
	assert.False(t, ok)
}

func TestSplitCommands(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "plain lines",
			input: "\npytest\ncoverage report\n",
			want:  []string{"pytest", "coverage report"},
		},
		{
			name:  "backslash continuation",
			input: "sphinx-build -b html \\\n  source build",
			want:  []string{"sphinx-build -b html source build"},
		},
		{
			name:  "trailing continuation",
			input: "pytest \\",
			want:  []string{"pytest"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitCommands(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitCommands(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParsePairs(t *testing.T) {
	pairs := parsePairs("\nPYTHONHASHSEED = 0\nDEBUG=1\nmalformed\n")
	assert.Equal(t, map[string]string{"PYTHONHASHSEED": "0", "DEBUG": "1"}, pairs)
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"true", "True", "1", "yes", "on"} {
		assert.True(t, parseBool(v), v)
	}
	for _, v := range []string{"false", "0", "no", "", "banana"} {
		assert.False(t, parseBool(v), v)
	}
}
