package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-ini/ini"
)

const (
	// GlobalSection is the canonical name of the global section.
	GlobalSection = "isoenv"
	// GlobalSectionAlias is accepted for tox.ini compatibility.
	GlobalSectionAlias = "tox"
	// BaseEnvSection defines the "default" environment and the base keys
	// inherited by every [testenv:NAME] section.
	BaseEnvSection = "testenv"
	// EnvSectionPrefix prefixes named environment sections.
	EnvSectionPrefix = "testenv:"

	// DefaultEnvName is the environment defined by the bare [testenv] section.
	DefaultEnvName = "default"
)

// ConfigFilenames contains the config file names searched in order.
var ConfigFilenames = []string{
	"isoenv.ini",
	"tox.ini",
}

// Config is the in-memory representation of an isoenv configuration file.
type Config struct {
	// Path is the absolute path of the loaded file.
	Path string
	// RootDir is the directory containing the config file.
	RootDir string

	// Envlist holds the environment names run when none are selected.
	Envlist []string
	// WorkDir is the directory holding created environments (raw value,
	// may contain substitutions).
	WorkDir string
	// SkipSDist disables installing the project itself into environments.
	SkipSDist bool
	// MinVersion is the minimum tool version required by the file.
	MinVersion string

	file *ini.File
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}

	f, err := ini.LoadSources(ini.LoadOptions{
		AllowPythonMultilineValues: true,
		IgnoreInlineComment:        true,
	}, abs)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	c := &Config{
		Path:    abs,
		RootDir: filepath.Dir(abs),
		WorkDir: "{rootdir}/.isoenv",
		Envlist: []string{DefaultEnvName},
		file:    f,
	}

	global := c.globalSection()
	if global != nil {
		if global.HasKey("envlist") {
			c.Envlist = splitList(global.Key("envlist").String())
		}
		for _, key := range []string{"workdir", "toxworkdir"} {
			if global.HasKey(key) {
				c.WorkDir = strings.TrimSpace(global.Key(key).String())
			}
		}
		if global.HasKey("skipsdist") {
			c.SkipSDist = parseBool(global.Key("skipsdist").String())
		}
		if global.HasKey("minversion") {
			c.MinVersion = strings.TrimSpace(global.Key("minversion").String())
		}
	}

	if len(c.Envlist) == 0 {
		c.Envlist = []string{DefaultEnvName}
	}

	return c, nil
}

// Discover searches dir for a config file and loads the first one found.
func Discover(dir string) (*Config, error) {
	for _, name := range ConfigFilenames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return nil, fmt.Errorf("no %s found in %s", strings.Join(ConfigFilenames, " or "), dir)
}

func (c *Config) globalSection() *ini.Section {
	for _, name := range []string{GlobalSection, GlobalSectionAlias} {
		if sec, err := c.file.GetSection(name); err == nil {
			return sec
		}
	}
	return nil
}

// EnvNames returns all declared environment names, "default" first when the
// bare [testenv] section exists, the rest sorted.
func (c *Config) EnvNames() []string {
	var names []string
	hasBase := false
	for _, sec := range c.file.Sections() {
		switch {
		case sec.Name() == BaseEnvSection:
			hasBase = true
		case strings.HasPrefix(sec.Name(), EnvSectionPrefix):
			names = append(names, sec.Name()[len(EnvSectionPrefix):])
		}
	}
	sort.Strings(names)
	if hasBase {
		names = append([]string{DefaultEnvName}, names...)
	}
	return names
}

// HasEnv reports whether an environment with the given name is declared.
func (c *Config) HasEnv(name string) bool {
	if name == DefaultEnvName {
		_, err := c.file.GetSection(BaseEnvSection)
		return err == nil
	}
	_, err := c.file.GetSection(EnvSectionPrefix + name)
	return err == nil
}

// Env builds the effective configuration of the named environment, applying
// [testenv] inheritance. Values are raw: substitutions are not expanded here.
func (c *Config) Env(name string) (*EnvConfig, error) {
	var sections []*ini.Section

	if base, err := c.file.GetSection(BaseEnvSection); err == nil {
		sections = append(sections, base)
	}

	if name != DefaultEnvName {
		sec, err := c.file.GetSection(EnvSectionPrefix + name)
		if err != nil {
			return nil, fmt.Errorf("environment %q is not declared in %s", name, filepath.Base(c.Path))
		}
		sections = append(sections, sec)
	} else if len(sections) == 0 {
		return nil, fmt.Errorf("environment %q is not declared in %s", name, filepath.Base(c.Path))
	}

	env := &EnvConfig{
		Name:           name,
		EnvDir:         "{workdir}/{envname}",
		InstallCommand: "python -m pip install {opts} {packages}",
	}
	for _, sec := range sections {
		env.apply(sec)
	}
	return env, nil
}

// Lookup returns the raw value of key in the named section, for
// {[section]key} substitutions.
func (c *Config) Lookup(section, key string) (string, bool) {
	sec, err := c.file.GetSection(section)
	if err != nil {
		return "", false
	}
	if !sec.HasKey(key) {
		return "", false
	}
	return sec.Key(key).String(), true
}

// EnvConfig is the effective, unexpanded configuration of one environment.
type EnvConfig struct {
	Name        string
	Description string

	// BasePython names the interpreter executable, e.g. "python3.11".
	BasePython string
	// Deps are packages installed into the environment before commands run.
	Deps []string
	// Commands are the ordered command lines executed in the environment.
	Commands []string
	// ChangeDir is the working directory for commands, relative to rootdir.
	ChangeDir string
	// PassEnv lists environment variable name patterns passed through to
	// commands ("*" wildcards allowed).
	PassEnv []string
	// SetEnv holds additional NAME=value pairs for the command environment.
	SetEnv map[string]string
	// EnvFiles are env-format files merged into the command environment.
	EnvFiles []string
	// WhitelistExternals lists command names allowed to resolve outside the
	// environment's bin directory.
	WhitelistExternals []string
	// SkipInstall disables installing the project into this environment.
	SkipInstall bool
	// InstallCommand is the command used to install Deps; {packages} expands
	// to the dependency list and {opts} is reserved for installer options.
	InstallCommand string
	// EnvDir is where the environment lives (raw, usually under workdir).
	EnvDir string
}

func (e *EnvConfig) apply(sec *ini.Section) {
	if sec.HasKey("description") {
		e.Description = strings.TrimSpace(sec.Key("description").String())
	}
	if sec.HasKey("basepython") {
		e.BasePython = strings.TrimSpace(sec.Key("basepython").String())
	}
	if sec.HasKey("deps") {
		e.Deps = splitLines(sec.Key("deps").String())
	}
	if sec.HasKey("commands") {
		e.Commands = splitCommands(sec.Key("commands").String())
	}
	if sec.HasKey("changedir") {
		e.ChangeDir = strings.TrimSpace(sec.Key("changedir").String())
	}
	if sec.HasKey("passenv") {
		e.PassEnv = splitList(sec.Key("passenv").String())
	}
	if sec.HasKey("setenv") {
		e.SetEnv = parsePairs(sec.Key("setenv").String())
	}
	if sec.HasKey("envfile") {
		e.EnvFiles = splitList(sec.Key("envfile").String())
	}
	for _, key := range []string{"whitelist_externals", "allowlist_externals"} {
		if sec.HasKey(key) {
			e.WhitelistExternals = splitLines(sec.Key(key).String())
		}
	}
	if sec.HasKey("skip_install") {
		e.SkipInstall = parseBool(sec.Key("skip_install").String())
	}
	if sec.HasKey("install_command") {
		e.InstallCommand = strings.TrimSpace(sec.Key("install_command").String())
	}
	if sec.HasKey("envdir") {
		e.EnvDir = strings.TrimSpace(sec.Key("envdir").String())
	}
}

// splitLines returns the non-empty trimmed lines of a multi-line value.
func splitLines(value string) []string {
	var out []string
	for _, line := range strings.Split(value, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// splitCommands returns command lines, joining trailing-backslash
// continuations into a single line.
func splitCommands(value string) []string {
	var out []string
	cont := ""
	for _, line := range strings.Split(value, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasSuffix(line, "\\") {
			cont += strings.TrimSuffix(line, "\\") + " "
			continue
		}
		out = append(out, cont+line)
		cont = ""
	}
	if cont != "" {
		out = append(out, strings.TrimSpace(cont))
	}
	return out
}

// splitList splits on commas, spaces and newlines.
func splitList(value string) []string {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	var out []string
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// parsePairs parses NAME=value lines into a map.
func parsePairs(value string) map[string]string {
	pairs := make(map[string]string)
	for _, line := range splitLines(value) {
		name, val, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		pairs[name] = strings.TrimSpace(val)
	}
	return pairs
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}
