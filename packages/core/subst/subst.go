package subst

import (
	"fmt"
	"os"
	"strings"
)

// maxDepth bounds recursive expansion of cross-references.
const maxDepth = 10

// LookupFunc resolves a {[section]key} reference.
type LookupFunc func(section, key string) (string, bool)

// Resolver expands {var} substitutions in configuration values.
type Resolver struct {
	vars        map[string]string
	passthrough map[string]bool
	posargs     []string
	lookup      LookupFunc
	lookupEnv   func(string) (string, bool)
}

func NewResolver() *Resolver {
	return &Resolver{
		vars:        make(map[string]string),
		passthrough: make(map[string]bool),
		lookupEnv:   os.LookupEnv,
	}
}

// Set defines a variable. Aliases can be registered by calling Set twice.
func (r *Resolver) Set(name, value string) *Resolver {
	r.vars[name] = value
	return r
}

// SetPassthrough declares a name whose substitution is left intact, for
// placeholders expanded by a later stage (e.g. {packages} in
// install_command).
func (r *Resolver) SetPassthrough(name string) *Resolver {
	r.passthrough[name] = true
	return r
}

// SetPosargs sets the arguments substituted for {posargs}.
func (r *Resolver) SetPosargs(args []string) *Resolver {
	r.posargs = args
	return r
}

// SetLookup installs the cross-section reference resolver.
func (r *Resolver) SetLookup(fn LookupFunc) *Resolver {
	r.lookup = fn
	return r
}

// SetLookupEnv overrides process environment lookup, for tests.
func (r *Resolver) SetLookupEnv(fn func(string) (string, bool)) *Resolver {
	r.lookupEnv = fn
	return r
}

// Expand substitutes every {var} occurrence in s.
func (r *Resolver) Expand(s string) (string, error) {
	return r.expand(s, 0)
}

// ExpandAll expands each value of a slice.
func (r *Resolver) ExpandAll(values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, v := range values {
		e, err := r.Expand(v)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *Resolver) expand(s string, depth int) (string, error) {
	if depth > maxDepth {
		return "", fmt.Errorf("substitution nested too deeply (circular reference?)")
	}

	var b strings.Builder
	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], "{{"):
			b.WriteByte('{')
			i += 2
		case strings.HasPrefix(s[i:], "}}"):
			b.WriteByte('}')
			i += 2
		case s[i] == '{':
			end := closingBrace(s, i)
			if end == -1 {
				return "", fmt.Errorf("unterminated substitution in %q", s)
			}
			expr := s[i+1 : end]
			if r.passthrough[expr] {
				b.WriteString(s[i : end+1])
				i = end + 1
				continue
			}
			value, err := r.eval(expr, depth)
			if err != nil {
				return "", err
			}
			b.WriteString(value)
			i = end + 1
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String(), nil
}

// closingBrace returns the index of the } matching the { at start, counting
// nested pairs so that defaults may themselves contain substitutions, and
// skipping {{ and }} escapes. Returns -1 when unbalanced.
func closingBrace(s string, start int) int {
	depth := 0
	for i := start; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], "{{") || strings.HasPrefix(s[i:], "}}"):
			i += 2
		case s[i] == '{':
			depth++
			i++
		case s[i] == '}':
			depth--
			if depth == 0 {
				return i
			}
			i++
		default:
			i++
		}
	}
	return -1
}

func (r *Resolver) eval(expr string, depth int) (string, error) {
	switch {
	case expr == "posargs" || strings.HasPrefix(expr, "posargs:"):
		if len(r.posargs) > 0 {
			return joinArgs(r.posargs), nil
		}
		if _, def, found := strings.Cut(expr, ":"); found {
			return r.expand(def, depth+1)
		}
		return "", nil

	case strings.HasPrefix(expr, "env:"):
		name, def, hasDefault := strings.Cut(expr[len("env:"):], ":")
		if value, ok := r.lookupEnv(name); ok {
			return value, nil
		}
		if hasDefault {
			return r.expand(def, depth+1)
		}
		return "", fmt.Errorf("environment variable %q is not set and has no default", name)

	case strings.HasPrefix(expr, "["):
		end := strings.IndexByte(expr, ']')
		if end == -1 {
			return "", fmt.Errorf("malformed section reference {%s}", expr)
		}
		section, key := expr[1:end], expr[end+1:]
		if r.lookup == nil {
			return "", fmt.Errorf("section reference {%s} is not supported here", expr)
		}
		value, ok := r.lookup(section, key)
		if !ok {
			return "", fmt.Errorf("no key %q in section [%s]", key, section)
		}
		return r.expand(value, depth+1)

	default:
		if value, ok := r.vars[expr]; ok {
			return r.expand(value, depth+1)
		}
		return "", fmt.Errorf("unknown substitution variable %q", expr)
	}
}

// joinArgs joins posargs into a single string, quoting arguments that would
// otherwise split when the command line is tokenized.
func joinArgs(args []string) string {
	quoted := make([]string, 0, len(args))
	for _, a := range args {
		quoted = append(quoted, quoteArg(a))
	}
	return strings.Join(quoted, " ")
}

func quoteArg(a string) string {
	if a != "" && !strings.ContainsAny(a, " \t\"'\\") {
		return a
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(a); i++ {
		if a[i] == '"' || a[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(a[i])
	}
	b.WriteByte('"')
	return b.String()
}
