package subst

import (
	"strings"
	"testing"
)

func newTestResolver() *Resolver {
	r := NewResolver()
	r.Set("rootdir", "/proj")
	r.Set("toxinidir", "/proj")
	r.Set("envname", "default")
	r.Set("envdir", "/proj/.isoenv/default")
	r.Set("envbindir", "{envdir}/bin")
	r.Set("envpython", "{envbindir}/python")
	r.SetLookupEnv(func(name string) (string, bool) {
		env := map[string]string{"CI": "true"}
		v, ok := env[name]
		return v, ok
	})
	return r
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		posargs []string
		want    string
		wantErr string
	}{
		{
			name:  "no substitution",
			input: "coverage run -m pytest",
			want:  "coverage run -m pytest",
		},
		{
			name:  "simple variable",
			input: "{toxinidir}/docs",
			want:  "/proj/docs",
		},
		{
			name:  "nested variable",
			input: "{envpython}",
			want:  "/proj/.isoenv/default/bin/python",
		},
		{
			name:  "brace escapes",
			input: "{{literal}}",
			want:  "{literal}",
		},
		{
			name:  "posargs empty",
			input: "pytest {posargs}",
			want:  "pytest ",
		},
		{
			name:    "posargs set",
			input:   "pytest {posargs}",
			posargs: []string{"-x", "tests/test_info.py"},
			want:    "pytest -x tests/test_info.py",
		},
		{
			name:    "posargs with spaces are quoted",
			input:   "pytest {posargs}",
			posargs: []string{"-k", "not slow"},
			want:    `pytest -k "not slow"`,
		},
		{
			name:  "posargs default",
			input: "pytest {posargs:tests}",
			want:  "pytest tests",
		},
		{
			name:  "posargs default with nested substitution",
			input: "pytest {posargs:{rootdir}/tests}",
			want:  "pytest /proj/tests",
		},
		{
			name:    "posargs set overrides nested default",
			input:   "pytest {posargs:{rootdir}/tests}",
			posargs: []string{"-x"},
			want:    "pytest -x",
		},
		{
			name:  "env variable set",
			input: "{env:CI}",
			want:  "true",
		},
		{
			name:  "env variable default",
			input: "{env:MISSING:fallback}",
			want:  "fallback",
		},
		{
			name:  "env variable empty default",
			input: "{env:MISSING:}",
			want:  "",
		},
		{
			name:  "env variable default with nested substitution",
			input: "{env:WORKDIR:{rootdir}/.isoenv}",
			want:  "/proj/.isoenv",
		},
		{
			name:  "env variable set ignores nested default",
			input: "{env:CI:{rootdir}/x}",
			want:  "true",
		},
		{
			name:    "env variable missing",
			input:   "{env:MISSING}",
			wantErr: "not set",
		},
		{
			name:    "unknown variable",
			input:   "{nope}",
			wantErr: "unknown substitution variable",
		},
		{
			name:    "unterminated",
			input:   "{envname",
			wantErr: "unterminated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver()
			r.SetPosargs(tt.posargs)
			got, err := r.Expand(tt.input)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("Expand(%q) expected error, got %q", tt.input, got)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Expand(%q) error = %v, want substring %q", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expand(%q) returned error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Expand(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpandSectionReference(t *testing.T) {
	r := newTestResolver()
	r.SetLookup(func(section, key string) (string, bool) {
		if section == "testenv" && key == "deps" {
			return "pytest\ncoverage", true
		}
		return "", false
	})

	got, err := r.Expand("{[testenv]deps}")
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if got != "pytest\ncoverage" {
		t.Errorf("Expand = %q, want %q", got, "pytest\ncoverage")
	}

	if _, err := r.Expand("{[testenv]missing}"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestExpandPassthrough(t *testing.T) {
	r := newTestResolver()
	r.SetPassthrough("packages")
	r.SetPassthrough("opts")

	got, err := r.Expand("{envpython} -m pip install {opts} {packages}")
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	want := "/proj/.isoenv/default/bin/python -m pip install {opts} {packages}"
	if got != want {
		t.Errorf("Expand = %q, want %q", got, want)
	}
}

func TestExpandCircularReference(t *testing.T) {
	r := NewResolver()
	r.Set("a", "{b}")
	r.Set("b", "{a}")

	if _, err := r.Expand("{a}"); err == nil {
		t.Error("expected error for circular reference")
	}
}

func TestExpandAll(t *testing.T) {
	r := newTestResolver()
	got, err := r.ExpandAll([]string{"{envname}", "{rootdir}/docs"})
	if err != nil {
		t.Fatalf("ExpandAll returned error: %v", err)
	}
	if len(got) != 2 || got[0] != "default" || got[1] != "/proj/docs" {
		t.Errorf("ExpandAll = %v", got)
	}

	if _, err := r.ExpandAll([]string{"ok", "{nope}"}); err == nil {
		t.Error("expected error from ExpandAll")
	}
}
