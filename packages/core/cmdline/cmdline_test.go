package cmdline

import (
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{
			name:  "plain words",
			input: "coverage run -m pytest",
			want:  []string{"coverage", "run", "-m", "pytest"},
		},
		{
			name:  "double quotes group words",
			input: `sphinx-build -b html "docs source" build`,
			want:  []string{"sphinx-build", "-b", "html", "docs source", "build"},
		},
		{
			name:  "single quotes group words",
			input: `sh -c 'echo hello world'`,
			want:  []string{"sh", "-c", "echo hello world"},
		},
		{
			name:  "escaped space",
			input: `ls my\ file`,
			want:  []string{"ls", "my file"},
		},
		{
			name:  "escaped quote inside double quotes",
			input: `echo "say \"hi\""`,
			want:  []string{"echo", `say "hi"`},
		},
		{
			name:  "empty quoted argument",
			input: `cmd ""`,
			want:  []string{"cmd", ""},
		},
		{
			name:  "extra whitespace",
			input: "  flake8   pdpbox  ",
			want:  []string{"flake8", "pdpbox"},
		},
		{
			name:    "empty line",
			input:   "   ",
			wantErr: true,
		},
		{
			name:    "unterminated quote",
			input:   `echo "oops`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Split(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Split(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Split(%q) returned error: %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
