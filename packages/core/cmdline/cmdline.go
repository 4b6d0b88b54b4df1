// Package cmdline tokenizes command lines from configuration values.
package cmdline

import (
	"errors"
	"strings"
	"unicode"
)

// ErrEmpty is returned when a line contains no arguments.
var ErrEmpty = errors.New("empty command")

// Split tokenizes a command line into argv. Double and single quotes group
// words; backslash escapes the next character outside single quotes.
func Split(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		inWord  bool
		quote   rune
	)

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\\' && i+1 < len(runes):
			i++
			current.WriteRune(runes[i])
			inWord = true
		case quote == '"':
			if r == '"' {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case unicode.IsSpace(r):
			if inWord {
				args = append(args, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}

	if quote != 0 {
		return nil, errors.New("unterminated quote in command")
	}
	if inWord {
		args = append(args, current.String())
	}
	if len(args) == 0 {
		return nil, ErrEmpty
	}
	return args, nil
}
