package config

import (
	"fmt"
	"strconv"
	"strings"
)

// CheckMinVersion verifies the running tool version against the file's
// minversion key. Dev builds ("dev") always pass.
func (c *Config) CheckMinVersion(current string) error {
	if c.MinVersion == "" || current == "dev" {
		return nil
	}
	if compareVersions(current, c.MinVersion) < 0 {
		return fmt.Errorf("config requires isoenv >= %s, this is %s", c.MinVersion, current)
	}
	return nil
}

// compareVersions compares dotted numeric versions, ignoring any leading "v"
// and non-numeric suffixes.
func compareVersions(a, b string) int {
	as := versionParts(a)
	bs := versionParts(b)
	for i := 0; i < len(as) || i < len(bs); i++ {
		av, bv := 0, 0
		if i < len(as) {
			av = as[i]
		}
		if i < len(bs) {
			bv = bs[i]
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

func versionParts(v string) []int {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	var parts []int
	for _, p := range strings.Split(v, ".") {
		digits := p
		for i, r := range p {
			if r < '0' || r > '9' {
				digits = p[:i]
				break
			}
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			break
		}
		parts = append(parts, n)
	}
	return parts
}
