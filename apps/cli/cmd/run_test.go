package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withProject(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "isoenv.ini")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	prevConfig, prevVersion := configFlag, version
	configFlag = path
	t.Cleanup(func() {
		configFlag = prevConfig
		version = prevVersion
	})
}

func TestLoadCheckedProject(t *testing.T) {
	withProject(t, `[isoenv]
minversion = 2.0

[testenv]
commands = pytest
`)

	version = "1.0.0"
	_, err := loadCheckedProject()
	assert.ErrorContains(t, err, "requires isoenv >= 2.0")

	version = "2.1.0"
	project, err := loadCheckedProject()
	require.NoError(t, err)
	assert.Equal(t, "2.0", project.MinVersion)
}

func TestSplitEnvSelection(t *testing.T) {
	assert.Nil(t, splitEnvSelection(""))
	assert.Equal(t, []string{"default"}, splitEnvSelection("default"))
	assert.Equal(t, []string{"default", "docs"}, splitEnvSelection("default, docs,"))
}
