package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "impactlens.log")
	require.NoError(t, Setup(Options{Level: "debug", File: path}))
	t.Cleanup(Discard)

	Debugf("submitting %s", "PROJ-1")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "submitting PROJ-1"), "log file content: %s", data)
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	err := Setup(Options{Level: "chatty"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestLevelFiltersDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quiet.log")
	require.NoError(t, Setup(Options{Level: "warn", File: path}))
	t.Cleanup(Discard)

	Infof("hidden")
	Warnf("shown")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}
