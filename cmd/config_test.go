package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brogergvhs/wattdl/internal/config"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return out.String(), err
}

func TestConfigCommands(t *testing.T) {
	t.Setenv("APPDATA", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	out, err := execute(t, "n\n", "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted.")
	assert.NoFileExists(t, config.PathForLabel(config.DefaultLabel))

	out, err = execute(t, "yes\n", "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "This config is now active")
	assert.FileExists(t, config.PathForLabel(config.DefaultLabel))

	out, err = execute(t, "", "config", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Default")
	assert.Contains(t, out, "yes")

	out, err = execute(t, "", "config", "switch", "Default")
	require.NoError(t, err)
	assert.Contains(t, out, "Switched to: Default")

	_, err = execute(t, "", "config", "switch", "nope")
	assert.Error(t, err)

	out, err = execute(t, "", "config")
	require.NoError(t, err)
	assert.Contains(t, out, config.PathForLabel(config.DefaultLabel))
	assert.Contains(t, out, " -chapter_workers: 5")

	out, err = execute(t, "", "config", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Reset active config")

	_, err = execute(t, "", "config", "remove", "Default", "--force")
	assert.ErrorContains(t, err, "cannot remove the Default config")
}

func TestConfirm(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, confirm(strings.NewReader("Y\n"), &out, "Go?"))
	assert.False(t, confirm(strings.NewReader("\n"), &out, "Go?"))
	assert.Contains(t, out.String(), "Go? [y/N]: ")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "wattdl version: dev\n", out)
}
