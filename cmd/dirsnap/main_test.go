package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigPrecedence_FlagOverFileOverDefault(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := "depth: 5\nworkers: 3\nignore:\n  - \"*.tmp\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, ".dirsnap.yaml"), []byte(cfg), 0o644))

	viper.Reset()
	cmd := newRootCmd()
	initConfig()

	// Config file overrides the flag defaults.
	opts, log, err := scanOptions(cmd, "/data")
	require.NoError(t, err)
	defer log.Sync()

	assert.Equal(t, 5, opts.MaxDepth)
	assert.Equal(t, 3, opts.Workers)
	assert.Equal(t, []string{"*.tmp"}, opts.Ignore)
	assert.Equal(t, "/data", opts.Root)

	// An explicitly set flag overrides the config file, but only for
	// that key; untouched keys keep the file's values.
	require.NoError(t, cmd.PersistentFlags().Set("depth", "9"))

	opts, _, err = scanOptions(cmd, "/data")
	require.NoError(t, err)
	assert.Equal(t, 9, opts.MaxDepth)
	assert.Equal(t, 3, opts.Workers)
	assert.Equal(t, []string{"*.tmp"}, opts.Ignore)
}

func TestConfigPrecedence_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	viper.Reset()
	cmd := newRootCmd()
	initConfig()

	opts, _, err := scanOptions(cmd, "/data")
	require.NoError(t, err)
	assert.Equal(t, 1, opts.MaxDepth)
	assert.Equal(t, 0, opts.Workers)
	assert.Empty(t, opts.Ignore)
}
