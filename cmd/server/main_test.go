package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandConfigFlag(t *testing.T) {
	flag := rootCmd.Flags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "configs/config.yaml", flag.DefValue)
}

func TestRootCommandMissingConfig(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	rootCmd.SetArgs([]string{"--config", missing})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRootCommandUnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "oracle")
	rootCmd.SetArgs([]string{"--config", ""})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to database")
}
