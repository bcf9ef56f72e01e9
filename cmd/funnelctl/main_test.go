package main

import (
	"bytes"
	"strings"
	"testing"

	"funnel/internal/platform/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashKeyCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"hash-key", "cron-key"})

	require.NoError(t, rootCmd.Execute())

	hash := strings.TrimSpace(out.String())
	assert.NoError(t, auth.CheckInvokerKey(hash, "cron-key"))
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"token", "--config", "", "--company", "biz_1", "--user", "user_1"})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, 2, strings.Count(strings.TrimSpace(out.String()), "."))
}
