package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/plannr/internal/config"
)

func TestApplyFlags_OnlyExplicitFlags(t *testing.T) {
	cmd := newServeCmd()
	require.NoError(t, cmd.Flags().Parse([]string{
		"--http-addr", ":9999",
		"--google-client-id", "flag-client",
		"--metrics-enabled=false",
		"--debug",
	}))

	cfg := config.Default()
	cfg.Metrics.Addr = ":7777"
	cfg.AppCallbackURL = "myapp://done"

	require.NoError(t, applyFlags(cmd, cfg))

	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, "flag-client", cfg.Google.ClientID)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "debug", cfg.LogLevel)

	// Defaults of flags that were not given must not clobber loaded values.
	assert.Equal(t, ":7777", cfg.Metrics.Addr)
	assert.Equal(t, "myapp://done", cfg.AppCallbackURL)
}

func TestLoadConfig_EnvBeatsFlagDefaults(t *testing.T) {
	t.Setenv("PLANNR_HTTP_ADDR", ":7000")
	t.Setenv("GOOGLE_CLIENT_ID", "env-client")
	t.Setenv("PLANNR_CONFIG", "")

	cmd := newServeCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--google-client-id", "flag-client"}))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.HTTPAddr)
	assert.Equal(t, "flag-client", cfg.Google.ClientID)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("PLANNR_LOG_FORMAT", "xml")

	_, err := loadConfig(newServeCmd())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestServeCmd_HelpNotesInertExtraction(t *testing.T) {
	long := newServeCmd().Long
	assert.Contains(t, long, "POST /syllabus")
	assert.Contains(t, long, "501")
}
