package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HIVE_DB_PATH", "hive.db")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "hive.db", cfg.DatabasePath)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, int64(200*1024*1024), cfg.MaxUploadBytes)
	assert.Equal(t, 3*time.Second, cfg.BusyTimeout)
	assert.True(t, cfg.PreviewEnabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HIVE_PORT", "9090")
	t.Setenv("HIVE_BUSY_TIMEOUT", "500ms")
	t.Setenv("HIVE_PREVIEW_ENABLED", "false")
	t.Setenv("HIVE_MAX_UPLOAD_MB", "5")
	t.Setenv("ADMIN_RESET_PASSWORD", "open sesame")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.BusyTimeout)
	assert.False(t, cfg.PreviewEnabled)
	assert.Equal(t, int64(5*1024*1024), cfg.MaxUploadBytes)
	assert.Equal(t, "open sesame", cfg.AdminSecret)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("HIVE_PORT", "9090")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("port", "8080", "")
	flags.String("db", "hive.db", "")
	require.NoError(t, flags.Parse([]string{"--port=7070"}))

	cfg, err := Load(flags)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "hive.db", cfg.DatabasePath)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HIVE_PAGE_SIZE", "0")

	_, err := Load(nil)
	assert.Error(t, err)
}
