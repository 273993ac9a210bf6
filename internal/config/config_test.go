package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "risk-check-response", cfg.Stream.Decisions)
	assert.Equal(t, 8080, cfg.HTTP.Port)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
broker:
  timeout: 30s
redis:
  addr: cache:6380
  db: 2
stream:
  events: fills
http:
  port: 9090
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 30*time.Second, cfg.Broker.Timeout.Std())
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "fills", cfg.Stream.Events)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	// Unset fields keep defaults.
	assert.Equal(t, "risk-check-response", cfg.Stream.Decisions)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RISK_MANAGER__LOG__LEVEL", "trace")
	t.Setenv("RISK_MANAGER__REDIS__ADDR", "redis.internal:6379")
	t.Setenv("RISK_MANAGER__HTTP__PORT", "7000")
	t.Setenv("RISK_MANAGER__BROKER__SECRET_KEY", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "trace", cfg.Log.Level)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, 7000, cfg.HTTP.Port)
	assert.Equal(t, "s3cret", cfg.Broker.SecretKey)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad log level", func(t *testing.T) {
		t.Setenv("RISK_MANAGER__LOG__LEVEL", "verbose")
		_, err := Load("")
		assert.ErrorContains(t, err, "invalid log level")
	})

	t.Run("bad port", func(t *testing.T) {
		t.Setenv("RISK_MANAGER__HTTP__PORT", "99999")
		_, err := Load("")
		assert.ErrorContains(t, err, "invalid http port")
	})
}
