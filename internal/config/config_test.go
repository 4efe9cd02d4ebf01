package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airgate/internal/models"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AIRTABLE_TOKEN", "pat_test")
	t.Setenv("AIRGATE_API_KEY", "agw_test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://api.airtable.com", cfg.Upstream.BaseURL)
	assert.Equal(t, 100, cfg.RateLimit.GlobalLimit)
	assert.Equal(t, time.Minute, cfg.RateLimit.GlobalWindow)
	assert.Equal(t, 5, cfg.RateLimit.BaseLimit)
	assert.Equal(t, time.Second, cfg.RateLimit.BaseWindow)
	assert.Equal(t, 4*time.Hour, cfg.Cache.TTL.Bases)
	assert.Equal(t, time.Hour, cfg.Cache.TTL.Schema)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL.Records)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL.Record)
	assert.Equal(t, models.BackendMemory, cfg.Cache.Backend)
}

func TestLoad_MissingToken(t *testing.T) {
	t.Setenv("AIRTABLE_TOKEN", "")
	t.Setenv("AIRGATE_API_KEY", "agw_test")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")
}

func TestLoad_FromFile(t *testing.T) {
	t.Setenv("AIRTABLE_TOKEN", "pat_test")
	t.Setenv("AIRGATE_API_KEY", "agw_test")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9999
rate_limit:
  enabled: true
  backend: memory
  global_limit: 50
  global_window: 30s
  base_limit: 2
  base_window: 1s
cache:
  enabled: true
  backend: memory
  ttl:
    bases: 1h
    schema: 30m
    records: 1m
    record: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 50, cfg.RateLimit.GlobalLimit)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.GlobalWindow)
	assert.Equal(t, time.Hour, cfg.Cache.TTL.Bases)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL.Record)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("AIRTABLE_TOKEN", "pat_env")
	t.Setenv("AIRGATE_API_KEY", "agw_env")
	t.Setenv("AIRGATE_PORT", "7070")
	t.Setenv("AIRGATE_GLOBAL_LIMIT", "200")
	t.Setenv("AIRGATE_BASE_WINDOW", "2s")
	t.Setenv("AIRGATE_CACHE_TTL_RECORDS", "90s")
	t.Setenv("AIRGATE_CACHE_BACKEND", "redis")
	t.Setenv("AIRGATE_REDIS_ADDR", "redis:6379")
	t.Setenv("AIRGATE_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "pat_env", cfg.Upstream.Token)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 200, cfg.RateLimit.GlobalLimit)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.BaseWindow)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL.Records)
	assert.Equal(t, models.BackendRedis, cfg.Cache.Backend)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_RedisBackendRequiresAddr(t *testing.T) {
	t.Setenv("AIRTABLE_TOKEN", "pat_test")
	t.Setenv("AIRGATE_API_KEY", "agw_test")
	t.Setenv("AIRGATE_CACHE_BACKEND", "redis")
	t.Setenv("AIRGATE_REDIS_ADDR", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("redis:\n  addr: \"\"\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestLoad_InvalidBackend(t *testing.T) {
	t.Setenv("AIRTABLE_TOKEN", "pat_test")
	t.Setenv("AIRGATE_API_KEY", "agw_test")
	t.Setenv("AIRGATE_RATE_LIMIT_BACKEND", "etcd")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend")
}

func TestLoad_AuthRequiresKey(t *testing.T) {
	t.Setenv("AIRTABLE_TOKEN", "pat_test")
	t.Setenv("AIRGATE_API_KEY", "")
	t.Setenv("AIRGATE_ENABLE_AUTH", "true")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestSaveExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example", "config.yaml")
	require.NoError(t, SaveExample(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pat_your-airtable-token-here")
	assert.Contains(t, string(data), "base_limit: 5")
}
