package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Upstream.Token = "pat_test"
	cfg.Security.APIKey = "agw_test"
	return cfg
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, 100, cfg.RateLimit.GlobalLimit)
	assert.Equal(t, time.Minute, cfg.RateLimit.GlobalWindow)
	assert.Equal(t, 5, cfg.RateLimit.BaseLimit)
	assert.Equal(t, time.Second, cfg.RateLimit.BaseWindow)
	assert.Equal(t, BackendMemory, cfg.RateLimit.Backend)
	assert.Equal(t, BackendMemory, cfg.Cache.Backend)
	assert.Equal(t, "https://api.airtable.com", cfg.Upstream.BaseURL)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_MissingToken(t *testing.T) {
	cfg := validConfig()
	cfg.Upstream.Token = ""
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_BadPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_RateLimit(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.GlobalLimit = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.RateLimit.BaseWindow = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.RateLimit.Backend = "etcd"
	assert.Error(t, cfg.Validate())

	// A disabled limiter skips its own validation
	cfg = validConfig()
	cfg.RateLimit.Enabled = false
	cfg.RateLimit.GlobalLimit = 0
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_Cache(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.TTL.Records = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Cache.Backend = "memcached"
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_RedisBackendNeedsAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Backend = BackendRedis
	cfg.Redis.Addr = ""
	assert.Error(t, cfg.Validate())

	cfg.Redis.Addr = "localhost:6379"
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_TLS(t *testing.T) {
	cfg := validConfig()
	cfg.Server.TLSEnabled = true
	assert.Error(t, cfg.Validate())

	cfg.Server.TLSCertFile = "/etc/tls/cert.pem"
	cfg.Server.TLSKeyFile = "/etc/tls/key.pem"
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_Logging(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Logging.Output = "file"
	assert.Error(t, cfg.Validate(), "file output requires a path")

	cfg.Logging.FilePath = "/var/log/airgate.log"
	assert.NoError(t, cfg.Validate())
}
