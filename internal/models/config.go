// Package models - Service configuration and operational settings.
// This file defines the configuration structures for all gateway components:
// the HTTP server, the upstream Airtable connection, rate limiting ceilings,
// cache TTLs and backends, logging, and observability.
package models

import (
	"errors"
	"fmt"
	"time"
)

// Backend type constants for the cache store and rate limiter.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the root configuration structure containing all service settings.
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`               // HTTP server configuration
	Upstream      UpstreamConfig      `yaml:"upstream" json:"upstream"`           // Airtable API connection
	RateLimit     RateLimitConfig     `yaml:"rate_limit" json:"rate_limit"`       // Upstream and client ceilings
	Cache         CacheConfig         `yaml:"cache" json:"cache"`                 // Response caching
	Redis         RedisConfig         `yaml:"redis" json:"redis"`                 // Shared Redis connection (cache + limiter)
	Security      SecurityConfig      `yaml:"security" json:"security"`           // API key authentication
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`             // Logging and output configuration
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`             // Monitoring and metrics
	Observability ObservabilityConfig `yaml:"observability" json:"observability"` // Tracing
}

type ServerConfig struct {
	Port         int           `yaml:"port" json:"port"`
	Host         string        `yaml:"host" json:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled" json:"tls_enabled"`
	TLSCertFile  string        `yaml:"tls_cert_file" json:"tls_cert_file"`
	TLSKeyFile   string        `yaml:"tls_key_file" json:"tls_key_file"`
	CORS         CORSConfig    `yaml:"cors" json:"cors"`
}

type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" json:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" json:"allowed_headers"`
	MaxAge         int      `yaml:"max_age" json:"max_age"`
}

// UpstreamConfig describes the Airtable API connection. Token is the
// personal access token sent as a Bearer header on every upstream call.
type UpstreamConfig struct {
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Token   string        `yaml:"token" json:"-"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// RateLimitConfig holds the two upstream ceilings (both must grant before a
// call leaves the process) and the inbound per-client ceiling. The upstream
// defaults mirror Airtable's published limits: 5 requests per second per base
// and 100 requests per minute globally.
type RateLimitConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Backend string `yaml:"backend" json:"backend"` // memory or redis

	GlobalLimit  int           `yaml:"global_limit" json:"global_limit"`
	GlobalWindow time.Duration `yaml:"global_window" json:"global_window"`
	BaseLimit    int           `yaml:"base_limit" json:"base_limit"`
	BaseWindow   time.Duration `yaml:"base_window" json:"base_window"`

	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`

	Client ClientRateLimitConfig `yaml:"client" json:"client"`
}

// ClientRateLimitConfig limits inbound callers of the gateway itself,
// keyed by client IP. This is separate from the upstream ceilings.
type ClientRateLimitConfig struct {
	Enabled           bool `yaml:"enabled" json:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int  `yaml:"burst_size" json:"burst_size"`
}

type CacheConfig struct {
	Enabled bool         `yaml:"enabled" json:"enabled"`
	Backend string       `yaml:"backend" json:"backend"` // memory or redis
	TTL     TTLConfig    `yaml:"ttl" json:"ttl"`
	Memory  MemoryConfig `yaml:"memory" json:"memory"`
}

// TTLConfig assigns a time-to-live per payload class. Base lists and schemas
// change rarely and get long TTLs; record lists and single records change
// frequently and get short ones.
type TTLConfig struct {
	Bases   time.Duration `yaml:"bases" json:"bases"`
	Schema  time.Duration `yaml:"schema" json:"schema"`
	Records time.Duration `yaml:"records" json:"records"`
	Record  time.Duration `yaml:"record" json:"record"`
}

type MemoryConfig struct {
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"-"`
	DB       int    `yaml:"db" json:"db"`
	PoolSize int    `yaml:"pool_size" json:"pool_size"`
}

type SecurityConfig struct {
	EnableAuth bool   `yaml:"enable_auth" json:"enable_auth"`
	APIKey     string `yaml:"api_key" json:"-"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	Output     string `yaml:"output" json:"output"`
	FilePath   string `yaml:"file_path" json:"file_path"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Port    int    `yaml:"port" json:"port"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"` // stdout or otlp
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate"`
}

// NewDefaultConfig creates a configuration with production-ready defaults.
// The upstream ceilings default to Airtable's published limits, and the TTL
// classes mirror how quickly each payload class goes stale in practice.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			TLSEnabled:   false,
			CORS: CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"*"},
				MaxAge:         86400,
			},
		},
		Upstream: UpstreamConfig{
			BaseURL: "https://api.airtable.com",
			Timeout: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:         true,
			Backend:         BackendMemory,
			GlobalLimit:     100,
			GlobalWindow:    time.Minute,
			BaseLimit:       5,
			BaseWindow:      time.Second,
			CleanupInterval: 5 * time.Minute,
			Client: ClientRateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 300,
				BurstSize:         30,
			},
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: BackendMemory,
			TTL: TTLConfig{
				Bases:   4 * time.Hour,
				Schema:  time.Hour,
				Records: 5 * time.Minute,
				Record:  2 * time.Minute,
			},
			Memory: MemoryConfig{
				CleanupInterval: 10 * time.Minute,
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Security: SecurityConfig{
			EnableAuth: true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9090,
		},
		Observability: ObservabilityConfig{
			ServiceName: "airgate",
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "stdout",
				SampleRate: 1.0,
			},
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	if err := c.Upstream.Validate(); err != nil {
		return fmt.Errorf("invalid upstream config: %w", err)
	}

	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("invalid rate limit config: %w", err)
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("invalid cache config: %w", err)
	}

	if err := c.Security.Validate(); err != nil {
		return fmt.Errorf("invalid security config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}

	if c.usesRedis() && c.Redis.Addr == "" {
		return errors.New("redis address is required when a redis backend is selected")
	}

	return nil
}

// usesRedis reports whether any component is configured with the redis backend.
func (c *Config) usesRedis() bool {
	return (c.Cache.Enabled && c.Cache.Backend == BackendRedis) ||
		(c.RateLimit.Enabled && c.RateLimit.Backend == BackendRedis)
}

func (sc *ServerConfig) Validate() error {
	if sc.Port <= 0 || sc.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	if sc.Host == "" {
		return errors.New("host cannot be empty")
	}

	if sc.ReadTimeout < 0 {
		return errors.New("read timeout cannot be negative")
	}

	if sc.WriteTimeout < 0 {
		return errors.New("write timeout cannot be negative")
	}

	if sc.IdleTimeout < 0 {
		return errors.New("idle timeout cannot be negative")
	}

	if sc.TLSEnabled {
		if sc.TLSCertFile == "" {
			return errors.New("TLS cert file is required when TLS is enabled")
		}
		if sc.TLSKeyFile == "" {
			return errors.New("TLS key file is required when TLS is enabled")
		}
	}

	return nil
}

func (uc *UpstreamConfig) Validate() error {
	if uc.BaseURL == "" {
		return errors.New("upstream base URL cannot be empty")
	}

	if uc.Token == "" {
		return errors.New("upstream token is required")
	}

	if uc.Timeout <= 0 {
		return errors.New("upstream timeout must be positive")
	}

	return nil
}

func (rl *RateLimitConfig) Validate() error {
	if !rl.Enabled {
		return nil
	}

	if rl.Backend != BackendMemory && rl.Backend != BackendRedis {
		return fmt.Errorf("invalid rate limit backend: %s", rl.Backend)
	}

	if rl.GlobalLimit <= 0 {
		return errors.New("global limit must be positive")
	}

	if rl.GlobalWindow <= 0 {
		return errors.New("global window must be positive")
	}

	if rl.BaseLimit <= 0 {
		return errors.New("base limit must be positive")
	}

	if rl.BaseWindow <= 0 {
		return errors.New("base window must be positive")
	}

	if rl.Client.Enabled {
		if rl.Client.RequestsPerMinute <= 0 {
			return errors.New("client requests per minute must be positive")
		}
		if rl.Client.BurstSize <= 0 {
			return errors.New("client burst size must be positive")
		}
	}

	return nil
}

func (cc *CacheConfig) Validate() error {
	if !cc.Enabled {
		return nil
	}

	if cc.Backend != BackendMemory && cc.Backend != BackendRedis {
		return fmt.Errorf("invalid cache backend: %s", cc.Backend)
	}

	if cc.TTL.Bases < 0 || cc.TTL.Schema < 0 || cc.TTL.Records < 0 || cc.TTL.Record < 0 {
		return errors.New("cache TTL cannot be negative")
	}

	return nil
}

func (sec *SecurityConfig) Validate() error {
	if sec.EnableAuth && sec.APIKey == "" {
		return errors.New("API key is required when authentication is enabled")
	}

	return nil
}

func (lc *LoggingConfig) Validate() error {
	validLevels := []string{"debug", "info", "warn", "error"}
	found := false
	for _, vl := range validLevels {
		if lc.Level == vl {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("invalid log level: %s", lc.Level)
	}

	validFormats := []string{"json", "text"}
	found = false
	for _, vf := range validFormats {
		if lc.Format == vf {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("invalid log format: %s", lc.Format)
	}

	validOutputs := []string{"stdout", "stderr", "file"}
	found = false
	for _, vo := range validOutputs {
		if lc.Output == vo {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("invalid log output: %s", lc.Output)
	}

	if lc.Output == "file" && lc.FilePath == "" {
		return errors.New("file path is required when output is file")
	}

	return nil
}

func (mc *MetricsConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}

	if mc.Path == "" {
		return errors.New("metrics path cannot be empty")
	}

	if mc.Port <= 0 || mc.Port > 65535 {
		return errors.New("metrics port must be between 1 and 65535")
	}

	return nil
}
