package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"airgate/internal/models"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from file and environment variables
func Load(configPath string) (*models.Config, error) {
	// Start with default configuration
	config := models.NewDefaultConfig()

	// Load from file if provided and exists
	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Override with environment variables
	loadFromEnvironment(config)

	// Validate the final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(config *models.Config, filePath string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", filePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// loadFromEnvironment loads configuration from environment variables
func loadFromEnvironment(config *models.Config) {
	// Server configuration
	if port := os.Getenv("AIRGATE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if host := os.Getenv("AIRGATE_HOST"); host != "" {
		config.Server.Host = host
	}

	if timeout := os.Getenv("AIRGATE_READ_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.ReadTimeout = d
		}
	}

	if timeout := os.Getenv("AIRGATE_WRITE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.WriteTimeout = d
		}
	}

	if timeout := os.Getenv("AIRGATE_IDLE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.IdleTimeout = d
		}
	}

	if tls := os.Getenv("AIRGATE_TLS_ENABLED"); tls != "" {
		config.Server.TLSEnabled = strings.ToLower(tls) == "true"
	}

	if certFile := os.Getenv("AIRGATE_TLS_CERT_FILE"); certFile != "" {
		config.Server.TLSCertFile = certFile
	}

	if keyFile := os.Getenv("AIRGATE_TLS_KEY_FILE"); keyFile != "" {
		config.Server.TLSKeyFile = keyFile
	}

	// Upstream configuration
	if baseURL := os.Getenv("AIRGATE_UPSTREAM_BASE_URL"); baseURL != "" {
		config.Upstream.BaseURL = baseURL
	}

	if token := os.Getenv("AIRTABLE_TOKEN"); token != "" {
		config.Upstream.Token = token
	}

	if timeout := os.Getenv("AIRGATE_UPSTREAM_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Upstream.Timeout = d
		}
	}

	// Rate limit configuration
	if enabled := os.Getenv("AIRGATE_RATE_LIMIT_ENABLED"); enabled != "" {
		config.RateLimit.Enabled = strings.ToLower(enabled) == "true"
	}

	if backend := os.Getenv("AIRGATE_RATE_LIMIT_BACKEND"); backend != "" {
		config.RateLimit.Backend = backend
	}

	if limit := os.Getenv("AIRGATE_GLOBAL_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			config.RateLimit.GlobalLimit = n
		}
	}

	if window := os.Getenv("AIRGATE_GLOBAL_WINDOW"); window != "" {
		if d, err := time.ParseDuration(window); err == nil {
			config.RateLimit.GlobalWindow = d
		}
	}

	if limit := os.Getenv("AIRGATE_BASE_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			config.RateLimit.BaseLimit = n
		}
	}

	if window := os.Getenv("AIRGATE_BASE_WINDOW"); window != "" {
		if d, err := time.ParseDuration(window); err == nil {
			config.RateLimit.BaseWindow = d
		}
	}

	if interval := os.Getenv("AIRGATE_RATE_LIMIT_CLEANUP_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			config.RateLimit.CleanupInterval = d
		}
	}

	if enabled := os.Getenv("AIRGATE_CLIENT_RATE_LIMIT_ENABLED"); enabled != "" {
		config.RateLimit.Client.Enabled = strings.ToLower(enabled) == "true"
	}

	if rpm := os.Getenv("AIRGATE_CLIENT_REQUESTS_PER_MINUTE"); rpm != "" {
		if n, err := strconv.Atoi(rpm); err == nil {
			config.RateLimit.Client.RequestsPerMinute = n
		}
	}

	if burst := os.Getenv("AIRGATE_CLIENT_BURST_SIZE"); burst != "" {
		if n, err := strconv.Atoi(burst); err == nil {
			config.RateLimit.Client.BurstSize = n
		}
	}

	// Cache configuration
	if cache := os.Getenv("AIRGATE_CACHE_ENABLED"); cache != "" {
		config.Cache.Enabled = strings.ToLower(cache) == "true"
	}

	if backend := os.Getenv("AIRGATE_CACHE_BACKEND"); backend != "" {
		config.Cache.Backend = backend
	}

	if ttl := os.Getenv("AIRGATE_CACHE_TTL_BASES"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			config.Cache.TTL.Bases = d
		}
	}

	if ttl := os.Getenv("AIRGATE_CACHE_TTL_SCHEMA"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			config.Cache.TTL.Schema = d
		}
	}

	if ttl := os.Getenv("AIRGATE_CACHE_TTL_RECORDS"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			config.Cache.TTL.Records = d
		}
	}

	if ttl := os.Getenv("AIRGATE_CACHE_TTL_RECORD"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			config.Cache.TTL.Record = d
		}
	}

	if cleanup := os.Getenv("AIRGATE_MEMORY_CACHE_CLEANUP_INTERVAL"); cleanup != "" {
		if d, err := time.ParseDuration(cleanup); err == nil {
			config.Cache.Memory.CleanupInterval = d
		}
	}

	// Redis configuration
	if addr := os.Getenv("AIRGATE_REDIS_ADDR"); addr != "" {
		config.Redis.Addr = addr
	}

	if password := os.Getenv("AIRGATE_REDIS_PASSWORD"); password != "" {
		config.Redis.Password = password
	}

	if db := os.Getenv("AIRGATE_REDIS_DB"); db != "" {
		if dbNum, err := strconv.Atoi(db); err == nil {
			config.Redis.DB = dbNum
		}
	}

	if poolSize := os.Getenv("AIRGATE_REDIS_POOL_SIZE"); poolSize != "" {
		if size, err := strconv.Atoi(poolSize); err == nil {
			config.Redis.PoolSize = size
		}
	}

	// Security configuration
	if auth := os.Getenv("AIRGATE_ENABLE_AUTH"); auth != "" {
		config.Security.EnableAuth = strings.ToLower(auth) == "true"
	}

	if key := os.Getenv("AIRGATE_API_KEY"); key != "" {
		config.Security.APIKey = key
	}

	// Logging configuration
	if level := os.Getenv("AIRGATE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if format := os.Getenv("AIRGATE_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}

	if output := os.Getenv("AIRGATE_LOG_OUTPUT"); output != "" {
		config.Logging.Output = output
	}

	if filePath := os.Getenv("AIRGATE_LOG_FILE_PATH"); filePath != "" {
		config.Logging.FilePath = filePath
	}

	// Metrics configuration
	if metrics := os.Getenv("AIRGATE_METRICS_ENABLED"); metrics != "" {
		config.Metrics.Enabled = strings.ToLower(metrics) == "true"
	}

	if path := os.Getenv("AIRGATE_METRICS_PATH"); path != "" {
		config.Metrics.Path = path
	}

	if port := os.Getenv("AIRGATE_METRICS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Metrics.Port = p
		}
	}

	// Observability configuration
	if name := os.Getenv("AIRGATE_SERVICE_NAME"); name != "" {
		config.Observability.ServiceName = name
	}

	if tracing := os.Getenv("AIRGATE_TRACING_ENABLED"); tracing != "" {
		config.Observability.Tracing.Enabled = strings.ToLower(tracing) == "true"
	}

	if exporter := os.Getenv("AIRGATE_TRACE_EXPORTER"); exporter != "" {
		config.Observability.Tracing.Exporter = exporter
	}

	if endpoint := os.Getenv("AIRGATE_OTLP_ENDPOINT"); endpoint != "" {
		config.Observability.Tracing.OTLPEndpoint = endpoint
	}
}

// SaveExample saves an example configuration file
func SaveExample(filePath string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	config := models.NewDefaultConfig()

	// Placeholder secrets so the example is self-describing
	config.Upstream.Token = "pat_your-airtable-token-here"
	config.Security.APIKey = "agw_your-api-key-here"

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
