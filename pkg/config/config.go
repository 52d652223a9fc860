package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/tally/pkg/directory"
	"github.com/platinummonkey/tally/pkg/observability"
	"github.com/platinummonkey/tally/pkg/scan"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Scan holds the usage-store connection settings
	Scan scan.Config

	// Directory holds the identity directory settings
	Directory directory.Config

	// Cache holds identity cache settings
	Cache CacheConfig

	// Sources configuration
	Sources SourcesConfig

	// Workers configuration
	Workers WorkersConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	// CORS origins allowed to call the API; empty disables CORS.
	AllowedOrigins []string

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// CacheConfig selects and sizes the identity cache layer.
type CacheConfig struct {
	// Type is "memory", "redis", or "none".
	Type string
	Size int
	TTL  time.Duration

	// Redis settings, used when Type is "redis".
	RedisURL      string
	RedisPassword string
	RedisDB       int
}

// SourcesConfig locates the source catalog.
type SourcesConfig struct {
	// CatalogPath is a YAML catalog file; empty means the builtin catalog.
	CatalogPath string
}

// WorkersConfig bounds the engine's concurrency.
type WorkersConfig struct {
	Scan   int
	Lookup int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Scan:          loadScanConfig(),
		Directory:     loadDirectoryConfig(),
		Cache:         loadCacheConfig(),
		Sources:       loadSourcesConfig(),
		Workers:       loadWorkersConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	cfg := ServerConfig{
		Host:            getEnv("TALLY_HOST", "0.0.0.0"),
		Port:            getEnv("TALLY_PORT", "8080"),
		ReadTimeout:     getEnvDuration("TALLY_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("TALLY_WRITE_TIMEOUT", 90*time.Second),
		IdleTimeout:     getEnvDuration("TALLY_IDLE_TIMEOUT", 60*time.Second),
		RequestTimeout:  getEnvDuration("TALLY_REQUEST_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("TALLY_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("TALLY_HEALTH_PORT", "9090"),
	}

	if origins := getEnv("TALLY_ALLOWED_ORIGINS", ""); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	return cfg
}

// loadScanConfig loads usage-store configuration from environment
func loadScanConfig() scan.Config {
	return scan.Config{
		Region:    getEnv("TALLY_AWS_REGION", "us-east-1"),
		Endpoint:  getEnv("TALLY_DYNAMODB_ENDPOINT", ""),
		AccessKey: getEnv("TALLY_AWS_ACCESS_KEY", ""),
		SecretKey: getEnv("TALLY_AWS_SECRET_KEY", ""),
	}
}

// loadDirectoryConfig loads identity directory configuration from environment
func loadDirectoryConfig() directory.Config {
	return directory.Config{
		Region:     getEnv("TALLY_AWS_REGION", "us-east-1"),
		Endpoint:   getEnv("TALLY_COGNITO_ENDPOINT", ""),
		AccessKey:  getEnv("TALLY_AWS_ACCESS_KEY", ""),
		SecretKey:  getEnv("TALLY_AWS_SECRET_KEY", ""),
		UserPoolID: getEnv("TALLY_COGNITO_USER_POOL_ID", ""),
	}
}

// loadCacheConfig loads identity cache configuration from environment
func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Type:          getEnv("TALLY_CACHE_TYPE", "memory"),
		Size:          getEnvInt("TALLY_CACHE_SIZE", 4096),
		TTL:           getEnvDuration("TALLY_CACHE_TTL", 15*time.Minute),
		RedisURL:      getEnv("TALLY_REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("TALLY_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("TALLY_REDIS_DB", 0),
	}
}

// loadSourcesConfig loads source catalog configuration from environment
func loadSourcesConfig() SourcesConfig {
	return SourcesConfig{
		CatalogPath: getEnv("TALLY_SOURCE_CATALOG", ""),
	}
}

// loadWorkersConfig loads concurrency bounds from environment
func loadWorkersConfig() WorkersConfig {
	return WorkersConfig{
		Scan:   getEnvInt("TALLY_SCAN_WORKERS", 0),
		Lookup: getEnvInt("TALLY_LOOKUP_WORKERS", 0),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("TALLY_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("TALLY_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("TALLY_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("TALLY_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("TALLY_OTEL_SERVICE_NAME", "tally"),
		OTelServiceVersion: getEnv("TALLY_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("TALLY_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	// Validate directory config
	if c.Directory.UserPoolID == "" {
		return fmt.Errorf("cognito user pool id is required")
	}

	// Validate cache config
	switch c.Cache.Type {
	case "memory":
		if c.Cache.Size <= 0 {
			return fmt.Errorf("cache size must be positive for memory cache")
		}
	case "redis":
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("redis URL is required for redis cache")
		}
	case "none":
	default:
		return fmt.Errorf("invalid cache type: %s (must be memory, redis, or none)", c.Cache.Type)
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
