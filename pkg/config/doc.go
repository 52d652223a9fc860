// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	TALLY_HOST="0.0.0.0"
//	TALLY_PORT="8080"
//	TALLY_HEALTH_PORT="9090"
//	TALLY_REQUEST_TIMEOUT="60s"
//	TALLY_ALLOWED_ORIGINS="https://dashboard.example.com"
//
// Usage store settings:
//
//	TALLY_AWS_REGION="us-east-1"
//	TALLY_DYNAMODB_ENDPOINT="http://localhost:8000"  # dynamodb-local
//	TALLY_AWS_ACCESS_KEY=""                          # empty uses the default chain
//	TALLY_AWS_SECRET_KEY=""
//
// Identity directory settings:
//
//	TALLY_COGNITO_USER_POOL_ID="us-east-1_AbCdEf"
//	TALLY_COGNITO_ENDPOINT=""  # non-empty for cognito-local
//
// Identity cache settings:
//
//	TALLY_CACHE_TYPE="memory"  # memory, redis, none
//	TALLY_CACHE_SIZE="4096"
//	TALLY_CACHE_TTL="15m"
//	TALLY_REDIS_URL="localhost:6379"
//
// Source catalog and workers:
//
//	TALLY_SOURCE_CATALOG="/etc/tally/sources.yaml"  # empty uses the builtin catalog
//	TALLY_SCAN_WORKERS="4"
//	TALLY_LOOKUP_WORKERS="8"
//
// Observability settings:
//
//	TALLY_LOG_LEVEL="info"  # debug, info, warn, error
//	TALLY_METRICS_ENABLED="true"
//	TALLY_OTEL_ENABLED="true"
//	TALLY_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Cache: %s\n", cfg.Cache.Type)
//
// # Related Packages
//
//   - pkg/scan: Uses the usage store configuration
//   - pkg/directory: Uses the directory and cache configuration
//   - pkg/observability: Uses observability configuration
package config
