// Package config loads application configuration from environment variables.
//
// A .env file in the working directory is loaded first when present; values
// already in the environment take precedence. Every variable carries the
// QUOTES_API_ prefix.
//
// Server settings:
//
//	QUOTES_API_HOST="0.0.0.0"
//	QUOTES_API_PORT="8080"
//	QUOTES_API_HEALTH_PORT="9090"
//	QUOTES_API_READ_TIMEOUT="15s"
//	QUOTES_API_WRITE_TIMEOUT="15s"
//	QUOTES_API_IDLE_TIMEOUT="60s"
//	QUOTES_API_SHUTDOWN_TIMEOUT="30s"
//	QUOTES_API_TRUST_FORWARDED_HEADERS="false"  # key clients on X-Forwarded-For
//
// API settings:
//
//	QUOTES_API_API_TITLE="Quotes API"
//	QUOTES_API_API_VERSION="1.0.0"
//	QUOTES_API_BASE_URL="/api"
//	QUOTES_API_API_KEY="..."            # required
//
// Database settings:
//
//	QUOTES_API_DATABASE_USERNAME="postgres"
//	QUOTES_API_DATABASE_PASSWORD=""
//	QUOTES_API_DATABASE_HOSTNAME="localhost"
//	QUOTES_API_DATABASE_PORT="5432"
//	QUOTES_API_DATABASE_NAME="quotes"
//	QUOTES_API_DATABASE_SSLMODE="disable"
//	QUOTES_API_DATABASE_MAX_CONNS="10"
//	QUOTES_API_DATABASE_MIN_CONNS="2"
//	QUOTES_API_DATABASE_TIMEOUT="5s"
//
// Redis and rate limiting:
//
//	QUOTES_API_REDIS_ADDRESS="redis://localhost:6379/0"
//	QUOTES_API_REDIS_PASSWORD=""
//	QUOTES_API_REDIS_DB="0"
//	QUOTES_API_REDIS_POOL_SIZE="10"
//	QUOTES_API_RATE_LIMITS_FILE="ratelimits.yaml"
//	QUOTES_API_RATE_LIMIT_FAIL_OPEN="false"
//
// Observability:
//
//	QUOTES_API_LOG_LEVEL="info"
//	QUOTES_API_METRICS_ENABLED="true"
//	QUOTES_API_OTEL_ENABLED="false"
//	QUOTES_API_OTEL_ENDPOINT="localhost:4317"
//	QUOTES_API_OTEL_SERVICE_NAME="quotes-api"
//	QUOTES_API_OTEL_INSECURE="true"
package config
