package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/platinummonkey/quotes/pkg/middleware"
	"github.com/platinummonkey/quotes/pkg/observability"
)

// EnvPrefix prefixes every environment variable read by LoadConfig
const EnvPrefix = "QUOTES_API_"

// EnvFiles are loaded, when present, before the environment is read.
// Variables already set in the environment win.
var EnvFiles = []string{".env"}

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	API           APIConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	RateLimits    map[string]middleware.RateLimitConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// TrustForwardedHeaders identifies clients by X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that sets those headers.
	TrustForwardedHeaders bool
}

// Addr returns the API listen address
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// HealthAddr returns the health/metrics listen address
func (s ServerConfig) HealthAddr() string {
	return net.JoinHostPort(s.Host, s.HealthPort)
}

// APIConfig describes the public API surface
type APIConfig struct {
	Title   string
	Version string
	// BaseURL prefixes every route; empty or starting with "/"
	BaseURL string
	Key     string
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Username string
	Password string
	Hostname string
	Port     string
	Name     string
	SSLMode  string
	MaxConns int
	MinConns int
	Timeout  time.Duration
}

// DSN builds a lib/pq connection URL
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Hostname, d.Port),
		Path:   "/" + d.Name,
	}
	if d.Username != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.Username, d.Password)
		} else {
			u.User = url.User(d.Username)
		}
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String()
}

// RedisConfig holds rate limit cache settings
type RedisConfig struct {
	// Address is a redis:// URL or host:port
	Address  string
	Password string
	DB       int
	PoolSize int
	// FailOpen lets requests through when Redis is unreachable
	FailOpen bool
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel

	MetricsEnabled bool

	OTelEnabled     bool
	OTelEndpoint    string
	OTelServiceName string
	OTelInsecure    bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from the environment, after any EnvFiles,
// and applies the optional rate limit file.
func LoadConfig() (*Config, error) {
	if err := loadEnvFiles(EnvFiles...); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server:        loadServerConfig(),
		API:           loadAPIConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		RateLimits:    middleware.DefaultRateLimits(),
		Observability: loadObservabilityConfig(),
	}

	if path := getEnv("RATE_LIMITS_FILE", ""); path != "" {
		overrides, err := LoadRateLimitsFile(path)
		if err != nil {
			return nil, err
		}
		cfg.RateLimits = overrides
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadDatabaseConfig loads only the database section, for tools that do not
// serve the API.
func LoadDatabaseConfig() (DatabaseConfig, error) {
	if err := loadEnvFiles(EnvFiles...); err != nil {
		return DatabaseConfig{}, err
	}
	db := loadDatabaseConfig()
	if db.Hostname == "" || db.Name == "" {
		return DatabaseConfig{}, errors.New("database hostname and name are required")
	}
	return db, nil
}

func loadEnvFiles(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("HOST", "0.0.0.0"),
		Port:            getEnv("PORT", "8080"),
		ReadTimeout:     getEnvDuration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("HEALTH_PORT", "9090"),

		TrustForwardedHeaders: getEnvBool("TRUST_FORWARDED_HEADERS", false),
	}
}

func loadAPIConfig() APIConfig {
	return APIConfig{
		Title:   getEnv("API_TITLE", "Quotes API"),
		Version: getEnv("API_VERSION", "1.0.0"),
		BaseURL: getEnv("BASE_URL", ""),
		Key:     getEnv("API_KEY", ""),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Username: getEnv("DATABASE_USERNAME", "postgres"),
		Password: getEnv("DATABASE_PASSWORD", ""),
		Hostname: getEnv("DATABASE_HOSTNAME", "localhost"),
		Port:     getEnv("DATABASE_PORT", "5432"),
		Name:     getEnv("DATABASE_NAME", "quotes"),
		SSLMode:  getEnv("DATABASE_SSLMODE", "disable"),
		MaxConns: getEnvInt("DATABASE_MAX_CONNS", 10),
		MinConns: getEnvInt("DATABASE_MIN_CONNS", 2),
		Timeout:  getEnvDuration("DATABASE_TIMEOUT", 5*time.Second),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Address:  getEnv("REDIS_ADDRESS", "redis://localhost:6379/0"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
		PoolSize: getEnvInt("REDIS_POOL_SIZE", 10),
		FailOpen: getEnvBool("RATE_LIMIT_FAIL_OPEN", false),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:        observability.ParseLogLevel(getEnv("LOG_LEVEL", "info")),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
		OTelEnabled:     getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint:    getEnv("OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName: getEnv("OTEL_SERVICE_NAME", "quotes-api"),
		OTelInsecure:    getEnvBool("OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if c.Server.HealthPort == "" {
		return errors.New("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return errors.New("server port and health port must be different")
	}

	if c.API.Key == "" {
		return errors.New("API key is required")
	}
	if c.API.BaseURL != "" && !strings.HasPrefix(c.API.BaseURL, "/") {
		return fmt.Errorf("base URL must start with /: %s", c.API.BaseURL)
	}

	if c.Database.Hostname == "" {
		return errors.New("database hostname is required")
	}
	if c.Database.Name == "" {
		return errors.New("database name is required")
	}
	if c.Redis.Address == "" {
		return errors.New("redis address is required")
	}

	for _, endpoint := range middleware.Endpoints {
		limit, ok := c.RateLimits[endpoint]
		if !ok {
			return fmt.Errorf("rate limit for %s is missing", endpoint)
		}
		if err := limit.Validate(); err != nil {
			return fmt.Errorf("rate limit for %s: %w", endpoint, err)
		}
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return errors.New("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return errors.New("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns a prefixed environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
