package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/platinummonkey/quotes/pkg/middleware"
	"github.com/platinummonkey/quotes/pkg/observability"
)

// withoutEnvFiles keeps a stray .env in the package directory out of tests
func withoutEnvFiles(t *testing.T) {
	t.Helper()
	saved := EnvFiles
	EnvFiles = nil
	t.Cleanup(func() { EnvFiles = saved })
}

func TestGetEnv(t *testing.T) {
	t.Setenv(EnvPrefix+"TEST_VAR", "custom")

	if got := getEnv("TEST_VAR", "default"); got != "custom" {
		t.Errorf("getEnv() = %v, want custom", got)
	}
	if got := getEnv("TEST_VAR_NOT_SET", "default"); got != "default" {
		t.Errorf("getEnv() = %v, want default", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		envValue string
		want     bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"false", false},
		{"yes", false},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.envValue, func(t *testing.T) {
			t.Setenv(EnvPrefix+"TEST_BOOL", tt.envValue)
			if got := getEnvBool("TEST_BOOL", true); got != tt.want {
				t.Errorf("getEnvBool(%q) = %v, want %v", tt.envValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvIntAndDuration(t *testing.T) {
	t.Setenv(EnvPrefix+"TEST_INT", "42")
	t.Setenv(EnvPrefix+"TEST_BAD_INT", "forty-two")
	t.Setenv(EnvPrefix+"TEST_DURATION", "90s")
	t.Setenv(EnvPrefix+"TEST_BAD_DURATION", "soon")

	if got := getEnvInt("TEST_INT", 1); got != 42 {
		t.Errorf("getEnvInt() = %d, want 42", got)
	}
	if got := getEnvInt("TEST_BAD_INT", 1); got != 1 {
		t.Errorf("getEnvInt() = %d, want default 1", got)
	}
	if got := getEnvDuration("TEST_DURATION", time.Second); got != 90*time.Second {
		t.Errorf("getEnvDuration() = %v, want 90s", got)
	}
	if got := getEnvDuration("TEST_BAD_DURATION", time.Second); got != time.Second {
		t.Errorf("getEnvDuration() = %v, want default 1s", got)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	withoutEnvFiles(t)
	t.Setenv(EnvPrefix+"API_KEY", "s3cret")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("Server.Addr() = %s", cfg.Server.Addr())
	}
	if cfg.Server.HealthAddr() != "0.0.0.0:9090" {
		t.Errorf("Server.HealthAddr() = %s", cfg.Server.HealthAddr())
	}
	if cfg.API.Key != "s3cret" || cfg.API.Title != "Quotes API" {
		t.Errorf("unexpected API config %+v", cfg.API)
	}
	if cfg.Observability.LogLevel != observability.InfoLevel {
		t.Errorf("LogLevel = %v, want INFO", cfg.Observability.LogLevel)
	}
	if cfg.Redis.FailOpen {
		t.Error("rate limiter must fail closed by default")
	}
	if cfg.Server.TrustForwardedHeaders {
		t.Error("forwarded headers must not be trusted by default")
	}
	if got := cfg.RateLimits[middleware.EndpointAddOne]; got != middleware.DefaultRateLimits()[middleware.EndpointAddOne] {
		t.Errorf("add_one limits = %+v", got)
	}
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	withoutEnvFiles(t)
	t.Setenv(EnvPrefix+"API_KEY", "s3cret")
	t.Setenv(EnvPrefix+"PORT", "8000")
	t.Setenv(EnvPrefix+"BASE_URL", "/api")
	t.Setenv(EnvPrefix+"DATABASE_HOSTNAME", "db.internal")
	t.Setenv(EnvPrefix+"DATABASE_MAX_CONNS", "25")
	t.Setenv(EnvPrefix+"LOG_LEVEL", "debug")
	t.Setenv(EnvPrefix+"OTEL_ENABLED", "true")
	t.Setenv(EnvPrefix+"TRUST_FORWARDED_HEADERS", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Server.Port != "8000" || cfg.API.BaseURL != "/api" {
		t.Errorf("unexpected config %+v %+v", cfg.Server, cfg.API)
	}
	if cfg.Database.Hostname != "db.internal" || cfg.Database.MaxConns != 25 {
		t.Errorf("unexpected database config %+v", cfg.Database)
	}
	if cfg.Observability.LogLevel != observability.DebugLevel || !cfg.Observability.OTelEnabled {
		t.Errorf("unexpected observability config %+v", cfg.Observability)
	}
	if !cfg.Server.TrustForwardedHeaders {
		t.Error("TrustForwardedHeaders = false, want true")
	}
}

func TestLoadDatabaseConfig(t *testing.T) {
	withoutEnvFiles(t)
	t.Setenv(EnvPrefix+"DATABASE_NAME", "cytaty")

	db, err := LoadDatabaseConfig()
	if err != nil {
		t.Fatalf("LoadDatabaseConfig() error = %v", err)
	}
	if db.Name != "cytaty" || db.Hostname != "localhost" {
		t.Errorf("unexpected database config %+v", db)
	}
}

func TestLoadConfig_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("QUOTES_API_API_KEY=from-file\nQUOTES_API_API_TITLE=Cytaty\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	saved := EnvFiles
	EnvFiles = []string{path, filepath.Join(dir, "missing.env")}
	t.Cleanup(func() { EnvFiles = saved })

	// Set explicitly so t.Setenv restores both after the test.
	t.Setenv(EnvPrefix+"API_KEY", "")
	t.Setenv(EnvPrefix+"API_TITLE", "from-env")
	os.Unsetenv(EnvPrefix + "API_KEY")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.API.Key != "from-file" {
		t.Errorf("API.Key = %s, want from-file", cfg.API.Key)
	}
	if cfg.API.Title != "from-env" {
		t.Errorf("API.Title = %s, the environment must win over the file", cfg.API.Title)
	}
}

func TestLoadConfig_RateLimitsFile(t *testing.T) {
	withoutEnvFiles(t)
	path := filepath.Join(t.TempDir(), "limits.yaml")
	if err := os.WriteFile(path, []byte("search:\n  per_second: 2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvPrefix+"API_KEY", "s3cret")
	t.Setenv(EnvPrefix+"RATE_LIMITS_FILE", path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	want := middleware.RateLimitConfig{PerSecond: 2, PerHour: 500, PerDay: 5000}
	if got := cfg.RateLimits[middleware.EndpointSearch]; got != want {
		t.Errorf("search limits = %+v, want %+v", got, want)
	}

	t.Setenv(EnvPrefix+"RATE_LIMITS_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := LoadConfig(); err == nil {
		t.Error("expected error for missing rate limits file")
	}
}

func TestParseRateLimits(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{name: "empty document", yaml: ""},
		{name: "full override", yaml: "add_batch:\n  per_second: 1\n  per_hour: 5\n  per_day: 10\n"},
		{name: "unknown endpoint", yaml: "delete:\n  per_second: 1\n", wantErr: "unknown endpoint"},
		{name: "unknown field", yaml: "get:\n  per_minute: 1\n", wantErr: "per_minute"},
		{name: "malformed", yaml: "get: [", wantErr: "yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limits, err := ParseRateLimits([]byte(tt.yaml))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %v, want one containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRateLimits() error = %v", err)
			}
			if len(limits) != len(middleware.Endpoints) {
				t.Errorf("got %d endpoints", len(limits))
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:     ServerConfig{Port: "8080", HealthPort: "9090"},
			API:        APIConfig{Key: "k", BaseURL: "/api"},
			Database:   DatabaseConfig{Hostname: "localhost", Name: "quotes"},
			Redis:      RedisConfig{Address: "localhost:6379"},
			RateLimits: middleware.DefaultRateLimits(),
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty base url", mutate: func(c *Config) { c.API.BaseURL = "" }},
		{name: "same ports", mutate: func(c *Config) { c.Server.HealthPort = "8080" }, wantErr: true},
		{name: "missing key", mutate: func(c *Config) { c.API.Key = "" }, wantErr: true},
		{name: "relative base url", mutate: func(c *Config) { c.API.BaseURL = "api" }, wantErr: true},
		{name: "missing db host", mutate: func(c *Config) { c.Database.Hostname = "" }, wantErr: true},
		{name: "missing db name", mutate: func(c *Config) { c.Database.Name = "" }, wantErr: true},
		{name: "missing redis", mutate: func(c *Config) { c.Redis.Address = "" }, wantErr: true},
		{
			name: "zero threshold",
			mutate: func(c *Config) {
				c.RateLimits[middleware.EndpointGet] = middleware.RateLimitConfig{PerSecond: 0, PerHour: 1, PerDay: 1}
			},
			wantErr: true,
		},
		{
			name:    "missing endpoint",
			mutate:  func(c *Config) { delete(c.RateLimits, middleware.EndpointRandom) },
			wantErr: true,
		},
		{
			name: "otel without endpoint",
			mutate: func(c *Config) {
				c.Observability.OTelEnabled = true
				c.Observability.OTelServiceName = "quotes"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "full",
			cfg:  DatabaseConfig{Username: "quotes", Password: "p@ss/word", Hostname: "db", Port: "5432", Name: "quotes", SSLMode: "require"},
			want: "postgres://quotes:p%40ss%2Fword@db:5432/quotes?sslmode=require",
		},
		{
			name: "no password",
			cfg:  DatabaseConfig{Username: "quotes", Hostname: "localhost", Port: "5433", Name: "q"},
			want: "postgres://quotes@localhost:5433/q",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.DSN(); got != tt.want {
				t.Errorf("DSN() = %s, want %s", got, tt.want)
			}
		})
	}
}
