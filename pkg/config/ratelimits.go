package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/quotes/pkg/middleware"
)

// rateLimitOverride leaves unset thresholds at their defaults
type rateLimitOverride struct {
	PerSecond *int `yaml:"per_second"`
	PerHour   *int `yaml:"per_hour"`
	PerDay    *int `yaml:"per_day"`
}

// LoadRateLimitsFile reads per-endpoint threshold overrides:
//
//	search:
//	  per_second: 2
//	add_batch:
//	  per_hour: 10
//	  per_day: 50
//
// Endpoints and thresholds not named keep the defaults.
func LoadRateLimitsFile(path string) (map[string]middleware.RateLimitConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rate limits file: %w", err)
	}
	limits, err := ParseRateLimits(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rate limits file %s: %w", path, err)
	}
	return limits, nil
}

// ParseRateLimits applies YAML overrides on top of middleware.DefaultRateLimits
func ParseRateLimits(data []byte) (map[string]middleware.RateLimitConfig, error) {
	limits := middleware.DefaultRateLimits()

	var overrides map[string]rateLimitOverride
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&overrides); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	for endpoint, override := range overrides {
		limit, ok := limits[endpoint]
		if !ok {
			return nil, fmt.Errorf("unknown endpoint %q", endpoint)
		}
		if override.PerSecond != nil {
			limit.PerSecond = *override.PerSecond
		}
		if override.PerHour != nil {
			limit.PerHour = *override.PerHour
		}
		if override.PerDay != nil {
			limit.PerDay = *override.PerDay
		}
		limits[endpoint] = limit
	}

	return limits, nil
}
