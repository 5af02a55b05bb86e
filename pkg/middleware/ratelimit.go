package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/quotes/pkg/httputil"
	"github.com/platinummonkey/quotes/pkg/observability"
)

// Rate limited endpoint names
const (
	EndpointRandom   = "random"
	EndpointList     = "list"
	EndpointSearch   = "search"
	EndpointGet      = "get"
	EndpointAddOne   = "add_one"
	EndpointAddBatch = "add_batch"
)

// Endpoints lists every rate limited endpoint
var Endpoints = []string{EndpointRandom, EndpointList, EndpointSearch, EndpointGet, EndpointAddOne, EndpointAddBatch}

// DefaultKeyPrefix namespaces the counters in Redis
const DefaultKeyPrefix = "quotes:ratelimit"

// Window is one fixed counting period
type Window struct {
	Name     string
	Duration time.Duration
}

// Windows are checked in this order; the first is reported in response headers
var Windows = [3]Window{
	{Name: "second", Duration: time.Second},
	{Name: "hour", Duration: time.Hour},
	{Name: "day", Duration: 24 * time.Hour},
}

// RateLimitConfig holds the thresholds of one endpoint
type RateLimitConfig struct {
	PerSecond int `yaml:"per_second"`
	PerHour   int `yaml:"per_hour"`
	PerDay    int `yaml:"per_day"`
}

// Validate requires every threshold to be positive
func (c RateLimitConfig) Validate() error {
	for i, limit := range c.limits() {
		if limit <= 0 {
			return fmt.Errorf("per_%s limit must be positive, got %d", Windows[i].Name, limit)
		}
	}
	return nil
}

func (c RateLimitConfig) limits() [3]int {
	return [3]int{c.PerSecond, c.PerHour, c.PerDay}
}

// DefaultRateLimits returns the built-in thresholds per endpoint
func DefaultRateLimits() map[string]RateLimitConfig {
	return map[string]RateLimitConfig{
		EndpointRandom:   {PerSecond: 10, PerHour: 1000, PerDay: 10000},
		EndpointList:     {PerSecond: 20, PerHour: 2000, PerDay: 20000},
		EndpointSearch:   {PerSecond: 5, PerHour: 500, PerDay: 5000},
		EndpointGet:      {PerSecond: 10, PerHour: 1000, PerDay: 10000},
		EndpointAddOne:   {PerSecond: 1, PerHour: 60, PerDay: 500},
		EndpointAddBatch: {PerSecond: 1, PerHour: 20, PerDay: 100},
	}
}

// checkAndIncrement checks every window and increments all of them only when
// none is exhausted. KEYS are the window counters; ARGV holds limit and
// window length in milliseconds for each key. Returns {blocked index (0 when
// allowed), blocking ttl ms, remaining in the first window}.
var checkAndIncrement = redis.NewScript(`
local n = #KEYS
for i = 1, n do
	local limit = tonumber(ARGV[2 * i - 1])
	local current = tonumber(redis.call('GET', KEYS[i]) or '0')
	if current >= limit then
		local ttl = redis.call('PTTL', KEYS[i])
		if ttl < 0 then
			ttl = tonumber(ARGV[2 * i])
			redis.call('PEXPIRE', KEYS[i], ttl)
		end
		return {i, ttl, 0}
	end
end
local first = 0
for i = 1, n do
	local count = redis.call('INCR', KEYS[i])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[i], ARGV[2 * i])
	end
	if i == 1 then
		first = count
	end
end
return {0, 0, tonumber(ARGV[1]) - first}
`)

// Decision is the outcome of one rate limit check
type Decision struct {
	Allowed bool
	// Window names the exhausted window of a rejected request
	Window     string
	RetryAfter time.Duration
	// Limit and Remaining describe the per-second window
	Limit     int
	Remaining int
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, at least one
func (d Decision) RetryAfterSeconds() int {
	secs := int((d.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// RateLimiter enforces per-client, per-endpoint limits over three fixed
// windows held in Redis. The check and the increments run as one script, so
// concurrent requests cannot overshoot a threshold and rejected requests do
// not consume quota.
type RateLimiter struct {
	redis   *redis.Client
	prefix  string
	metrics *observability.Metrics

	fallbackEnabled atomic.Bool
	trustForwarded  atomic.Bool
}

// NewRateLimiter creates a Redis-backed limiter. It fails closed on cache
// errors until SetFallbackEnabled(true) is called, and keys on the connection
// address until SetTrustForwardedHeaders(true) is called. metrics may be nil.
func NewRateLimiter(redisClient *redis.Client, prefix string, metrics *observability.Metrics) *RateLimiter {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RateLimiter{
		redis:   redisClient,
		prefix:  prefix,
		metrics: metrics,
	}
}

// SetFallbackEnabled controls whether to fail open (true) or closed (false) on Redis errors
func (rl *RateLimiter) SetFallbackEnabled(enabled bool) {
	rl.fallbackEnabled.Store(enabled)
}

// SetTrustForwardedHeaders controls whether clients are identified by
// X-Forwarded-For / X-Real-IP (true) or by the connection address (false)
func (rl *RateLimiter) SetTrustForwardedHeaders(trust bool) {
	rl.trustForwarded.Store(trust)
}

// Key returns the Redis key counting client's requests to endpoint in window
func (rl *RateLimiter) Key(endpoint, client string, window Window) string {
	return fmt.Sprintf("%s:%s:%s:%s", rl.prefix, endpoint, client, window.Name)
}

// Allow checks and, when permitted, records one request
func (rl *RateLimiter) Allow(ctx context.Context, endpoint, client string, cfg RateLimitConfig) (Decision, error) {
	limits := cfg.limits()
	keys := make([]string, len(Windows))
	args := make([]interface{}, 0, 2*len(Windows))
	for i, window := range Windows {
		keys[i] = rl.Key(endpoint, client, window)
		args = append(args, limits[i], window.Duration.Milliseconds())
	}

	raw, err := checkAndIncrement.Run(ctx, rl.redis, keys, args...).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script failed: %w", err)
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 3 {
		return Decision{}, fmt.Errorf("unexpected rate limit script reply %v", raw)
	}
	var reply [3]int64
	for i, v := range values {
		n, ok := v.(int64)
		if !ok {
			return Decision{}, fmt.Errorf("unexpected rate limit script reply %v", raw)
		}
		reply[i] = n
	}

	decision := Decision{Limit: limits[0]}
	if blocked := reply[0]; blocked > 0 {
		decision.Window = Windows[blocked-1].Name
		decision.RetryAfter = time.Duration(reply[1]) * time.Millisecond
		return decision, nil
	}

	decision.Allowed = true
	decision.Remaining = int(reply[2])
	return decision, nil
}

// Limit returns middleware enforcing cfg for endpoint
func (rl *RateLimiter) Limit(endpoint string, cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			client := httputil.ClientIP(r, rl.trustForwarded.Load())

			decision, err := rl.Allow(ctx, endpoint, client, cfg)
			if err != nil {
				rl.metrics.RecordRateLimitError(endpoint)
				logger := observability.FromContext(ctx).WithField("endpoint", endpoint).WithError(err)
				if rl.fallbackEnabled.Load() && !errors.Is(err, context.Canceled) {
					logger.Warn("Rate limiter unavailable, allowing request")
					next.ServeHTTP(w, r)
					return
				}
				logger.Error("Rate limiter unavailable")
				httputil.WriteInternalError(w)
				return
			}

			if !decision.Allowed {
				rl.metrics.RecordRateLimitRejection(endpoint, decision.Window)
				observability.FromContext(ctx).WithFields(map[string]interface{}{
					"endpoint": endpoint,
					"window":   decision.Window,
				}).Debug("Rate limit exceeded")
				httputil.WriteTooManyRequests(w, decision.RetryAfterSeconds())
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}
