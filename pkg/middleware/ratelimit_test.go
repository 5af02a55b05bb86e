package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/platinummonkey/quotes/pkg/observability"
)

func setupRateLimiter(t *testing.T) (*RateLimiter, *miniredis.Miniredis, *observability.Metrics) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	return NewRateLimiter(client, "", metrics), mr, metrics
}

func TestDefaultRateLimits(t *testing.T) {
	limits := DefaultRateLimits()
	if len(limits) != len(Endpoints) {
		t.Fatalf("got %d endpoints, want %d", len(limits), len(Endpoints))
	}
	for _, endpoint := range Endpoints {
		cfg, ok := limits[endpoint]
		if !ok {
			t.Errorf("missing defaults for %s", endpoint)
			continue
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("defaults for %s invalid: %v", endpoint, err)
		}
	}
	if got := limits[EndpointSearch]; got != (RateLimitConfig{PerSecond: 5, PerHour: 500, PerDay: 5000}) {
		t.Errorf("unexpected search defaults %+v", got)
	}
}

func TestRateLimitConfig_Validate(t *testing.T) {
	if err := (RateLimitConfig{PerSecond: 1, PerHour: 0, PerDay: 1}).Validate(); err == nil {
		t.Error("expected error for zero hourly limit")
	}
	if err := (RateLimitConfig{PerSecond: -1, PerHour: 1, PerDay: 1}).Validate(); err == nil {
		t.Error("expected error for negative limit")
	}
}

func TestDecision_RetryAfterSeconds(t *testing.T) {
	tests := map[time.Duration]int{
		0:                       1,
		300 * time.Millisecond:  1,
		time.Second:             1,
		1001 * time.Millisecond: 2,
		time.Hour:               3600,
	}
	for in, want := range tests {
		if got := (Decision{RetryAfter: in}).RetryAfterSeconds(); got != want {
			t.Errorf("RetryAfterSeconds(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestRateLimiter_PerSecondWindow(t *testing.T) {
	rl, mr, _ := setupRateLimiter(t)
	ctx := context.Background()
	cfg := RateLimitConfig{PerSecond: 3, PerHour: 100, PerDay: 1000}

	for i := 0; i < 3; i++ {
		d, err := rl.Allow(ctx, EndpointGet, "10.0.0.1", cfg)
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("request %d rejected", i)
		}
		if d.Remaining != 2-i {
			t.Errorf("request %d: remaining = %d, want %d", i, d.Remaining, 2-i)
		}
	}

	for i := 0; i < 5; i++ {
		d, err := rl.Allow(ctx, EndpointGet, "10.0.0.1", cfg)
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if d.Allowed {
			t.Fatal("expected rejection past the per-second limit")
		}
		if d.Window != "second" {
			t.Errorf("window = %s, want second", d.Window)
		}
		if d.RetryAfterSeconds() != 1 {
			t.Errorf("retry after = %d, want 1", d.RetryAfterSeconds())
		}
	}

	// Rejected requests do not consume quota in the longer windows.
	hourCount, err := mr.Get(rl.Key(EndpointGet, "10.0.0.1", Windows[1]))
	if err != nil {
		t.Fatalf("hour counter missing: %v", err)
	}
	if hourCount != "3" {
		t.Errorf("hour counter = %s, want 3", hourCount)
	}

	mr.FastForward(time.Second)

	d, err := rl.Allow(ctx, EndpointGet, "10.0.0.1", cfg)
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if !d.Allowed {
		t.Error("expected request to pass once the second elapsed")
	}
}

func TestRateLimiter_HourWindow(t *testing.T) {
	rl, mr, _ := setupRateLimiter(t)
	ctx := context.Background()
	cfg := RateLimitConfig{PerSecond: 100, PerHour: 2, PerDay: 100}

	for i := 0; i < 2; i++ {
		if d, _ := rl.Allow(ctx, EndpointAddOne, "c", cfg); !d.Allowed {
			t.Fatalf("request %d rejected", i)
		}
	}

	d, err := rl.Allow(ctx, EndpointAddOne, "c", cfg)
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if d.Allowed || d.Window != "hour" {
		t.Fatalf("expected hour rejection, got %+v", d)
	}
	if got := d.RetryAfterSeconds(); got != 3600 {
		t.Errorf("retry after = %d, want 3600", got)
	}

	mr.FastForward(time.Hour)
	if d, _ := rl.Allow(ctx, EndpointAddOne, "c", cfg); !d.Allowed {
		t.Error("expected request to pass after the hour")
	}
}

func TestRateLimiter_KeysAreIsolated(t *testing.T) {
	rl, _, _ := setupRateLimiter(t)
	ctx := context.Background()
	cfg := RateLimitConfig{PerSecond: 1, PerHour: 10, PerDay: 10}

	if d, _ := rl.Allow(ctx, EndpointList, "a", cfg); !d.Allowed {
		t.Fatal("first request rejected")
	}
	if d, _ := rl.Allow(ctx, EndpointList, "b", cfg); !d.Allowed {
		t.Error("other client must have its own counter")
	}
	if d, _ := rl.Allow(ctx, EndpointSearch, "a", cfg); !d.Allowed {
		t.Error("other endpoint must have its own counter")
	}
	if d, _ := rl.Allow(ctx, EndpointList, "a", cfg); d.Allowed {
		t.Error("same client and endpoint must be limited")
	}

	if key := rl.Key(EndpointList, "a", Windows[2]); key != "quotes:ratelimit:list:a:day" {
		t.Errorf("unexpected key %s", key)
	}
}

func TestRateLimiter_ConcurrentRequests(t *testing.T) {
	rl, _, _ := setupRateLimiter(t)
	cfg := RateLimitConfig{PerSecond: 10, PerHour: 1000, PerDay: 1000}

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := rl.Allow(context.Background(), EndpointRandom, "burst", cfg)
			if err != nil {
				t.Errorf("Allow failed: %v", err)
				return
			}
			if d.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != 10 {
		t.Errorf("allowed %d concurrent requests, want 10", got)
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl, _, metrics := setupRateLimiter(t)
	cfg := RateLimitConfig{PerSecond: 2, PerHour: 100, PerDay: 100}

	handler := rl.Limit(EndpointRandom, cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/quotes/random", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	for i := 0; i < 2; i++ {
		rr := send()
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rr.Code)
		}
		if got := rr.Header().Get("X-RateLimit-Limit"); got != "2" {
			t.Errorf("X-RateLimit-Limit = %s, want 2", got)
		}
		if got := rr.Header().Get("X-RateLimit-Remaining"); got != strconv.Itoa(1-i) {
			t.Errorf("X-RateLimit-Remaining = %s, want %d", got, 1-i)
		}
	}

	rr := send()
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %s, want 1", got)
	}

	var body struct {
		Error      string `json:"error"`
		RetryAfter int    `json:"retry_after"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body.Error != "rate limit exceeded" || body.RetryAfter != 1 {
		t.Errorf("unexpected body %+v", body)
	}

	if got := testutil.ToFloat64(metrics.RateLimitRejectionsTotal.WithLabelValues(EndpointRandom, "second")); got != 1 {
		t.Errorf("rejections = %v, want 1", got)
	}
}

func TestRateLimiter_ClientIdentity(t *testing.T) {
	cfg := RateLimitConfig{PerSecond: 1, PerHour: 100, PerDay: 100}

	sendFrom := func(handler http.Handler, forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/quotes/add_one", nil)
		req.RemoteAddr = "192.0.2.10:4321"
		req.Header.Set("X-Forwarded-For", forwarded)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	t.Run("forwarded header ignored by default", func(t *testing.T) {
		rl, mr, _ := setupRateLimiter(t)
		handler := rl.Limit(EndpointAddOne, cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		statuses := map[int]int{}
		for i := 0; i < 20; i++ {
			statuses[sendFrom(handler, "10.0.0."+strconv.Itoa(i))]++
		}
		if statuses[http.StatusOK] != 1 || statuses[http.StatusTooManyRequests] != 19 {
			t.Errorf("statuses = %v, want one allowed and 19 rejected", statuses)
		}
		if !mr.Exists("quotes:ratelimit:add_one:192.0.2.10:second") {
			t.Errorf("expected counter keyed on the connection address, keys = %v", mr.Keys())
		}
		if mr.Exists("quotes:ratelimit:add_one:10.0.0.1:second") {
			t.Error("forwarded address must not be used as the client identity")
		}
	})

	t.Run("forwarded header trusted when enabled", func(t *testing.T) {
		rl, mr, _ := setupRateLimiter(t)
		rl.SetTrustForwardedHeaders(true)
		handler := rl.Limit(EndpointAddOne, cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		if got := sendFrom(handler, "10.0.0.1"); got != http.StatusOK {
			t.Fatalf("status = %d, want 200", got)
		}
		if got := sendFrom(handler, "10.0.0.2"); got != http.StatusOK {
			t.Errorf("second client status = %d, want 200", got)
		}
		if got := sendFrom(handler, "10.0.0.1"); got != http.StatusTooManyRequests {
			t.Errorf("repeat client status = %d, want 429", got)
		}
		if !mr.Exists("quotes:ratelimit:add_one:10.0.0.1:second") {
			t.Errorf("expected counter keyed on the forwarded address, keys = %v", mr.Keys())
		}
	})
}

func TestRateLimiter_RedisFailure(t *testing.T) {
	rl, mr, metrics := setupRateLimiter(t)
	mr.Close()

	called := false
	handler := rl.Limit(EndpointGet, DefaultRateLimits()[EndpointGet])(okHandler(&called))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/quotes/1", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
	if called {
		t.Error("handler must not run when the limiter fails closed")
	}
	if rr.Body.String() != "{\"error\":\"internal server error\"}\n" {
		t.Errorf("unexpected body %q", rr.Body.String())
	}
	if got := testutil.ToFloat64(metrics.RateLimitErrorsTotal.WithLabelValues(EndpointGet)); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}

	rl.SetFallbackEnabled(true)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/quotes/1", nil))

	if rr.Code != http.StatusOK || !called {
		t.Errorf("fallback should allow the request, got %d", rr.Code)
	}
}
