// Package middleware provides the API key filter and the Redis-backed
// per-endpoint rate limiter.
//
// # Authorization
//
//	auth := middleware.NewAPIKeyMiddleware(cfg.API.Key)
//	router.Use(auth.Handler)
//
// The key is read from the X-API-Key header, or from the api_key query
// parameter when the header is absent, and compared in constant time.
//
// # Rate Limiting
//
//	limiter := middleware.NewRateLimiter(redisClient, "", metrics)
//	router.Handle("/random", limiter.Limit(middleware.EndpointRandom, limits[middleware.EndpointRandom])(h))
//
// Each client address has one counter per endpoint and window (second, hour,
// day). The address is the connection's unless SetTrustForwardedHeaders(true)
// is called. A request passes only if all three are below their thresholds, and
// only then are all three incremented. Keys expire with their window.
//
// Rejections answer 429 with Retry-After. Redis failures answer 500 unless
// SetFallbackEnabled(true) lets requests through.
package middleware
