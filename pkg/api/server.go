package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/quotes/pkg/httputil"
	"github.com/platinummonkey/quotes/pkg/middleware"
	"github.com/platinummonkey/quotes/pkg/observability"
	"github.com/platinummonkey/quotes/pkg/quotes"
)

// DefaultMaxBodyBytes bounds create payloads; a full batch fits comfortably
const DefaultMaxBodyBytes int64 = 4 << 20

// Options configures a Server
type Options struct {
	// BasePath prefixes every route, e.g. "/api". Empty serves from the root.
	BasePath string
	Title    string
	Version  string
	APIKey   string

	Limiter    *middleware.RateLimiter
	RateLimits map[string]middleware.RateLimitConfig

	// TrustForwardedHeaders resolves client addresses from X-Forwarded-For /
	// X-Real-IP, for logging and rate limiting.
	TrustForwardedHeaders bool

	MaxBodyBytes int64
	Metrics      *observability.Metrics
	Logger       *observability.Logger
}

// Server routes quote requests to the service
type Server struct {
	service *quotes.Service
	router  *mux.Router
	auth    *middleware.APIKeyMiddleware
	limiter *middleware.RateLimiter
	limits  map[string]middleware.RateLimitConfig
	info    InfoResponse

	maxBodyBytes int64
}

// NewServer creates the API server and registers its routes
func NewServer(service *quotes.Service, opts Options) *Server {
	limits := middleware.DefaultRateLimits()
	for endpoint, cfg := range opts.RateLimits {
		limits[endpoint] = cfg
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if opts.Limiter != nil {
		opts.Limiter.SetTrustForwardedHeaders(opts.TrustForwardedHeaders)
	}

	s := &Server{
		service:      service,
		router:       mux.NewRouter(),
		auth:         middleware.NewAPIKeyMiddleware(opts.APIKey),
		limiter:      opts.Limiter,
		limits:       limits,
		info:         InfoResponse{Title: opts.Title, Version: opts.Version},
		maxBodyBytes: opts.MaxBodyBytes,
	}

	if opts.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(opts.Metrics))
	}
	s.router.Use(
		httputil.RequestIDMiddleware(opts.Logger, opts.TrustForwardedHeaders),
		httputil.LoggingMiddleware,
		httputil.RecoveryMiddleware,
	)

	s.setupRoutes(strings.TrimSuffix(opts.BasePath, "/"))
	return s
}

// setupRoutes registers the info route and the authorized quote routes.
// /random and /search are registered before /{id} so they are never read as ids.
func (s *Server) setupRoutes(base string) {
	s.router.HandleFunc(base+"/info", s.getInfo).Methods(http.MethodGet)

	q := s.router.PathPrefix(base + "/quotes").Subrouter()
	q.Use(s.auth.Handler)

	q.Handle("/random", s.limited(middleware.EndpointRandom, s.randomQuote)).Methods(http.MethodGet)
	q.Handle("/search", s.limited(middleware.EndpointSearch, s.searchQuotes)).Methods(http.MethodGet)
	q.Handle("", s.limited(middleware.EndpointList, s.listQuotes)).Methods(http.MethodGet)
	q.Handle("/add_one", s.limited(middleware.EndpointAddOne, s.addOne, s.bodyLimits()...)).Methods(http.MethodPost)
	q.Handle("/add_batch", s.limited(middleware.EndpointAddBatch, s.addBatch, s.bodyLimits()...)).Methods(http.MethodPost)
	q.Handle("/{id}", s.limited(middleware.EndpointGet, s.getQuote)).Methods(http.MethodGet)
}

// limited wraps h with the endpoint's rate limit, then any extra middleware
func (s *Server) limited(endpoint string, h http.HandlerFunc, extra ...func(http.Handler) http.Handler) http.Handler {
	var chain []func(http.Handler) http.Handler
	if s.limiter != nil {
		chain = append(chain, s.limiter.Limit(endpoint, s.limits[endpoint]))
	}
	chain = append(chain, extra...)
	return httputil.Chain(chain...)(h)
}

func (s *Server) bodyLimits() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		httputil.JSONContentTypeMiddleware,
		httputil.MaxBytesMiddleware(s.maxBodyBytes),
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
