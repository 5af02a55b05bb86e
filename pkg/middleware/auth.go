package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/platinummonkey/quotes/pkg/httputil"
)

const (
	// APIKeyHeader carries the client key
	APIKeyHeader = "X-API-Key"
	// APIKeyQueryParam carries the client key when the header is absent
	APIKeyQueryParam = "api_key"
)

// APIKeyMiddleware rejects requests that do not present the configured key
type APIKeyMiddleware struct {
	key []byte
}

// NewAPIKeyMiddleware creates the authorization filter for a single shared key
func NewAPIKeyMiddleware(key string) *APIKeyMiddleware {
	return &APIKeyMiddleware{key: []byte(key)}
}

// Handler wraps an HTTP handler with key authorization
func (m *APIKeyMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := r.Header.Get(APIKeyHeader)
		if presented == "" {
			presented = r.URL.Query().Get(APIKeyQueryParam)
		}

		if presented == "" {
			httputil.WriteUnauthorized(w, "missing API key")
			return
		}
		if !m.matches(presented) {
			httputil.WriteUnauthorized(w, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// matches compares in constant time. An empty configured key matches nothing.
func (m *APIKeyMiddleware) matches(presented string) bool {
	if len(m.key) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), m.key) == 1
}
