package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyMiddleware_Handler(t *testing.T) {
	tests := []struct {
		name         string
		header       string
		query        string
		expectStatus int
		expectError  string
	}{
		{
			name:         "valid header",
			header:       "s3cret",
			expectStatus: http.StatusOK,
		},
		{
			name:         "valid query parameter",
			query:        "?api_key=s3cret",
			expectStatus: http.StatusOK,
		},
		{
			name:         "header wins over query parameter",
			header:       "wrong",
			query:        "?api_key=s3cret",
			expectStatus: http.StatusUnauthorized,
			expectError:  "invalid API key",
		},
		{
			name:         "missing key",
			expectStatus: http.StatusUnauthorized,
			expectError:  "missing API key",
		},
		{
			name:         "wrong key",
			header:       "s3cre",
			expectStatus: http.StatusUnauthorized,
			expectError:  "invalid API key",
		},
	}

	m := NewAPIKeyMiddleware("s3cret")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			req := httptest.NewRequest(http.MethodGet, "/quotes"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set(APIKeyHeader, tt.header)
			}
			rr := httptest.NewRecorder()

			m.Handler(okHandler(&called)).ServeHTTP(rr, req)

			if rr.Code != tt.expectStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.expectStatus)
			}
			if called != (tt.expectStatus == http.StatusOK) {
				t.Errorf("handler called = %v", called)
			}
			if tt.expectError != "" && !strings.Contains(rr.Body.String(), tt.expectError) {
				t.Errorf("body %q does not contain %q", rr.Body.String(), tt.expectError)
			}
		})
	}
}

func TestAPIKeyMiddleware_EmptyConfiguredKey(t *testing.T) {
	called := false
	req := httptest.NewRequest(http.MethodGet, "/quotes?api_key=", nil)
	req.Header.Set(APIKeyHeader, "anything")
	rr := httptest.NewRecorder()

	NewAPIKeyMiddleware("").Handler(okHandler(&called)).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	if called {
		t.Error("handler must not run without a configured key")
	}
}
