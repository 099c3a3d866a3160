package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"gatehouse/internal/middleware"

	"github.com/stretchr/testify/assert"
)

func runWithHeaders(env string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	handler := middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: env})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSecurityHeaders(t *testing.T) {
	rec := runWithHeaders("development", nil)

	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")
	assert.Equal(t, "same-origin", rec.Header().Get("Cross-Origin-Opener-Policy"))

	// No HSTS outside production
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	t.Run("production over https", func(t *testing.T) {
		rec := runWithHeaders("production", func(r *http.Request) {
			r.Header.Set("X-Forwarded-Proto", "https")
		})
		assert.Contains(t, rec.Header().Get("Strict-Transport-Security"), "max-age=31536000")
	})

	t.Run("production over plain http", func(t *testing.T) {
		rec := runWithHeaders("production", nil)
		assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
	})
}
