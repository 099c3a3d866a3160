package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"gatehouse/internal/middleware"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitByIP(t *testing.T) {
	limited := middleware.RateLimitByIP(middleware.RateLimitConfig{RequestsPerMinute: 3})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/access/gallery/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, send("203.0.113.7:51000"))
	}
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.7:51000"))

	// A different origin is not affected
	assert.Equal(t, http.StatusOK, send("198.51.100.4:51000"))
}
