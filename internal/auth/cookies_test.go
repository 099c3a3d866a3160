package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessCookieName(t *testing.T) {
	assert.Equal(t, "gallery_access_token", AccessCookieName("gallery"))
	assert.Equal(t, AdminCookieName, AccessCookieName("admin"))
}

func TestSetAccessCookie(t *testing.T) {
	w := httptest.NewRecorder()
	expiresAt := time.Now().Add(2 * time.Hour)

	SetAccessCookie(w, "gallery", "token-value", expiresAt, CookieConfig{Secure: true})

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	c := cookies[0]
	assert.Equal(t, "gallery_access_token", c.Name)
	assert.Equal(t, "token-value", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.InDelta(t, 2*60*60, c.MaxAge, 5)
}

func TestSetAccessCookie_MaxAgeFloor(t *testing.T) {
	w := httptest.NewRecorder()

	// Token on the edge of expiry still produces a positive MaxAge
	SetAccessCookie(w, "gallery", "token-value", time.Now(), CookieConfig{})

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, 1, cookies[0].MaxAge)
}

func TestClearAccessCookie(t *testing.T) {
	w := httptest.NewRecorder()

	ClearAccessCookie(w, "gallery", CookieConfig{})

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "gallery_access_token", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}
