package auth

import (
	"net/http"
	"time"

	"gatehouse/internal/models"
)

// AdminCookieName is the fixed cookie holding the admin session token. Site
// logins use a cookie named per resource code instead.
const AdminCookieName = "admin_access_token"

// CookieConfig holds cookie configuration settings
type CookieConfig struct {
	Domain string // Empty string = current host only
	Secure bool   // HTTPS only
}

// AccessCookieName returns the cookie name for a resource code.
func AccessCookieName(resourceCode string) string {
	if resourceCode == models.ResourceAdmin {
		return AdminCookieName
	}
	return resourceCode + "_access_token"
}

// SetAccessCookie binds a session token to the resource's cookie. The cookie
// is httpOnly and SameSite=Lax; maxAge is the remaining token lifetime in
// seconds, floored at 1 so the cookie is never accidentally a session cookie.
func SetAccessCookie(w http.ResponseWriter, resourceCode, token string, expiresAt time.Time, config CookieConfig) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}

	cookie := &http.Cookie{
		Name:     AccessCookieName(resourceCode),
		Value:    token,
		Path:     "/",
		Domain:   config.Domain,
		Expires:  expiresAt,
		MaxAge:   maxAge,
		HttpOnly: true, // Critical: prevents JavaScript access (XSS protection)
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, cookie)
}

// ClearAccessCookie clears the session cookie for a resource code.
func ClearAccessCookie(w http.ResponseWriter, resourceCode string, config CookieConfig) {
	cookie := &http.Cookie{
		Name:     AccessCookieName(resourceCode),
		Value:    "",
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   -1, // Negative MaxAge deletes the cookie
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, cookie)
}

// GetAccessCookie retrieves the session token for a resource code.
func GetAccessCookie(r *http.Request, resourceCode string) (string, error) {
	cookie, err := r.Cookie(AccessCookieName(resourceCode))
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}
