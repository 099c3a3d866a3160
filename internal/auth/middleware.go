package auth

import (
	"context"
	"net/http"

	"gatehouse/internal/models"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// ClaimsContextKey is the key for storing token claims in context
	ClaimsContextKey contextKey = "claims"
)

// RequireAdmin validates the admin session cookie and injects its claims into
// the request context. The admin surface is cookie-only; there is no bearer
// header fallback.
func RequireAdmin(tm *TokenManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := GetAccessCookie(r, models.ResourceAdmin)
			if err != nil || tokenString == "" {
				http.Error(w, "missing admin session", http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateAdminToken(tokenString)
			if err != nil {
				http.Error(w, "invalid or expired session", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSite validates the site session cookie for the resource code named
// by the resolver func (usually a chi URL parameter).
func RequireSite(tm *TokenManager, resourceCode func(r *http.Request) string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := resourceCode(r)
			if code == "" || code == models.ResourceAdmin {
				http.Error(w, "unknown resource", http.StatusNotFound)
				return
			}

			tokenString, err := GetAccessCookie(r, code)
			if err != nil || tokenString == "" {
				http.Error(w, "missing session", http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateSiteToken(tokenString, code)
			if err != nil {
				http.Error(w, "invalid or expired session", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaimsFromContext extracts token claims from request context
func GetClaimsFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(ClaimsContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}
