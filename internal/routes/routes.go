package routes

import (
	"net/http"

	"gatehouse/internal/auth"
	"gatehouse/internal/handlers"
	"gatehouse/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	accessHandler *handlers.AccessHandler,
	adminHandler *handlers.AdminHandler,
	tokenManager *auth.TokenManager,
) {
	loginLimit := middleware.RateLimitByIP(middleware.DefaultLoginRateLimit())
	adminLimit := middleware.RateLimitByIP(middleware.DefaultAdminRateLimit())

	// Public routes. The admin panel logs in through the reserved code
	// "admin"; the gateway branches on it internally.
	router.With(loginLimit).Post("/access/{code}/login", accessHandler.Login)
	router.Post("/access/{code}/logout", accessHandler.Logout)

	// Session check for site resources
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireSite(tokenManager, func(r *http.Request) string {
			return chi.URLParam(r, "code")
		}))
		r.Get("/access/{code}/session", accessHandler.Session)
	})

	// Admin surface, behind the admin session cookie
	router.Group(func(r chi.Router) {
		r.Use(adminLimit)
		r.Use(auth.RequireAdmin(tokenManager))

		r.Get("/admin/session", accessHandler.Session)

		r.Post("/admin/credentials", adminHandler.CreateCredential)
		r.Get("/admin/credentials", adminHandler.ListCredentials)
		r.Delete("/admin/credentials/{id}", adminHandler.RevokeCredential)
		r.Post("/admin/credentials/cleanup", adminHandler.CleanupCredentials)

		r.Get("/admin/attempts", adminHandler.ListAttempts)

		r.Put("/admin/password", adminHandler.ChangePassword)

		r.Get("/admin/blocklist", adminHandler.GetBlocklist)
		r.Post("/admin/blocklist", adminHandler.BlockIP)
		r.Delete("/admin/blocklist", adminHandler.UnblockIP)
	})
}
