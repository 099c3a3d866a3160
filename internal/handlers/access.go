package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"gatehouse/internal/auth"
	"gatehouse/internal/models"
	"gatehouse/internal/services"
	pkghttp "gatehouse/pkg/http"

	"github.com/go-chi/chi/v5"
)

// Authenticator runs the login flow
type Authenticator interface {
	Authenticate(ctx context.Context, req services.AccessRequest) services.AuthOutcome
}

// AccessHandler handles login, logout and session checks for both site
// resources and the admin panel.
type AccessHandler struct {
	gateway      Authenticator
	ipConfig     *pkghttp.IPConfig
	cookieConfig auth.CookieConfig
}

// NewAccessHandler creates a new AccessHandler
func NewAccessHandler(gateway Authenticator, ipConfig *pkghttp.IPConfig, cookieConfig auth.CookieConfig) *AccessHandler {
	return &AccessHandler{
		gateway:      gateway,
		ipConfig:     ipConfig,
		cookieConfig: cookieConfig,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Password string `json:"password" validate:"required,max=128"`
}

// LoginResponse represents a successful login
type LoginResponse struct {
	ResourceCode string    `json:"resource_code"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Login handles a login attempt against a resource code. The admin panel
// logs in through the reserved code "admin" on the same route.
func (h *AccessHandler) Login(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if !ValidResourceCode(code) {
		pkghttp.WriteNotFound(w, "Unknown resource")
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	accessReq := services.AccessRequest{
		ResourceCode: code,
		Secret:       req.Password,
		UserAgent:    r.Header.Get("User-Agent"),
	}

	origin, err := pkghttp.ResolveOrigin(r, h.ipConfig)
	if err != nil {
		accessReq.OriginUnresolved = true
	} else {
		accessReq.OriginAddress = origin
	}

	outcome := h.gateway.Authenticate(r.Context(), accessReq)

	switch o := outcome.(type) {
	case services.AuthSuccess:
		auth.SetAccessCookie(w, code, o.Token, o.ExpiresAt, h.cookieConfig)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(LoginResponse{ResourceCode: code, ExpiresAt: o.ExpiresAt})

	case services.AuthDenied:
		if o.LockedUntil != nil {
			seconds := int(time.Until(*o.LockedUntil).Seconds())
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
		}
		pkghttp.WriteTooManyRequests(w, o.Message)

	case services.AuthFailed:
		if o.Reason == models.ReasonInternalError {
			pkghttp.WriteInternalError(w, o.Message)
			return
		}
		pkghttp.WriteUnauthorized(w, o.Message)

	default:
		pkghttp.WriteInternalError(w, "Something went wrong. Please try again.")
	}
}

// Logout clears the session cookie for a resource code. It succeeds whether
// or not a session existed.
func (h *AccessHandler) Logout(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if !ValidResourceCode(code) {
		pkghttp.WriteNotFound(w, "Unknown resource")
		return
	}

	auth.ClearAccessCookie(w, code, h.cookieConfig)
	w.WriteHeader(http.StatusNoContent)
}

// SessionResponse represents the state of an authenticated session
type SessionResponse struct {
	ResourceCode string    `json:"resource_code"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Session reports the current session for a resource code. It runs behind the
// session middleware, so reaching it means the cookie validated.
func (h *AccessHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Missing session")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(SessionResponse{
		ResourceCode: claims.ResourceCode,
		ExpiresAt:    claims.ExpiresAt.Time,
	})
}
