package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"gatehouse/internal/auth"
	"gatehouse/internal/models"
	"gatehouse/internal/services"
	pkghttp "gatehouse/pkg/http"

	"github.com/go-chi/chi/v5"
)

// CredentialManager defines the credential lifecycle operations the admin
// surface exposes
type CredentialManager interface {
	Generate(ctx context.Context, input services.GenerateCredentialInput) (*models.Credential, string, error)
	List(ctx context.Context, resourceCode string) ([]*models.Credential, error)
	Revoke(ctx context.Context, id string) error
	CleanupExpired(ctx context.Context) (int64, error)
}

// AdminManager defines the admin settings operations
type AdminManager interface {
	ChangePassword(ctx context.Context, origin, currentPassword, newPassword string) error
	BlockIP(ctx context.Context, origin, ip string) error
	UnblockIP(ctx context.Context, origin, ip string) error
	Blocklist(ctx context.Context) ([]string, error)
}

// AttemptReader lists ledger rows for the admin panel
type AttemptReader interface {
	ListRecent(ctx context.Context, filter models.AttemptFilter, limit int) ([]*models.LoginAttempt, error)
}

// AdminHandler handles the authenticated admin surface: credential
// management, the attempt ledger and the blocklist.
type AdminHandler struct {
	credentials  CredentialManager
	admin        AdminManager
	attempts     AttemptReader
	ipConfig     *pkghttp.IPConfig
	cookieConfig auth.CookieConfig
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(credentials CredentialManager, admin AdminManager, attempts AttemptReader, ipConfig *pkghttp.IPConfig, cookieConfig auth.CookieConfig) *AdminHandler {
	return &AdminHandler{
		credentials:  credentials,
		admin:        admin,
		attempts:     attempts,
		ipConfig:     ipConfig,
		cookieConfig: cookieConfig,
	}
}

// Request/response DTOs

// CreateCredentialRequest represents the request body for minting a credential
type CreateCredentialRequest struct {
	ResourceCode     string `json:"resource_code" validate:"required,resource_code"`
	Length           int    `json:"length" validate:"required,gte=4,lte=128"`
	AllowedUses      int    `json:"allowed_uses" validate:"gte=0"`
	ExpiresInDays    int    `json:"expires_in_days" validate:"required,gte=1,lte=365"`
	IncludeUppercase bool   `json:"include_uppercase"`
	IncludeLowercase bool   `json:"include_lowercase"`
	IncludeSpecial   bool   `json:"include_special"`
}

// CredentialResponse is a credential without its secret hash
type CredentialResponse struct {
	ID            string     `json:"id"`
	ResourceCode  string     `json:"resource_code"`
	Length        int        `json:"length"`
	AllowedUses   *int       `json:"allowed_uses"`
	UsesConsumed  int        `json:"uses_consumed"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	DeviceAddress *string    `json:"device_address,omitempty"`
}

// CreateCredentialResponse carries the plaintext secret exactly once, at
// creation time. It is not retrievable afterwards.
type CreateCredentialResponse struct {
	Credential CredentialResponse `json:"credential"`
	Secret     string             `json:"secret"`
}

func toCredentialResponse(cred *models.Credential) CredentialResponse {
	return CredentialResponse{
		ID:            cred.ID,
		ResourceCode:  cred.ResourceCode,
		Length:        cred.Length,
		AllowedUses:   cred.AllowedUses,
		UsesConsumed:  cred.UsesConsumed,
		CreatedAt:     cred.CreatedAt,
		ExpiresAt:     cred.ExpiresAt,
		DeviceAddress: cred.DeviceAddress,
	}
}

// CreateCredential mints a new site credential
func (h *AdminHandler) CreateCredential(w http.ResponseWriter, r *http.Request) {
	var req CreateCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	cred, secret, err := h.credentials.Generate(r.Context(), services.GenerateCredentialInput{
		ResourceCode:     req.ResourceCode,
		Length:           req.Length,
		AllowedUses:      req.AllowedUses,
		ExpiresInDays:    req.ExpiresInDays,
		IncludeUppercase: req.IncludeUppercase,
		IncludeLowercase: req.IncludeLowercase,
		IncludeSpecial:   req.IncludeSpecial,
	})
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, err.Error())
			return
		}
		pkghttp.WriteInternalError(w, "Failed to create credential")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(CreateCredentialResponse{
		Credential: toCredentialResponse(cred),
		Secret:     secret,
	})
}

// ListCredentials lists credentials for one resource code, spent and expired
// included
func (h *AdminHandler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("resource_code")
	if !ValidResourceCode(code) {
		pkghttp.WriteBadRequest(w, "A valid resource_code query parameter is required")
		return
	}

	creds, err := h.credentials.List(r.Context(), code)
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to list credentials")
		return
	}

	out := make([]CredentialResponse, 0, len(creds))
	for _, cred := range creds {
		out = append(out, toCredentialResponse(cred))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(out)
}

// RevokeCredential deletes a credential outright
func (h *AdminHandler) RevokeCredential(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "Credential id is required")
		return
	}

	if err := h.credentials.Revoke(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Credential not found")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to revoke credential")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CleanupResponse reports how many expired credentials were removed
type CleanupResponse struct {
	Removed int64 `json:"removed"`
}

// CleanupCredentials removes expired credentials on demand. The background
// janitor runs the same operation on a schedule.
func (h *AdminHandler) CleanupCredentials(w http.ResponseWriter, r *http.Request) {
	removed, err := h.credentials.CleanupExpired(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to clean up credentials")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(CleanupResponse{Removed: removed})
}

// AttemptResponse is one ledger row. Issued tokens are not echoed back.
type AttemptResponse struct {
	ID               string     `json:"id"`
	OriginAddress    string     `json:"origin_address"`
	UserAgent        string     `json:"user_agent"`
	ResourceCode     string     `json:"resource_code"`
	Succeeded        bool       `json:"succeeded"`
	OccurredAt       time.Time  `json:"occurred_at"`
	IsAdministrator  bool       `json:"is_administrator"`
	FailureReason    *string    `json:"failure_reason,omitempty"`
	ResolvedLocation string     `json:"resolved_location"`
	TokenExpiresAt   *time.Time `json:"token_expires_at,omitempty"`
}

// ListAttempts returns recent ledger rows, optionally filtered by origin,
// resource code and outcome
func (h *AdminHandler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := models.AttemptFilter{
		OriginAddress: q.Get("origin"),
		ResourceCode:  q.Get("resource_code"),
		FailedOnly:    q.Get("failed") == "true",
	}

	if since := q.Get("since"); since != "" {
		parsed, err := time.Parse(time.RFC3339, since)
		if err != nil {
			pkghttp.WriteBadRequest(w, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = parsed
	}

	limit := 100
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 1000 {
			pkghttp.WriteBadRequest(w, "limit must be between 1 and 1000")
			return
		}
		limit = parsed
	}

	attempts, err := h.attempts.ListRecent(r.Context(), filter, limit)
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to list attempts")
		return
	}

	out := make([]AttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, AttemptResponse{
			ID:               a.ID,
			OriginAddress:    a.OriginAddress,
			UserAgent:        a.UserAgent,
			ResourceCode:     a.ResourceCode,
			Succeeded:        a.Succeeded,
			OccurredAt:       a.OccurredAt,
			IsAdministrator:  a.IsAdministrator,
			FailureReason:    a.FailureReason,
			ResolvedLocation: a.ResolvedLocation,
			TokenExpiresAt:   a.TokenExpiresAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(out)
}

// ChangePasswordRequest represents the request body for an admin password
// change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=12,max=128"`
}

// ChangePassword rotates the admin password after re-verifying the current one
func (h *AdminHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	origin, _ := pkghttp.ResolveOrigin(r, h.ipConfig)

	err := h.admin.ChangePassword(r.Context(), origin, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "Current password is incorrect")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, err.Error())
		default:
			pkghttp.WriteInternalError(w, "Failed to change password")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BlocklistRequest represents the request body for blocklist changes
type BlocklistRequest struct {
	IP string `json:"ip" validate:"required,ip"`
}

// BlocklistResponse lists the blocked origin addresses
type BlocklistResponse struct {
	BlockedIPs []string `json:"blocked_ips"`
}

// GetBlocklist returns the blocked origin addresses
func (h *AdminHandler) GetBlocklist(w http.ResponseWriter, r *http.Request) {
	blocked, err := h.admin.Blocklist(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to load blocklist")
		return
	}
	if blocked == nil {
		blocked = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(BlocklistResponse{BlockedIPs: blocked})
}

// BlockIP adds an origin address to the blocklist
func (h *AdminHandler) BlockIP(w http.ResponseWriter, r *http.Request) {
	var req BlocklistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	origin, _ := pkghttp.ResolveOrigin(r, h.ipConfig)

	if err := h.admin.BlockIP(r.Context(), origin, req.IP); err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, err.Error())
			return
		}
		pkghttp.WriteInternalError(w, "Failed to block address")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnblockIP removes an origin address from the blocklist
func (h *AdminHandler) UnblockIP(w http.ResponseWriter, r *http.Request) {
	var req BlocklistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	origin, _ := pkghttp.ResolveOrigin(r, h.ipConfig)

	if err := h.admin.UnblockIP(r.Context(), origin, req.IP); err != nil {
		pkghttp.WriteInternalError(w, "Failed to unblock address")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
