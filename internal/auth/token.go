package auth

import (
	"fmt"
	"time"

	"gatehouse/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager mints and validates session tokens. Admin and site tokens are
// signed with distinct secrets, so neither can be replayed against the other
// surface. Expiry is embedded in the signed claims: a client re-issuing the
// cookie cannot extend a token's lifetime.
type TokenManager struct {
	adminSecret string
	siteSecret  string
	adminExpiry time.Duration
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(adminSecret, siteSecret string, adminExpiry time.Duration) *TokenManager {
	return &TokenManager{
		adminSecret: adminSecret,
		siteSecret:  siteSecret,
		adminExpiry: adminExpiry,
	}
}

// IssueAdminToken creates an admin session token with the fixed admin expiry,
// bound to the ledger attempt that authenticated it.
func (tm *TokenManager) IssueAdminToken(attemptID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(tm.adminExpiry).Truncate(time.Second)

	claims := &models.TokenClaims{
		Scope:        models.TokenScopeAdmin,
		ResourceCode: models.ResourceAdmin,
		AttemptID:    attemptID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(tm.adminSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign admin token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// IssueSiteToken creates a site session token whose expiry equals the
// consumed credential's expiry, truncated to whole seconds.
func (tm *TokenManager) IssueSiteToken(attemptID, credentialID, resourceCode string, expiresAt time.Time) (string, time.Time, error) {
	now := time.Now()
	expiresAt = expiresAt.Truncate(time.Second)

	claims := &models.TokenClaims{
		Scope:        models.TokenScopeSite,
		ResourceCode: resourceCode,
		AttemptID:    attemptID,
		CredentialID: credentialID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(tm.siteSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign site token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateAdminToken verifies an admin session token.
func (tm *TokenManager) ValidateAdminToken(tokenString string) (*models.TokenClaims, error) {
	claims, err := tm.parse(tokenString, tm.adminSecret)
	if err != nil {
		return nil, err
	}

	if claims.Scope != models.TokenScopeAdmin {
		return nil, models.ErrUnauthorized
	}

	return claims, nil
}

// ValidateSiteToken verifies a site session token for a specific resource
// code. A valid token for one site does not open another.
func (tm *TokenManager) ValidateSiteToken(tokenString, resourceCode string) (*models.TokenClaims, error) {
	claims, err := tm.parse(tokenString, tm.siteSecret)
	if err != nil {
		return nil, err
	}

	if claims.Scope != models.TokenScopeSite || claims.ResourceCode != resourceCode {
		return nil, models.ErrUnauthorized
	}

	return claims, nil
}

func (tm *TokenManager) parse(tokenString, secret string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.AttemptID == "" {
		return nil, fmt.Errorf("invalid token: missing attempt binding")
	}

	return claims, nil
}
