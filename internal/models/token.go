package models

import "github.com/golang-jwt/jwt/v5"

// Token scopes. Admin tokens and site tokens are signed with distinct
// secrets, so a token minted for one scope can never validate in the other.
const (
	TokenScopeAdmin = "admin"
	TokenScopeSite  = "site"
)

// TokenClaims is the signed payload of a session token. The expiry lives
// inside the payload (RegisteredClaims.ExpiresAt), so token lifetime cannot
// be extended by re-issuing the cookie.
type TokenClaims struct {
	Scope        string `json:"scope"`
	ResourceCode string `json:"resource_code"`
	AttemptID    string `json:"attempt_id"`
	CredentialID string `json:"credential_id,omitempty"`
	jwt.RegisteredClaims
}
