package models

import "time"

// Failure reasons recorded on a login attempt. This is a closed set: the
// lockout policy classifies attempts by these exact values, so new reasons
// must be added here and nowhere else.
const (
	ReasonAddressResolutionFailed = "address-resolution-failed"
	ReasonInvalidAdminCredential  = "invalid-admin-credential"
	ReasonBlockedIP               = "blocked-ip"
	ReasonNoMatchingResourceCode  = "no-matching-resource-code"
	ReasonInvalidCredentialHash   = "invalid-credential-hash"
	ReasonCredentialExpired       = "credential-expired"
	ReasonCredentialExhausted     = "credential-usage-exhausted"
	ReasonInternalError           = "internal-error"
)

// ResourceAdmin is the resource code of the administrative panel. Every other
// resource code names a site with its own credential pool.
const ResourceAdmin = "admin"

// StrictFailureReason returns the canonical invalid-credential reason for a
// resource. Failures with this reason count toward the strict lockout
// threshold; all other failures count toward the loose one.
func StrictFailureReason(resourceCode string) string {
	if resourceCode == ResourceAdmin {
		return ReasonInvalidAdminCredential
	}
	return ReasonInvalidCredentialHash
}

// LoginAttempt is one row of the attempt ledger. Rows are append-only and
// mutated at most once, to attach the issued token after a success.
type LoginAttempt struct {
	ID               string     `db:"id"`
	OriginAddress    string     `db:"origin_address"`
	UserAgent        string     `db:"user_agent"`
	ResourceCode     string     `db:"resource_code"`
	Succeeded        bool       `db:"succeeded"`
	OccurredAt       time.Time  `db:"occurred_at"`
	IsAdministrator  bool       `db:"is_administrator"`
	FailureReason    *string    `db:"failure_reason"`
	ResolvedLocation string     `db:"resolved_location"`
	IssuedToken      *string    `db:"issued_token"`
	TokenExpiresAt   *time.Time `db:"token_expires_at"`
}

// AttemptFilter narrows ledger queries. Zero values mean "no constraint"
// except FailedOnly, which is explicit.
type AttemptFilter struct {
	OriginAddress string
	ResourceCode  string
	FailedOnly    bool
	Since         time.Time
}
