package models

import "time"

// Credential is a temporary, possibly multi-use password for one site
// resource code. AllowedUses of nil means unlimited. The plaintext secret is
// never stored; only the bcrypt hash survives creation.
type Credential struct {
	ID            string     `db:"id"`
	ResourceCode  string     `db:"resource_code"`
	SecretHash    string     `db:"secret_hash"`
	Length        int        `db:"length"`
	AllowedUses   *int       `db:"allowed_uses"`
	UsesConsumed  int        `db:"uses_consumed"`
	CreatedAt     time.Time  `db:"created_at"`
	ExpiresAt     time.Time  `db:"expires_at"`
	LastAttemptID *string    `db:"last_attempt_id"`
	DeviceAddress *string    `db:"device_address"`
}

// Usable reports whether the credential may still authenticate at the given
// instant: not expired and not over its usage cap. Expired credentials stay
// unusable forever even if cleanup has not removed them yet.
func (c *Credential) Usable(now time.Time) bool {
	if !now.Before(c.ExpiresAt) {
		return false
	}
	if c.AllowedUses != nil && c.UsesConsumed >= *c.AllowedUses {
		return false
	}
	return true
}

// AdminSettings is the singleton admin credential: a long-lived password hash
// plus a blocklist of origin addresses. It carries no expiry or usage-count
// semantics and changes only through the explicit change-password and
// blocklist operations.
type AdminSettings struct {
	ID           string    `db:"id"`
	PasswordHash string    `db:"password_hash"`
	BlockedIPs   []string  `db:"blocked_ips"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Blocked reports whether the origin address is on the admin blocklist.
func (a *AdminSettings) Blocked(originAddress string) bool {
	for _, ip := range a.BlockedIPs {
		if ip == originAddress {
			return true
		}
	}
	return false
}
