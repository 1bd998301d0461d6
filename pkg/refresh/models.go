package refresh

import "time"

// Reason records why a refresh token left the Active state
type Reason string

const (
	// ReasonReplaced marks a token rotated on legitimate use
	ReasonReplaced Reason = "replaced"
	// ReasonRevokedByUser marks an explicit revocation by the token owner
	ReasonRevokedByUser Reason = "revoked-by-user"
	// ReasonRevokedByAdmin marks an explicit revocation by an administrator
	ReasonRevokedByAdmin Reason = "revoked-by-admin"
	// ReasonReuseDetected marks a cascade revocation after an
	// already-rotated or revoked token was presented again
	ReasonReuseDetected Reason = "reuse-detected"
)

// RefreshToken is one node in an account's rotation chain.
//
// A token is Active iff it is neither expired nor revoked. Rotation marks
// the token revoked with ReasonReplaced and points ReplacedByToken at its
// successor; rows are otherwise immutable and only removed by the periodic
// sweep.
type RefreshToken struct {
	Token           string     `json:"token"`
	AccountID       int64      `json:"account_id"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
	CreatedByIP     string     `json:"created_by_ip"`
	RevokedAt       *time.Time `json:"revoked_at,omitempty"`
	RevokedByIP     string     `json:"revoked_by_ip,omitempty"`
	RevokedReason   Reason     `json:"revoked_reason,omitempty"`
	ReplacedByToken string     `json:"replaced_by_token,omitempty"`
}

// IsExpired reports whether the token TTL has elapsed at the given instant
func (t RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsRevoked reports whether the token was revoked or rotated
func (t RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsActive reports whether the token is still usable at the given instant
func (t RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}
