// Package refresh implements the refresh token ledger: per-account
// rotation chains of long-lived opaque tokens.
//
// State machine per token:
//
//	Active -> Rotated   (legitimate use; successor token created atomically)
//	Active -> Revoked   (explicit revoke, or cascade after detected reuse)
//	Active -> Expired   (TTL elapsed, detected lazily)
//
// All three terminal states are final. Presenting a token that already
// left the Active state is treated as reuse — a security incident — and
// revokes the active remainder of the owning account's chain before the
// caller sees a generic authentication failure.
//
// Rotation and reuse detection are atomic per token: repositories
// implement the transition as a compare-and-swap keyed on the token still
// being Active, so exactly one of any set of concurrent duplicate requests
// wins. Different accounts' chains are independent.
package refresh
