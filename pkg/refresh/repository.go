package refresh

import (
	"context"
	"errors"
	"time"
)

// Common repository errors
var (
	ErrTokenNotFound = errors.New("refresh token not found")
	// ErrTokenInactive is returned when a state transition loses the
	// compare-and-swap: the token already left the Active state.
	ErrTokenInactive = errors.New("refresh token is not active")
)

// Repository defines the interface for refresh token persistence.
//
// Rotate and MarkRevoked are compare-and-swap operations: they must
// transition a token out of Active exactly once, failing with
// ErrTokenInactive when a concurrent request got there first. Rotate
// additionally creates the replacement token in the same atomic step so a
// rotation is never half-applied.
type Repository interface {
	Create(ctx context.Context, token RefreshToken) error
	Get(ctx context.Context, token string) (RefreshToken, error)

	// Rotate atomically marks the presented token replaced and inserts
	// its replacement. Fails with ErrTokenNotFound or ErrTokenInactive.
	Rotate(ctx context.Context, presented string, replacement RefreshToken, ip string, now time.Time) error

	// MarkRevoked revokes an Active token. Fails with ErrTokenNotFound
	// or ErrTokenInactive.
	MarkRevoked(ctx context.Context, token string, ip string, reason Reason, now time.Time) error

	// RevokeAllActive revokes every Active token of the account and
	// returns how many were revoked. Used for cascade revocation.
	RevokeAllActive(ctx context.Context, accountID int64, ip string, reason Reason, now time.Time) (int64, error)

	// ExistsForAccount reports whether the token appears anywhere in the
	// account's chain, in any state.
	ExistsForAccount(ctx context.Context, accountID int64, token string) (bool, error)

	FindByAccount(ctx context.Context, accountID int64) ([]RefreshToken, error)

	// DeleteExpiredBefore removes tokens whose expiry is older than the
	// cutoff and returns how many were deleted.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
