package refresh

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/certportal/authcore/pkg/errors"
	"github.com/certportal/authcore/pkg/utils"
)

const tokenByteLength = 32

// Service maintains per-account chains of refresh tokens: it issues them,
// rotates them on use, detects reuse, revokes chains and expires inactive
// entries.
type Service struct {
	repo      Repository
	ttl       time.Duration
	retention time.Duration
	now       func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithTTL sets the token time to live
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithRetention sets the grace window inactive tokens are kept for before
// the sweep removes them
func WithRetention(retention time.Duration) Option {
	return func(s *Service) {
		s.retention = retention
	}
}

// WithClock sets the time source. Tests use this to control expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new refresh token service
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		ttl:       7 * 24 * time.Hour,
		retention: 2 * 24 * time.Hour,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) newToken(accountID int64, ip string, now time.Time) (RefreshToken, error) {
	tokenStr, err := utils.GenerateSecureToken(tokenByteLength)
	if err != nil {
		return RefreshToken{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to generate refresh token")
	}
	return RefreshToken{
		Token:       tokenStr,
		AccountID:   accountID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
		CreatedByIP: ip,
	}, nil
}

// Issue creates a new Active token appended to the account's chain
func (s *Service) Issue(ctx context.Context, accountID int64, ip string) (RefreshToken, error) {
	token, err := s.newToken(accountID, ip, s.now().UTC())
	if err != nil {
		return RefreshToken{}, err
	}
	if err := s.repo.Create(ctx, token); err != nil {
		return RefreshToken{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to store refresh token")
	}
	return token, nil
}

// Rotate exchanges an Active token for a fresh one.
//
// Presenting a token that is already rotated or revoked is interpreted as
// token reuse: the entire active portion of the owning account's chain is
// revoked before the error is returned. A rotate-or-cascade transition is
// atomic per token, so a stolen-and-replayed refresh token can be used at
// most once before triggering full chain invalidation.
func (s *Service) Rotate(ctx context.Context, presented string, ip string) (RefreshToken, error) {
	now := s.now().UTC()

	current, err := s.repo.Get(ctx, presented)
	if err != nil {
		if stderrors.Is(err, ErrTokenNotFound) {
			return RefreshToken{}, errors.New(errors.ErrCodeTokenNotFound, "invalid refresh token")
		}
		return RefreshToken{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to look up refresh token")
	}

	if current.IsRevoked() {
		return RefreshToken{}, s.cascade(ctx, current, ip, now)
	}
	if current.IsExpired(now) {
		return RefreshToken{}, errors.New(errors.ErrCodeTokenExpired, "refresh token expired")
	}

	replacement, err := s.newToken(current.AccountID, ip, now)
	if err != nil {
		return RefreshToken{}, err
	}

	err = s.repo.Rotate(ctx, presented, replacement, ip, now)
	if err != nil {
		if stderrors.Is(err, ErrTokenInactive) {
			// Lost the compare-and-swap: a concurrent request already
			// rotated or revoked this token. Indistinguishable from
			// replay, so fail closed.
			return RefreshToken{}, s.cascade(ctx, current, ip, now)
		}
		if stderrors.Is(err, ErrTokenNotFound) {
			return RefreshToken{}, errors.New(errors.ErrCodeTokenNotFound, "invalid refresh token")
		}
		return RefreshToken{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to rotate refresh token")
	}

	return replacement, nil
}

// cascade revokes the active remainder of the chain after detected reuse.
// The returned error carries the reuse code for internal handling; callers
// surface it as a generic authentication failure.
func (s *Service) cascade(ctx context.Context, reused RefreshToken, ip string, now time.Time) error {
	revoked, err := s.repo.RevokeAllActive(ctx, reused.AccountID, ip, ReasonReuseDetected, now)
	if err != nil {
		slog.Error("Failed cascade revocation after token reuse", "accountId", reused.AccountID, "err", err)
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to revoke token chain")
	}
	slog.Warn("Refresh token reuse detected, active chain revoked",
		"accountId", reused.AccountID, "revoked", revoked, "ip", ip)
	return errors.New(errors.ErrCodeTokenReuseDetected, "invalid refresh token")
}

// Revoke marks an Active token revoked with the given reason
func (s *Service) Revoke(ctx context.Context, presented string, ip string, reason Reason) error {
	now := s.now().UTC()

	err := s.repo.MarkRevoked(ctx, presented, ip, reason, now)
	if err != nil {
		if stderrors.Is(err, ErrTokenNotFound) {
			return errors.New(errors.ErrCodeTokenNotFound, "invalid refresh token")
		}
		if stderrors.Is(err, ErrTokenInactive) {
			return errors.New(errors.ErrCodeTokenInactive, "refresh token is not active")
		}
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to revoke refresh token")
	}
	return nil
}

// RevokeAllForAccount revokes every Active token of the account
func (s *Service) RevokeAllForAccount(ctx context.Context, accountID int64, ip string, reason Reason) (int64, error) {
	return s.repo.RevokeAllActive(ctx, accountID, ip, reason, s.now().UTC())
}

// OwnsToken reports whether the token exists anywhere, in any state, in
// the account's chain. Principals may only revoke tokens they own unless
// they hold the Admin role.
func (s *Service) OwnsToken(ctx context.Context, accountID int64, token string) (bool, error) {
	return s.repo.ExistsForAccount(ctx, accountID, token)
}

// Get returns the ledger entry for a token string
func (s *Service) Get(ctx context.Context, token string) (RefreshToken, error) {
	t, err := s.repo.Get(ctx, token)
	if err != nil {
		if stderrors.Is(err, ErrTokenNotFound) {
			return RefreshToken{}, errors.New(errors.ErrCodeTokenNotFound, "invalid refresh token")
		}
		return RefreshToken{}, err
	}
	return t, nil
}

// Chain returns the account's full token chain ordered by creation time
func (s *Service) Chain(ctx context.Context, accountID int64) ([]RefreshToken, error) {
	return s.repo.FindByAccount(ctx, accountID)
}

// TTL returns the configured token time to live; the cookie expiry
// ceiling matches it.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// SweepExpired removes tokens that expired more than the retention window
// before now. Operational hygiene; safe to run concurrently with live
// rotations because rotation never touches expired rows.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	deleted, err := s.repo.DeleteExpiredBefore(ctx, now.Add(-s.retention))
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		slog.Info("Swept expired refresh tokens", "deleted", deleted)
	}
	return deleted, nil
}
