package verification

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/certportal/authcore/pkg/account"
	"github.com/certportal/authcore/pkg/errors"
	"github.com/certportal/authcore/pkg/password"
	"github.com/certportal/authcore/pkg/utils"
)

const tokenByteLength = 32

// Service manages the single-use tokens embedded on accounts: the email
// verification token and the expiring password reset token.
type Service struct {
	repo        account.Repository
	hasher      password.Hasher
	policy      *password.Policy
	resetWindow time.Duration
	now         func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithResetWindow sets how long a reset token stays valid
func WithResetWindow(window time.Duration) Option {
	return func(s *Service) {
		s.resetWindow = window
	}
}

// WithPolicy sets the password complexity policy applied on reset
func WithPolicy(policy *password.Policy) Option {
	return func(s *Service) {
		s.policy = policy
	}
}

// WithHasher sets the hasher used to store the new password on reset
func WithHasher(hasher password.Hasher) Option {
	return func(s *Service) {
		s.hasher = hasher
	}
}

// WithClock sets the time source. Tests use this to control the reset
// window.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a verification service over the account store
func NewService(repo account.Repository, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		hasher:      password.NewArgon2Hasher(),
		policy:      password.DefaultPolicy(),
		resetWindow: 24 * time.Hour,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResetWindow returns the configured reset token validity window
func (s *Service) ResetWindow() time.Duration {
	return s.resetWindow
}

// IssueVerification stores a fresh verification token on the account and
// returns it. Issuing for an already verified account fails with
// ErrCodeAlreadyVerified.
func (s *Service) IssueVerification(ctx context.Context, accountID int64) (string, error) {
	acct, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if stderrors.Is(err, account.ErrAccountNotFound) {
			return "", errors.NotFound("account", fmt.Sprint(accountID))
		}
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to load account")
	}
	if acct.IsVerified() {
		return "", errors.New(errors.ErrCodeAlreadyVerified, "account is already verified")
	}

	token, err := utils.GenerateSecureToken(tokenByteLength)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to generate verification token")
	}

	acct.VerificationToken = token
	if _, err := s.repo.Update(ctx, acct); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to store verification token")
	}
	return token, nil
}

// RedeemVerification marks the account holding the token as verified and
// clears the token so it cannot be redeemed twice.
func (s *Service) RedeemVerification(ctx context.Context, token string) (account.Account, error) {
	acct, err := s.repo.FindByVerificationToken(ctx, token)
	if err != nil {
		if stderrors.Is(err, account.ErrAccountNotFound) {
			return account.Account{}, errors.New(errors.ErrCodeTokenNotFound, "verification failed")
		}
		return account.Account{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to look up verification token")
	}

	now := s.now().UTC()
	acct.VerifiedAt = &now
	acct.VerificationToken = ""

	updated, err := s.repo.Update(ctx, acct)
	if err != nil {
		return account.Account{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to mark account verified")
	}
	slog.Info("Email verified", "accountId", updated.ID)
	return updated, nil
}

// IssueReset stores a fresh reset token on the account registered under the
// email and returns both. Unknown emails yield ErrCodeNotFound; callers of
// the forgot-password flow swallow it so responses never reveal whether an
// email is registered.
func (s *Service) IssueReset(ctx context.Context, email string) (account.Account, string, error) {
	acct, err := s.repo.FindByEmail(ctx, account.NormalizeEmail(email))
	if err != nil {
		if stderrors.Is(err, account.ErrAccountNotFound) {
			return account.Account{}, "", errors.NotFound("account", account.NormalizeEmail(email))
		}
		return account.Account{}, "", errors.Wrap(err, errors.ErrCodeInternal, "failed to look up account")
	}

	token, err := utils.GenerateSecureToken(tokenByteLength)
	if err != nil {
		return account.Account{}, "", errors.Wrap(err, errors.ErrCodeInternal, "failed to generate reset token")
	}

	expiresAt := s.now().UTC().Add(s.resetWindow)
	acct.ResetToken = token
	acct.ResetTokenExpiresAt = &expiresAt

	updated, err := s.repo.Update(ctx, acct)
	if err != nil {
		return account.Account{}, "", errors.Wrap(err, errors.ErrCodeInternal, "failed to store reset token")
	}
	return updated, token, nil
}

// ValidateReset returns the account holding an unexpired reset token.
// Unknown tokens fail with ErrCodeInvalidResetToken, expired ones with
// ErrCodeTokenExpired.
func (s *Service) ValidateReset(ctx context.Context, token string) (account.Account, error) {
	acct, err := s.repo.FindByResetToken(ctx, token)
	if err != nil {
		if stderrors.Is(err, account.ErrAccountNotFound) {
			return account.Account{}, errors.New(errors.ErrCodeInvalidResetToken, "invalid reset token")
		}
		return account.Account{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to look up reset token")
	}
	if acct.ResetTokenExpiresAt == nil || !acct.ResetTokenExpiresAt.After(s.now().UTC()) {
		return account.Account{}, errors.New(errors.ErrCodeTokenExpired, "reset token expired")
	}
	return acct, nil
}

// RedeemReset replaces the account's password with the given one. The new
// password must satisfy the complexity policy. Redeeming clears the reset
// token and stamps the reset time, which also counts as verification.
func (s *Service) RedeemReset(ctx context.Context, token, newPassword string) (account.Account, error) {
	acct, err := s.ValidateReset(ctx, token)
	if err != nil {
		return account.Account{}, err
	}

	if err := s.policy.Check(newPassword); err != nil {
		return account.Account{}, err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return account.Account{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to hash password")
	}

	now := s.now().UTC()
	acct.PasswordHash = hash
	acct.PasswordResetAt = &now
	acct.ResetToken = ""
	acct.ResetTokenExpiresAt = nil

	updated, err := s.repo.Update(ctx, acct)
	if err != nil {
		return account.Account{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to update password")
	}
	slog.Info("Password reset completed", "accountId", updated.ID)
	return updated, nil
}
