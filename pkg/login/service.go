package login

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/certportal/authcore/pkg/account"
	"github.com/certportal/authcore/pkg/errors"
	"github.com/certportal/authcore/pkg/notification"
	"github.com/certportal/authcore/pkg/password"
	"github.com/certportal/authcore/pkg/refresh"
	"github.com/certportal/authcore/pkg/tokengen"
	"github.com/certportal/authcore/pkg/verification"
)

// LoginService orchestrates the authentication flows: registration, login,
// token refresh and revocation, email verification and password reset.
//
// It composes the account store, the refresh token ledger and the
// verification token service; it holds no state of its own.
type LoginService struct {
	accounts     *account.Service
	verification *verification.Service
	refresh      *refresh.Service
	tokenGen     tokengen.TokenGenerator
	policy       *password.Policy
	hasher       password.Hasher
	notifier     notification.Notifier
	accessTTL    time.Duration
	baseURL      string
}

// NewLoginService creates a new login service
func NewLoginService(
	accounts *account.Service,
	verificationSvc *verification.Service,
	refreshSvc *refresh.Service,
	tokenGen tokengen.TokenGenerator,
	policy *password.Policy,
	notifier notification.Notifier,
	accessTTL time.Duration,
	baseURL string,
) *LoginService {
	return &LoginService{
		accounts:     accounts,
		verification: verificationSvc,
		refresh:      refreshSvc,
		tokenGen:     tokenGen,
		policy:       policy,
		hasher:       password.NewArgon2Hasher(),
		notifier:     notifier,
		accessTTL:    accessTTL,
		baseURL:      baseURL,
	}
}

// Register creates an unverified account and emails its verification token.
//
// Registering an email that is already taken succeeds from the caller's
// point of view: the existing holder gets an already-registered notice
// instead, so responses never reveal whether an email is registered. The
// first account ever created becomes the Admin; everyone after that starts
// as a Student.
func (s *LoginService) Register(ctx context.Context, params RegisterParams) error {
	if !params.AcceptTerms {
		return errors.New(errors.ErrCodeValidationFailed, "terms must be accepted")
	}
	email := account.NormalizeEmail(params.Email)
	if email == "" {
		return errors.InvalidInput("email", "must not be empty")
	}

	repo := s.accounts.Repository()

	if existing, err := repo.FindByEmail(ctx, email); err == nil {
		s.notify(notification.NoticeAlreadyRegistered, existing.Email, map[string]string{
			"Email": existing.Email,
		})
		slog.Info("Registration for already registered email", "accountId", existing.ID)
		return nil
	} else if !stderrors.Is(err, account.ErrAccountNotFound) {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to look up email")
	}

	if err := s.policy.Check(params.Password); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to hash password")
	}

	count, err := repo.Count(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to count accounts")
	}
	role := account.RoleStudent
	if count == 0 {
		role = account.RoleAdmin
	}

	created, err := repo.Create(ctx, account.Account{
		Title:         params.Title,
		FirstName:     params.FirstName,
		LastName:      params.LastName,
		Email:         email,
		PasswordHash:  hash,
		AcceptTerms:   params.AcceptTerms,
		Role:          role,
		InstitutionID: params.InstitutionID,
		Address:       params.Address,
		ContactNo:     params.ContactNo,
	})
	if err != nil {
		if stderrors.Is(err, account.ErrEmailTaken) {
			// Lost a race with a concurrent registration; same outward
			// behavior as the earlier duplicate check.
			s.notify(notification.NoticeAlreadyRegistered, email, map[string]string{"Email": email})
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create account")
	}

	token, err := s.verification.IssueVerification(ctx, created.ID)
	if err != nil {
		return err
	}
	s.notify(notification.NoticeVerifyEmail, created.Email, map[string]string{
		"Token":     token,
		"VerifyURL": fmt.Sprintf("%s/account/verify-email?token=%s", s.baseURL, token),
	})
	slog.Info("Account registered", "accountId", created.ID, "role", created.Role)
	return nil
}

// Login authenticates an email and password pair and opens a new session:
// a signed access token plus a fresh refresh token chain entry.
//
// Unknown email, unverified account and wrong password all fail with the
// same invalid-credentials error.
func (s *LoginService) Login(ctx context.Context, email, plainPassword, ip string) (AuthResult, error) {
	acct, err := s.accounts.Repository().FindByEmail(ctx, account.NormalizeEmail(email))
	if err != nil {
		if stderrors.Is(err, account.ErrAccountNotFound) {
			return AuthResult{}, errors.InvalidCredentials()
		}
		return AuthResult{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to look up account")
	}

	if !acct.IsVerified() {
		return AuthResult{}, errors.InvalidCredentials()
	}

	ok, err := password.ForHash(acct.PasswordHash).Verify(plainPassword, acct.PasswordHash)
	if err != nil {
		slog.Error("Failed verifying password hash", "accountId", acct.ID, "err", err)
		return AuthResult{}, errors.InvalidCredentials()
	}
	if !ok {
		return AuthResult{}, errors.InvalidCredentials()
	}

	return s.openSession(ctx, acct, ip)
}

// Refresh rotates the presented refresh token and returns a new session.
// Reuse of an already rotated token revokes the account's active chain
// before the call fails.
func (s *LoginService) Refresh(ctx context.Context, presented, ip string) (AuthResult, error) {
	rotated, err := s.refresh.Rotate(ctx, presented, ip)
	if err != nil {
		return AuthResult{}, err
	}

	acct, err := s.accounts.Get(ctx, rotated.AccountID)
	if err != nil {
		return AuthResult{}, err
	}

	accessToken, accessExpiry, err := s.tokenGen.GenerateToken(strconv.FormatInt(acct.ID, 10), string(acct.Role), s.accessTTL)
	if err != nil {
		return AuthResult{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to generate access token")
	}

	return AuthResult{
		Account:      acct,
		AccessToken:  accessToken,
		AccessExpiry: accessExpiry,
		RefreshToken: rotated,
	}, nil
}

func (s *LoginService) openSession(ctx context.Context, acct account.Account, ip string) (AuthResult, error) {
	accessToken, accessExpiry, err := s.tokenGen.GenerateToken(strconv.FormatInt(acct.ID, 10), string(acct.Role), s.accessTTL)
	if err != nil {
		return AuthResult{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to generate access token")
	}

	refreshToken, err := s.refresh.Issue(ctx, acct.ID, ip)
	if err != nil {
		return AuthResult{}, err
	}

	slog.Info("Login succeeded", "accountId", acct.ID, "role", acct.Role)
	return AuthResult{
		Account:      acct,
		AccessToken:  accessToken,
		AccessExpiry: accessExpiry,
		RefreshToken: refreshToken,
	}, nil
}

// RevokeToken revokes a refresh token on behalf of the caller. Non-admin
// callers may only revoke tokens from their own chain.
func (s *LoginService) RevokeToken(ctx context.Context, callerID int64, callerRole account.Role, token, ip string) error {
	reason := refresh.ReasonRevokedByUser
	if callerRole == account.RoleAdmin {
		reason = refresh.ReasonRevokedByAdmin
	} else {
		owns, err := s.refresh.OwnsToken(ctx, callerID, token)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to check token ownership")
		}
		if !owns {
			return errors.Unauthorized("unauthorized")
		}
	}
	return s.refresh.Revoke(ctx, token, ip, reason)
}

// VerifyEmail redeems a verification token
func (s *LoginService) VerifyEmail(ctx context.Context, token string) error {
	_, err := s.verification.RedeemVerification(ctx, token)
	return err
}

// ForgotPassword issues a reset token and emails it. Always succeeds for
// well-formed requests; unknown emails are logged and swallowed.
func (s *LoginService) ForgotPassword(ctx context.Context, email string) error {
	acct, token, err := s.verification.IssueReset(ctx, email)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeNotFound) {
			slog.Info("Password reset requested for unknown email")
			return nil
		}
		return err
	}

	s.notify(notification.NoticePasswordReset, acct.Email, map[string]string{
		"Token":    token,
		"ResetURL": fmt.Sprintf("%s/account/reset-password?token=%s", s.baseURL, token),
		"ValidFor": validForText(s.verification.ResetWindow()),
	})
	return nil
}

// ValidateResetToken checks a reset token without redeeming it
func (s *LoginService) ValidateResetToken(ctx context.Context, token string) error {
	_, err := s.verification.ValidateReset(ctx, token)
	return err
}

// ResetPassword redeems a reset token with a new password. Every active
// refresh token of the account is revoked so stolen sessions do not
// survive the reset.
func (s *LoginService) ResetPassword(ctx context.Context, token, newPassword, ip string) error {
	acct, err := s.verification.RedeemReset(ctx, token, newPassword)
	if err != nil {
		return err
	}

	revoked, err := s.refresh.RevokeAllForAccount(ctx, acct.ID, ip, refresh.ReasonRevokedByUser)
	if err != nil {
		slog.Error("Failed revoking sessions after password reset", "accountId", acct.ID, "err", err)
		return nil
	}
	if revoked > 0 {
		slog.Info("Revoked sessions after password reset", "accountId", acct.ID, "revoked", revoked)
	}
	return nil
}

// ParseAccessToken validates a bearer token and returns its claims
func (s *LoginService) ParseAccessToken(tokenStr string) (*tokengen.Claims, error) {
	return s.tokenGen.ParseToken(tokenStr)
}

// AccessTTL returns the configured access token lifetime
func (s *LoginService) AccessTTL() time.Duration {
	return s.accessTTL
}

func (s *LoginService) notify(noticeType notification.NoticeType, to string, data map[string]string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(noticeType, notification.NotificationData{To: to, Data: data}); err != nil {
		slog.Error("Failed to send notification", "type", noticeType, "err", err)
	}
}

func validForText(window time.Duration) string {
	if days := int(window.Hours() / 24); days >= 1 {
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	return window.String()
}
