package account

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/certportal/authcore/pkg/errors"
	"github.com/certportal/authcore/pkg/password"
)

// Service provides account profile operations over the credential store.
//
// Authorization is not decided here: callers pass the outcome of the policy
// engine through explicit arguments (allowRoleChange), keeping the service
// free of ambient request state.
type Service struct {
	repo   Repository
	hasher password.Hasher
	policy *password.Policy
}

// NewService creates a new account service
func NewService(repo Repository, hasher password.Hasher, policy *password.Policy) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		policy: policy,
	}
}

// Repository exposes the underlying store for collaborating services
func (s *Service) Repository() Repository {
	return s.repo
}

// Create adds a pre-verified account on behalf of an administrator. The
// password is policy-checked and hashed; an empty role defaults to Student.
func (s *Service) Create(ctx context.Context, params CreateParams) (Account, error) {
	email := NormalizeEmail(params.Email)
	if email == "" {
		return Account{}, errors.InvalidInput("email", "must not be empty")
	}
	role := params.Role
	if role == "" {
		role = RoleStudent
	}
	if !role.Valid() {
		return Account{}, errors.InvalidInput("role", string(role))
	}
	if err := s.policy.Check(params.Password); err != nil {
		return Account{}, err
	}
	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return Account{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to hash password")
	}

	now := time.Now().UTC()
	created, err := s.repo.Create(ctx, Account{
		Title:         params.Title,
		FirstName:     params.FirstName,
		LastName:      params.LastName,
		Email:         email,
		PasswordHash:  hash,
		AcceptTerms:   true,
		Role:          role,
		VerifiedAt:    &now,
		InstitutionID: params.InstitutionID,
		Address:       params.Address,
		ContactNo:     params.ContactNo,
	})
	if err != nil {
		if stderrors.Is(err, ErrEmailTaken) {
			return Account{}, errors.Newf(errors.ErrCodeAlreadyExists, "email %q is already registered", email)
		}
		return Account{}, err
	}
	slog.Info("Account created by admin", "accountId", created.ID, "role", created.Role)
	return created, nil
}

// Get returns an account by id
func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, ErrAccountNotFound) {
			return Account{}, errors.NotFound("account", fmt.Sprint(id))
		}
		return Account{}, err
	}
	return a, nil
}

// List returns all accounts
func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.FindAll(ctx)
}

// StudentsByInstitution returns the student accounts affiliated with an institution
func (s *Service) StudentsByInstitution(ctx context.Context, institutionID int64) ([]Account, error) {
	return s.repo.FindStudentsByInstitution(ctx, institutionID)
}

// Update merges the provided optional fields onto the account.
//
// A role change is only applied when allowRoleChange is true (Admin
// callers); otherwise it is silently dropped, matching the original
// behavior of clearing the field for non-admins. A password change is
// policy-checked and re-hashed.
func (s *Service) Update(ctx context.Context, id int64, params UpdateParams, allowRoleChange bool) (Account, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, ErrAccountNotFound) {
			return Account{}, errors.NotFound("account", fmt.Sprint(id))
		}
		return Account{}, err
	}

	merged := MergeUpdate(a, params)

	if params.Role != nil {
		if !allowRoleChange {
			slog.Warn("Dropping role change from non-admin update", "accountId", id)
		} else {
			if !params.Role.Valid() {
				return Account{}, errors.InvalidInput("role", string(*params.Role))
			}
			merged.Role = *params.Role
		}
	}

	if params.Password != nil {
		if err := s.policy.Check(*params.Password); err != nil {
			return Account{}, err
		}
		hash, err := s.hasher.Hash(*params.Password)
		if err != nil {
			return Account{}, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to hash password")
		}
		merged.PasswordHash = hash
	}

	updated, err := s.repo.Update(ctx, merged)
	if err != nil {
		if stderrors.Is(err, ErrEmailTaken) {
			return Account{}, errors.Newf(errors.ErrCodeAlreadyExists, "email %q is already registered", merged.Email)
		}
		return Account{}, err
	}
	return updated, nil
}

// Delete removes an account
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if stderrors.Is(err, ErrAccountNotFound) {
			return errors.NotFound("account", fmt.Sprint(id))
		}
		return err
	}
	return nil
}
