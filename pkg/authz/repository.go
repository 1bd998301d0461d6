package authz

import (
	"context"
	"errors"
)

// ErrGrantNotFound is returned when no matching RoleInstitution row exists
var ErrGrantNotFound = errors.New("role institution grant not found")

// Repository defines the interface for RoleInstitution persistence.
// The (account id, institution id) pair is unique.
type Repository interface {
	Assign(ctx context.Context, accountID, institutionID int64) (RoleInstitution, error)
	Unassign(ctx context.Context, accountID, institutionID int64) error
	Exists(ctx context.Context, accountID, institutionID int64) (bool, error)
	FindInstitutions(ctx context.Context, accountID int64) ([]int64, error)
	FindByAccount(ctx context.Context, accountID int64) ([]RoleInstitution, error)

	// ReplaceForAccount replaces the account's grants with exactly the
	// given institutions (the bulk role-institution update operation).
	ReplaceForAccount(ctx context.Context, accountID int64, institutionIDs []int64) error

	// DeleteForAccount removes all grants of an account; called when the
	// account is deleted.
	DeleteForAccount(ctx context.Context, accountID int64) error
}
