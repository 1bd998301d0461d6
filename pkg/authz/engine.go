package authz

import (
	"context"
	"log/slog"

	"github.com/certportal/authcore/pkg/account"
	"github.com/certportal/authcore/pkg/errors"
)

// Engine evaluates access decisions. Rules are checked in order:
//
//  1. Admin principals are allowed everything.
//  2. A principal may act on its own account.
//  3. A non-admin acting within an institution scope is allowed iff a
//     RoleInstitution grant exists for that (account, institution) pair.
//  4. Everything else is denied.
//
// Every deny returns ErrCodeUnauthorized; callers map it to HTTP 403.
type Engine struct {
	repo Repository
}

// NewEngine creates a policy engine over the given grant repository
func NewEngine(repo Repository) *Engine {
	return &Engine{repo: repo}
}

// Authorize returns nil when the principal may perform the action, or an
// ErrCodeUnauthorized error when it may not. institutionID and
// targetAccountID narrow the scope of the decision; either may be nil.
func (e *Engine) Authorize(ctx context.Context, p Principal, action Action, institutionID *int64, targetAccountID *int64) error {
	if p.Role == account.RoleAdmin {
		return nil
	}

	if targetAccountID != nil && *targetAccountID == p.AccountID {
		return nil
	}

	if institutionID != nil {
		ok, err := e.repo.Exists(ctx, p.AccountID, *institutionID)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to check institution grant")
		}
		if ok {
			return nil
		}
		slog.Info("Access denied, no institution grant",
			"accountId", p.AccountID, "role", p.Role, "action", action, "institutionId", *institutionID)
		return errors.Unauthorized("unauthorized")
	}

	slog.Info("Access denied", "accountId", p.AccountID, "role", p.Role, "action", action)
	return errors.Unauthorized("unauthorized")
}

// Institutions returns the institution ids the principal is granted.
// Admins see every institution, so the caller should treat a nil slice
// together with the Admin role as unrestricted.
func (e *Engine) Institutions(ctx context.Context, accountID int64) ([]int64, error) {
	return e.repo.FindInstitutions(ctx, accountID)
}
