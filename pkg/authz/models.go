package authz

import (
	"time"

	"github.com/certportal/authcore/pkg/account"
)

// Action is the kind of access being requested
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
)

// Principal identifies the caller of a policy decision. It is passed
// explicitly to every operation instead of riding on ambient request state.
type Principal struct {
	AccountID int64        `json:"account_id"`
	Role      account.Role `json:"role"`
}

// RoleInstitution grants a non-admin principal scope over one institution.
// Presence of a row is necessary and sufficient for institution-scoped
// authorization to succeed for that (account, institution) pair.
type RoleInstitution struct {
	ID            int64      `json:"id"`
	AccountID     int64      `json:"account_id"`
	InstitutionID int64      `json:"institution_id"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}
