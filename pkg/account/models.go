package account

import (
	"strings"
	"time"
)

// Role is the global role of an account. Every account has exactly one.
type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleInstructor Role = "Instructor"
	RoleStudent    Role = "Student"
)

// Valid reports whether the role is one of the known global roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleInstructor, RoleStudent:
		return true
	}
	return false
}

// Account is the identity record of the credential store.
//
// The single-use verification and reset tokens are embedded on the account;
// redeeming clears the token field so it cannot be replayed.
type Account struct {
	ID                  int64      `json:"id"`
	Title               string     `json:"title,omitempty"`
	FirstName           string     `json:"first_name"`
	LastName            string     `json:"last_name"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	AcceptTerms         bool       `json:"accept_terms"`
	Role                Role       `json:"role"`
	VerificationToken   string     `json:"-"`
	VerifiedAt          *time.Time `json:"verified_at,omitempty"`
	ResetToken          string     `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`
	PasswordResetAt     *time.Time `json:"password_reset_at,omitempty"`
	InstitutionID       *int64     `json:"institution_id,omitempty"`
	Address             string     `json:"address,omitempty"`
	ContactNo           string     `json:"contact_no,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           *time.Time `json:"updated_at,omitempty"`
}

// IsVerified reports whether the account may log in. Verification is
// implied by a completed password reset.
func (a Account) IsVerified() bool {
	return a.VerifiedAt != nil || a.PasswordResetAt != nil
}

// FullName returns the display name
func (a Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// NormalizeEmail lowercases an email for case-insensitive comparison
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateParams contains the fields of an admin-created account. Unlike
// self-service registration the account comes out verified, so no
// verification mail is needed.
type CreateParams struct {
	Title         string `json:"title"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Role          Role   `json:"role"`
	InstitutionID *int64 `json:"institution_id,omitempty"`
	Address       string `json:"address"`
	ContactNo     string `json:"contact_no"`
}

// UpdateParams contains the optional fields of a profile update.
// A nil field leaves the stored value untouched; this makes the
// "which fields are optional on update" rule explicit instead of burying
// it in mapping configuration.
type UpdateParams struct {
	Title         *string `json:"title,omitempty"`
	FirstName     *string `json:"first_name,omitempty"`
	LastName      *string `json:"last_name,omitempty"`
	Email         *string `json:"email,omitempty"`
	Address       *string `json:"address,omitempty"`
	ContactNo     *string `json:"contact_no,omitempty"`
	InstitutionID *int64  `json:"institution_id,omitempty"`
	Role          *Role   `json:"role,omitempty"`
	Password      *string `json:"password,omitempty"`
}

// MergeUpdate applies the non-nil fields of params onto a copy of the
// account and returns it. Role and Password are intentionally not merged
// here: role changes are an admin-only decision and password changes must
// go through the hasher, both enforced by the service layer.
func MergeUpdate(a Account, params UpdateParams) Account {
	if params.Title != nil {
		a.Title = *params.Title
	}
	if params.FirstName != nil {
		a.FirstName = *params.FirstName
	}
	if params.LastName != nil {
		a.LastName = *params.LastName
	}
	if params.Email != nil {
		a.Email = NormalizeEmail(*params.Email)
	}
	if params.Address != nil {
		a.Address = *params.Address
	}
	if params.ContactNo != nil {
		a.ContactNo = *params.ContactNo
	}
	if params.InstitutionID != nil {
		a.InstitutionID = params.InstitutionID
	}
	return a
}
