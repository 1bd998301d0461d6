package api

import (
	"time"

	"github.com/certportal/authcore/pkg/account"
	"github.com/certportal/authcore/pkg/login"
	"github.com/jinzhu/copier"
)

// AuthenticateRequest is the body of POST /accounts/authenticate
type AuthenticateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /accounts/register
type RegisterRequest struct {
	Title           string `json:"title"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	AcceptTerms     bool   `json:"accept_terms"`
	InstitutionID   *int64 `json:"institution_id,omitempty"`
	Address         string `json:"address"`
	ContactNo       string `json:"contact_no"`
}

// VerifyEmailRequest is the body of POST /accounts/verify-email
type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// ForgotPasswordRequest is the body of POST /accounts/forgot-password
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ValidateResetTokenRequest is the body of POST /accounts/validate-reset-token
type ValidateResetTokenRequest struct {
	Token string `json:"token"`
}

// ResetPasswordRequest is the body of POST /accounts/reset-password
type ResetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// RevokeTokenRequest is the body of POST /accounts/revoke-token. The token
// may instead travel in the refresh cookie.
type RevokeTokenRequest struct {
	Token string `json:"token"`
}

// CreateAccountRequest is the body of POST /accounts, the admin-only create
type CreateAccountRequest struct {
	Title           string `json:"title"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Role            string `json:"role"`
	InstitutionID   *int64 `json:"institution_id,omitempty"`
	Address         string `json:"address"`
	ContactNo       string `json:"contact_no"`
}

// UpdateAccountRequest is the body of PUT /accounts/{id}
type UpdateAccountRequest struct {
	Title         *string `json:"title,omitempty"`
	FirstName     *string `json:"first_name,omitempty"`
	LastName      *string `json:"last_name,omitempty"`
	Email         *string `json:"email,omitempty"`
	Password      *string `json:"password,omitempty"`
	Role          *string `json:"role,omitempty"`
	InstitutionID *int64  `json:"institution_id,omitempty"`
	Address       *string `json:"address,omitempty"`
	ContactNo     *string `json:"contact_no,omitempty"`
}

// UpdateInstitutionsRequest is the body of PUT /accounts/{id}/institutions
type UpdateInstitutionsRequest struct {
	InstitutionIDs []int64 `json:"institution_ids"`
}

// AccountResponse is the public view of an account
type AccountResponse struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title,omitempty"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	IsVerified    bool       `json:"is_verified"`
	InstitutionID *int64     `json:"institution_id,omitempty"`
	Address       string     `json:"address,omitempty"`
	ContactNo     string     `json:"contact_no,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// AuthenticateResponse is the body returned by authenticate and
// refresh-token; the refresh token itself travels in the cookie.
type AuthenticateResponse struct {
	AccountResponse
	JwtToken string `json:"jwt_token"`
}

// MessageResponse is a plain confirmation message
type MessageResponse struct {
	Message string `json:"message"`
}

func toAccountResponse(a account.Account) AccountResponse {
	var resp AccountResponse
	if err := copier.Copy(&resp, &a); err != nil {
		resp = AccountResponse{ID: a.ID, Email: a.Email}
	}
	resp.Role = string(a.Role)
	resp.IsVerified = a.IsVerified()
	return resp
}

func toAccountResponses(accounts []account.Account) []AccountResponse {
	out := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	return out
}

func toAuthenticateResponse(result login.AuthResult) AuthenticateResponse {
	return AuthenticateResponse{
		AccountResponse: toAccountResponse(result.Account),
		JwtToken:        result.AccessToken,
	}
}
