package login

import (
	"time"

	"github.com/certportal/authcore/pkg/account"
	"github.com/certportal/authcore/pkg/refresh"
)

// RegisterParams carries the fields of a registration request
type RegisterParams struct {
	Title         string
	FirstName     string
	LastName      string
	Email         string
	Password      string
	AcceptTerms   bool
	InstitutionID *int64
	Address       string
	ContactNo     string
}

// AuthResult is the outcome of a successful login or refresh: the account,
// a short-lived access token and the refresh token to hand back as a
// cookie.
type AuthResult struct {
	Account      account.Account
	AccessToken  string
	AccessExpiry time.Time
	RefreshToken refresh.RefreshToken
}
