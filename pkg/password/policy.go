package password

import (
	"regexp"

	"github.com/certportal/authcore/pkg/config"
	"github.com/certportal/authcore/pkg/errors"
)

var (
	upperRe   = regexp.MustCompile(`[A-Z]`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	specialRe = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// Policy checks password complexity requirements
type Policy struct {
	minLength      int
	requireUpper   bool
	requireLower   bool
	requireDigit   bool
	requireSpecial bool
}

// NewPolicy creates a Policy from configuration
func NewPolicy(cfg config.PasswordConfig) *Policy {
	return &Policy{
		minLength:      cfg.RequiredLength,
		requireUpper:   cfg.RequireUppercase,
		requireLower:   cfg.RequireLowercase,
		requireDigit:   cfg.RequireDigit,
		requireSpecial: cfg.RequireNonAlphanumeric,
	}
}

// DefaultPolicy returns a policy with the default complexity requirements
func DefaultPolicy() *Policy {
	return &Policy{
		minLength:    8,
		requireUpper: true,
		requireLower: true,
		requireDigit: true,
	}
}

// Check verifies that a password meets the complexity requirements.
// Failures carry ErrCodePasswordComplexity.
func (p *Policy) Check(password string) error {
	if len(password) < p.minLength {
		return errors.Newf(errors.ErrCodePasswordComplexity,
			"password must be at least %d characters long", p.minLength)
	}
	if p.requireUpper && !upperRe.MatchString(password) {
		return errors.New(errors.ErrCodePasswordComplexity,
			"password must contain at least one uppercase letter")
	}
	if p.requireLower && !lowerRe.MatchString(password) {
		return errors.New(errors.ErrCodePasswordComplexity,
			"password must contain at least one lowercase letter")
	}
	if p.requireDigit && !digitRe.MatchString(password) {
		return errors.New(errors.ErrCodePasswordComplexity,
			"password must contain at least one digit")
	}
	if p.requireSpecial && !specialRe.MatchString(password) {
		return errors.New(errors.ErrCodePasswordComplexity,
			"password must contain at least one special character")
	}
	return nil
}
