package config

import "time"

// PasswordConfig holds password complexity and reset-window configuration
type PasswordConfig struct {
	RequiredLength         int  `env:"PASSWORD_COMPLEXITY_REQUIRED_LENGTH" env-default:"8"`
	RequireDigit           bool `env:"PASSWORD_COMPLEXITY_REQUIRE_DIGIT" env-default:"true"`
	RequireLowercase       bool `env:"PASSWORD_COMPLEXITY_REQUIRE_LOWERCASE" env-default:"true"`
	RequireUppercase       bool `env:"PASSWORD_COMPLEXITY_REQUIRE_UPPERCASE" env-default:"true"`
	RequireNonAlphanumeric bool `env:"PASSWORD_COMPLEXITY_REQUIRE_NON_ALPHANUMERIC" env-default:"false"`
	ResetTokenExpiryDays   int  `env:"RESET_TOKEN_EXPIRY_DAYS" env-default:"1"`
}

// ResetWindow returns how long an issued reset token stays valid
func (p PasswordConfig) ResetWindow() time.Duration {
	return time.Duration(p.ResetTokenExpiryDays) * 24 * time.Hour
}
