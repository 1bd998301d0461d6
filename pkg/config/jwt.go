package config

import (
	"net/http"
	"time"
)

// JWTConfig holds access-token signing and refresh-cookie configuration.
// The signing key is loaded once at startup and treated as immutable.
type JWTConfig struct {
	Secret            string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	Issuer            string `env:"JWT_ISSUER" env-default:"certportal-auth"`
	Audience          string `env:"JWT_AUDIENCE" env-default:"certportal"`
	AccessTokenExpiry string `env:"ACCESS_TOKEN_EXPIRY" env-default:"15m"`
	CookieHttpOnly    bool   `env:"COOKIE_HTTP_ONLY" env-default:"true"`
	CookieSecure      bool   `env:"COOKIE_SECURE" env-default:"true"`
}

// ParseAccessTokenExpiry parses the access token expiry duration
func (j JWTConfig) ParseAccessTokenExpiry() (time.Duration, error) {
	return time.ParseDuration(j.AccessTokenExpiry)
}

// CookieSameSite returns the appropriate SameSite setting based on CookieSecure
func (j JWTConfig) CookieSameSite() http.SameSite {
	if j.CookieSecure {
		return http.SameSiteStrictMode
	}
	return http.SameSiteLaxMode
}
