package config

import "time"

// RefreshConfig holds refresh-token ledger configuration.
//
// TTLDays is both the token lifetime and the cookie expiry ceiling.
// RetentionDays is how long inactive tokens are kept before the periodic
// sweep deletes them; this is operational hygiene, not a correctness knob.
type RefreshConfig struct {
	TTLDays       int    `env:"REFRESH_TOKEN_TTL_DAYS" env-default:"7"`
	RetentionDays int    `env:"REFRESH_TOKEN_RETENTION_DAYS" env-default:"2"`
	SweepInterval string `env:"REFRESH_TOKEN_SWEEP_INTERVAL" env-default:"1h"`
}

// TTL returns the refresh token time to live
func (r RefreshConfig) TTL() time.Duration {
	return time.Duration(r.TTLDays) * 24 * time.Hour
}

// Retention returns the grace window inactive tokens are retained for
func (r RefreshConfig) Retention() time.Duration {
	return time.Duration(r.RetentionDays) * 24 * time.Hour
}

// ParseSweepInterval parses the sweep interval duration
func (r RefreshConfig) ParseSweepInterval() (time.Duration, error) {
	return time.ParseDuration(r.SweepInterval)
}
