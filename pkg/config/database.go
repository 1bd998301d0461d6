package config

import dbutils "github.com/tendant/db-utils/db"

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host     string `env:"AUTH_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"AUTH_PG_PORT" env-default:"5432"`
	Database string `env:"AUTH_PG_DATABASE" env-default:"authcore_db"`
	User     string `env:"AUTH_PG_USER" env-default:"authcore"`
	Password string `env:"AUTH_PG_PASSWORD" env-default:"pwd"`
}

// ToDbConfig converts to the db-utils pool configuration
func (d DatabaseConfig) ToDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}
