package config

// EmailConfig holds SMTP configuration for the notification collaborator
type EmailConfig struct {
	Host     string `env:"SMTP_HOST" env-default:"localhost"`
	Port     int    `env:"SMTP_PORT" env-default:"1025"`
	Username string `env:"SMTP_USERNAME" env-default:""`
	Password string `env:"SMTP_PASSWORD" env-default:""`
	From     string `env:"EMAIL_FROM" env-default:"noreply@certportal.local"`
	TLS      bool   `env:"SMTP_TLS" env-default:"false"`
	BaseURL  string `env:"EMAIL_BASE_URL" env-default:"http://localhost:4000"`
}
