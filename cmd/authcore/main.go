package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/jwtauth/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"

	"github.com/certportal/authcore/pkg/account"
	"github.com/certportal/authcore/pkg/authz"
	"github.com/certportal/authcore/pkg/config"
	"github.com/certportal/authcore/pkg/login"
	"github.com/certportal/authcore/pkg/login/api"
	"github.com/certportal/authcore/pkg/notification"
	"github.com/certportal/authcore/pkg/password"
	"github.com/certportal/authcore/pkg/refresh"
	"github.com/certportal/authcore/pkg/tokengen"
	"github.com/certportal/authcore/pkg/verification"
)

type Config struct {
	Storage        string `env:"AUTH_STORAGE" env-default:"postgres"`
	AppConfig      app.AppConfig
	DatabaseConfig config.DatabaseConfig
	JWTConfig      config.JWTConfig
	RefreshConfig  config.RefreshConfig
	PasswordConfig config.PasswordConfig
	EmailConfig    config.EmailConfig
}

func main() {
	cfg := Config{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed reading config from environment", "err", err)
		os.Exit(-1)
	}

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	var (
		accountRepo account.Repository
		refreshRepo refresh.Repository
		grantRepo   authz.Repository
		notifier    notification.Notifier
	)

	switch cfg.Storage {
	case "memory":
		slog.Info("Using in-memory storage")
		accountRepo = account.NewInMemoryRepository()
		refreshRepo = refresh.NewInMemoryRepository()
		grantRepo = authz.NewInMemoryRepository()
		notifier = notification.NewMockNotifier()
	default:
		dbConfig := cfg.DatabaseConfig.ToDbConfig()
		pool, err := dbutils.NewDbPool(context.Background(), dbConfig)
		if err != nil {
			slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
			os.Exit(-1)
		}
		accountRepo = account.NewPostgresRepository(pool)
		refreshRepo = refresh.NewPostgresRepository(pool)
		grantRepo = authz.NewPostgresRepository(pool)

		notifier, err = notification.NewEmailNotifier(notification.SMTPConfig{
			Host:     cfg.EmailConfig.Host,
			Port:     cfg.EmailConfig.Port,
			TLS:      cfg.EmailConfig.TLS,
			Username: cfg.EmailConfig.Username,
			Password: cfg.EmailConfig.Password,
			From:     cfg.EmailConfig.From,
		})
		if err != nil {
			slog.Error("Failed creating email notifier", "err", err)
			os.Exit(-1)
		}
	}

	accessTTL, err := cfg.JWTConfig.ParseAccessTokenExpiry()
	if err != nil {
		slog.Error("Invalid access token expiry", "value", cfg.JWTConfig.AccessTokenExpiry, "err", err)
		os.Exit(-1)
	}

	hasher := password.NewArgon2Hasher()
	policy := password.NewPolicy(cfg.PasswordConfig)

	accountService := account.NewService(accountRepo, hasher, policy)
	refreshService := refresh.NewService(refreshRepo,
		refresh.WithTTL(cfg.RefreshConfig.TTL()),
		refresh.WithRetention(cfg.RefreshConfig.Retention()),
	)
	verificationService := verification.NewService(accountRepo,
		verification.WithPolicy(policy),
		verification.WithHasher(hasher),
		verification.WithResetWindow(cfg.PasswordConfig.ResetWindow()),
	)
	tokenGen := tokengen.NewJwtTokenGenerator(cfg.JWTConfig.Secret, cfg.JWTConfig.Issuer, cfg.JWTConfig.Audience)
	loginService := login.NewLoginService(
		accountService,
		verificationService,
		refreshService,
		tokenGen,
		policy,
		notifier,
		accessTTL,
		cfg.EmailConfig.BaseURL,
	)
	engine := authz.NewEngine(grantRepo)
	cookieSetter := tokengen.NewCookieSetter(cfg.JWTConfig.CookieHttpOnly, cfg.JWTConfig.CookieSecure)
	jwtAuth := jwtauth.New("HS256", []byte(cfg.JWTConfig.Secret), nil)

	handle := api.NewHandle(loginService, accountService, engine, grantRepo, jwtAuth, cookieSetter)
	handle.Routes(server.R)

	sweepInterval, err := cfg.RefreshConfig.ParseSweepInterval()
	if err != nil {
		slog.Error("Invalid sweep interval", "value", cfg.RefreshConfig.SweepInterval, "err", err)
		os.Exit(-1)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go refresh.NewSweeper(refreshService, sweepInterval).Run(ctx)

	server.Run()
}
