// Package config reads process configuration from the environment. cmd/api
// loads an optional .env file before calling Load, so local development and
// container deployments share the same surface.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Config is everything cmd/api needs to wire the service together.
type Config struct {
	HTTPAddr string
	DSN      string

	// Per-purpose token signing secrets. All four are required and must
	// differ from each other.
	AccessTokenSecret       string
	RefreshTokenSecret      string
	PasswordResetSecret     string
	EmailVerificationSecret string

	MailgunAPIKey string
	MailgunDomain string
	FrontendURL   string

	AdminEmail    string
	AdminName     string
	AdminPassword string
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// Load reads the environment and validates that the secrets the auth
// subsystem cannot run without are present.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:                getenv("COREMD_HTTP_ADDR", ":8080"),
		DSN:                     strings.TrimSpace(os.Getenv("COREMD_PG_DSN")),
		AccessTokenSecret:       strings.TrimSpace(os.Getenv("COREMD_JWT_SECRET")),
		RefreshTokenSecret:      strings.TrimSpace(os.Getenv("COREMD_JWT_REFRESH_SECRET")),
		PasswordResetSecret:     strings.TrimSpace(os.Getenv("COREMD_JWT_RESET_PASSWORD_SECRET")),
		EmailVerificationSecret: strings.TrimSpace(os.Getenv("COREMD_JWT_EMAIL_VERIFICATION_SECRET")),
		MailgunAPIKey:           strings.TrimSpace(os.Getenv("COREMD_MAILGUN_API_KEY")),
		MailgunDomain:           strings.TrimSpace(os.Getenv("COREMD_MAILGUN_DOMAIN")),
		FrontendURL:             getenv("COREMD_FRONTEND_URL", "http://localhost:3000"),
		AdminEmail:              strings.TrimSpace(os.Getenv("COREMD_ADMIN_EMAIL")),
		AdminName:               getenv("COREMD_ADMIN_NAME", "Administrator"),
		AdminPassword:           strings.TrimSpace(os.Getenv("COREMD_ADMIN_PASSWORD")),
	}

	var missing []string
	for _, required := range []struct{ key, value string }{
		{"COREMD_PG_DSN", cfg.DSN},
		{"COREMD_JWT_SECRET", cfg.AccessTokenSecret},
		{"COREMD_JWT_REFRESH_SECRET", cfg.RefreshTokenSecret},
		{"COREMD_JWT_RESET_PASSWORD_SECRET", cfg.PasswordResetSecret},
		{"COREMD_JWT_EMAIL_VERIFICATION_SECRET", cfg.EmailVerificationSecret},
	} {
		if required.value == "" {
			missing = append(missing, required.key)
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("config: missing required environment: %s", strings.Join(missing, ", "))
	}

	if cfg.MailgunAPIKey == "" || cfg.MailgunDomain == "" {
		return Config{}, errors.New("config: COREMD_MAILGUN_API_KEY and COREMD_MAILGUN_DOMAIN are required")
	}
	return cfg, nil
}
