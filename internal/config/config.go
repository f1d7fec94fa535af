package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port                string        `env:"PORT" envDefault:"8080"`
	DBUrl               string        `env:"DB_URL"`
	JWTSecret           string        `env:"JWT_SECRET"`
	AppEnv              string        `env:"APP_ENV" envDefault:"production"`
	FrontendURL         string        `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	StripeSecretKey     string        `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string        `env:"STRIPE_WEBHOOK_SECRET"`
	Currency            string        `env:"CURRENCY" envDefault:"usd"`
	PaymentTimeout      time.Duration `env:"PAYMENT_TIMEOUT" envDefault:"10s"`
	NotifyWebhookURL    string        `env:"NOTIFY_WEBHOOK_URL"`
	NotifyFrom          string        `env:"NOTIFY_FROM" envDefault:"noreply@mentors.local"`
	OTelEndpoint        string        `env:"OTEL_ENDPOINT"`
	OTelEnabled         bool          `env:"OTEL_ENABLED" envDefault:"true"`
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("environment variables are invalid: %w", err)
	}
	cfg.AppEnv = normalizeEnv(cfg.AppEnv)
	cfg.Currency = strings.ToLower(strings.TrimSpace(cfg.Currency))
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.DBUrl == "" {
		return fmt.Errorf("DB_URL is required")
	}
	if c.PaymentTimeout <= 0 {
		return fmt.Errorf("PAYMENT_TIMEOUT must be positive, got %s", c.PaymentTimeout)
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("CURRENCY must be a three-letter ISO code, got %q", c.Currency)
	}
	if _, err := url.ParseRequestURI(c.FrontendURL); err != nil {
		return fmt.Errorf("FRONTEND_URL is invalid: %w", err)
	}
	if c.StripeSecretKey != "" && c.StripeWebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set")
	}
	return nil
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

func (c *Config) IsDevelopment() bool {
	return c != nil && c.AppEnv == "development"
}

func (c *Config) PaymentsEnabled() bool {
	return c != nil && c.StripeSecretKey != ""
}

// SessionURL is the frontend page hosting the call for a session.
func (c *Config) SessionURL(sessionID int64) string {
	return fmt.Sprintf("%s/sessions/%d", c.FrontendURL, sessionID)
}
