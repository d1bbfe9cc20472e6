package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	DatabaseURL      string `env:"DATABASE_URL,required" validate:"required"`
	DatabaseMaxConns int    `env:"DATABASE_MAX_CONNS" envDefault:"10" validate:"min=1,max=100"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	JWTSecret        string `env:"JWT_SECRET,required"         validate:"required,min=32"`
	JWTRefreshSecret string `env:"JWT_REFRESH_SECRET,required" validate:"required,min=32,nefield=JWTSecret"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom   string `env:"RESEND_FROM"    validate:"required_if=Env production,required_if=Env staging"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID,required"     validate:"required"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET,required" validate:"required"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"           envDefault:"http://localhost:8080/oauth/callback" validate:"url"`

	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:3000" validate:"url"`

	OTPPurgeSchedule string `env:"OTP_PURGE_SCHEDULE" envDefault:"@every 5m" validate:"required"`
}

// Load reads an optional .env file, then the environment.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SecureCookies is false only for local development over plain http.
func (c *Config) SecureCookies() bool {
	return c.Env != "local"
}
