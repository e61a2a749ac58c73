// Package config loads runtime configuration from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime configuration for the server.
type Config struct {
	Port     int        `env:"PORT,default=8000"`
	LogLevel slog.Level `env:"LOG_LEVEL,default=info"`

	Sessions SessionConfig

	XataAPIKey string `env:"XATA_API_KEY,required"`
	XataDBURL  string `env:"XATA_DB_URL,required"`
	APISecret  string `env:"API_SECRET,required"`

	OpenRouterAPIKey string `env:"OPENROUTER_API_KEY,required"`
	OpenRouterURL    string `env:"OPENROUTER_URL"`
	OpenRouterModel  string `env:"OPENROUTER_MODEL,default=deepseek/deepseek-chat-v3-0324:free"`

	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT,default=10s"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS,default=*"`
	AuthRateLimit   int           `env:"AUTH_RATE_LIMIT,default=20"`
}

// SessionConfig is the part of the configuration the session store needs.
// The sessions CLI loads only this, so it runs without upstream credentials.
type SessionConfig struct {
	DBPath       string        `env:"SESSION_DB_PATH,default=data/sessions.db"`
	TTL          time.Duration `env:"SESSION_TTL,default=720h"`
	ReapInterval time.Duration `env:"SESSION_REAP_INTERVAL,default=1h"`
}

// LoadDotEnv reads .env into the process environment if the file exists.
// Variables already set take precedence.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom is Load with an explicit variable source.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadSessions returns only the session store configuration.
func LoadSessions(ctx context.Context) (SessionConfig, error) {
	return LoadSessionsFrom(ctx, envconfig.OsLookuper())
}

func LoadSessionsFrom(ctx context.Context, l envconfig.Lookuper) (SessionConfig, error) {
	var cfg SessionConfig
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return SessionConfig{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return SessionConfig{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	if c.UpstreamTimeout <= 0 {
		return errors.New("config: UPSTREAM_TIMEOUT must be positive")
	}
	if c.AuthRateLimit < 1 {
		return errors.New("config: AUTH_RATE_LIMIT must be at least 1")
	}
	return c.Sessions.validate()
}

func (c SessionConfig) validate() error {
	if c.DBPath == "" {
		return errors.New("config: SESSION_DB_PATH must not be empty")
	}
	if c.TTL <= 0 {
		return errors.New("config: SESSION_TTL must be positive")
	}
	if c.ReapInterval < 0 {
		return errors.New("config: SESSION_REAP_INTERVAL must not be negative")
	}
	return nil
}
