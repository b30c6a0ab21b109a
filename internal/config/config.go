package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	DatabaseURL string   `env:"DATABASE_URL,required"`
	Port        int      `env:"PORT,default=8080"`
	LogLevel    string   `env:"LOG_LEVEL,default=info"`
	CORSOrigins []string `env:"CORS_ORIGINS"`

	// HTTP server timeouts
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT,default=15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT,default=30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT,default=60s"`

	// Outbound call to the supplier's API
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT,default=10s"`

	JWTSecret    string `env:"JWT_SECRET,required"`
	APIKeyPrefix string `env:"API_KEY_PREFIX,default=itouch-"`

	ChargilyAPIURL    string `env:"CHARGILY_API_URL,default=https://pay.chargily.net/test/api/v2"`
	ChargilySecretKey string `env:"CHARGILY_SECRET_KEY,required"`
	ChargilyCurrency  string `env:"CHARGILY_CURRENCY,default=dzd"`

	RedisURL        string        `env:"REDIS_URL"`
	WebhookDedupTTL time.Duration `env:"WEBHOOK_DEDUP_TTL,default=72h"`

	MigrateOnStart bool `env:"MIGRATE_ON_START,default=true"`

	// Error reporting is off unless a DSN is set.
	SentryDSN         string  `env:"SENTRY_DSN"`
	SentryEnvironment string  `env:"SENTRY_ENVIRONMENT,default=development"`
	SentrySampleRate  float64 `env:"SENTRY_TRACES_SAMPLE_RATE,default=0.1"`

	CallRateLimitMax    int           `env:"CALL_RATE_LIMIT_MAX,default=60"`
	CallRateLimitWindow time.Duration `env:"CALL_RATE_LIMIT_WINDOW,default=60s"`

	AuthMaxFailures   int           `env:"AUTH_MAX_FAILURES,default=5"`
	AuthFailureWindow time.Duration `env:"AUTH_FAILURE_WINDOW,default=5m"`
	AuthBlockDuration time.Duration `env:"AUTH_BLOCK_DURATION,default=15m"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return load(envconfig.OsLookuper())
}

func load(lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL is not a valid level: %w", err)
	}

	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	u, err := url.Parse(c.ChargilyAPIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("CHARGILY_API_URL must be an absolute http(s) URL, got %q", c.ChargilyAPIURL)
	}

	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}

	if c.CallRateLimitMax < 1 || c.CallRateLimitWindow <= 0 {
		return fmt.Errorf("CALL_RATE_LIMIT_MAX and CALL_RATE_LIMIT_WINDOW must be positive")
	}

	if c.SentrySampleRate < 0 || c.SentrySampleRate > 1 {
		return fmt.Errorf("SENTRY_TRACES_SAMPLE_RATE must be between 0 and 1")
	}

	if strings.TrimSpace(c.APIKeyPrefix) == "" {
		return fmt.Errorf("API_KEY_PREFIX cannot be empty")
	}

	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
