// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Auth modes for the /api routes.
const (
	AuthModeEnforce = "enforce"
	AuthModeLog     = "log"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Port   int    `env:"PORT" envDefault:"3000"`

	// Brevo
	BrevoAPIKey string `env:"BREVO_API_KEY,required,notEmpty"`
	BrevoAPIURL string `env:"BREVO_API_URL" envDefault:"https://api.brevo.com/v3"`

	// Chatwoot (optional, but URL and token must be set together)
	ChatwootURL         string `env:"CHATWOOT_URL"`
	ChatwootAPIKey      string `env:"CHATWOOT_API_KEY"`
	ChatwootAccessToken string `env:"CHATWOOT_ACCESS_TOKEN"`
	ChatwootAccountID   string `env:"CHATWOOT_ACCOUNT_ID" envDefault:"1"`

	// Bearer token expected on /api requests from the dashboard
	APIToken string `env:"CHATWOOT_API_TOKEN"`
	AuthMode string `env:"AUTH_MODE" envDefault:"enforce"`

	// Outbound calls
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`

	// Cache (Redis), optional
	RedisURL      string        `env:"REDIS_URL"`
	ListsCacheTTL time.Duration `env:"LISTS_CACHE_TTL" envDefault:"5m"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// CORS configuration
	// Comma-separated list of allowed origins, or "*" for any origin
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// Directory holding the dashboard assets
	PublicDir string `env:"PUBLIC_DIR" envDefault:"public"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// ChatwootToken returns CHATWOOT_API_KEY, falling back to
// CHATWOOT_ACCESS_TOKEN.
func (c *Config) ChatwootToken() string {
	if c.ChatwootAPIKey != "" {
		return c.ChatwootAPIKey
	}
	return c.ChatwootAccessToken
}

// ChatwootConfigured reports whether both the Chatwoot URL and token are set.
func (c *Config) ChatwootConfigured() bool {
	return c.ChatwootURL != "" && c.ChatwootToken() != ""
}

// EnforceAuth reports whether requests without a valid token are rejected.
func (c *Config) EnforceAuth() bool {
	return c.AuthMode == AuthModeEnforce
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// ChatwootOrigin returns scheme://host of CHATWOOT_URL, or "" if unset.
func (c *Config) ChatwootOrigin() string {
	if c.ChatwootURL == "" {
		return ""
	}
	u, err := url.Parse(c.ChatwootURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.AuthMode {
	case AuthModeEnforce, AuthModeLog:
	default:
		errs = append(errs, fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeEnforce, AuthModeLog, c.AuthMode))
	}

	hasURL := c.ChatwootURL != ""
	hasToken := c.ChatwootToken() != ""
	switch {
	case hasURL && !hasToken:
		errs = append(errs, errors.New("CHATWOOT_URL is set but CHATWOOT_API_KEY is missing"))
	case hasToken && !hasURL:
		errs = append(errs, errors.New("CHATWOOT_API_KEY is set but CHATWOOT_URL is missing"))
	}

	if err := validateURL("BREVO_API_URL", c.BrevoAPIURL); err != nil {
		errs = append(errs, err)
	}
	if hasURL {
		if err := validateURL("CHATWOOT_URL", c.ChatwootURL); err != nil {
			errs = append(errs, err)
		}
	}

	if c.UpstreamTimeout <= 0 {
		errs = append(errs, errors.New("UPSTREAM_TIMEOUT must be positive"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}

	return errors.Join(errs...)
}

func validateURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s is missing a host", name)
	}
	return nil
}

// Load parses environment variables and returns a validated Config.
// Returns an error if required variables are missing or inconsistent.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
