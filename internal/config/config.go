// ABOUTME: Configuration loading and parsing for the vulnscan server
// ABOUTME: YAML with environment variable expansion; the JWT secret is validated at startup

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// DevSecret is the well-known development-only signing secret. It is accepted
// only when environment is "development"; anywhere else startup fails.
const DevSecret = "insecure-dev-secret-do-not-use-32b"

// MinSecretLength is the minimum JWT signing secret length in bytes.
const MinSecretLength = 32

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config represents the complete vulnscan configuration
type Config struct {
	Environment string         `yaml:"environment"`
	Server      ServerConfig   `yaml:"server"`
	Database    DatabaseConfig `yaml:"database"`
	Auth        AuthConfig     `yaml:"auth"`
	Logging     LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`

	// TokenLifetime is the session token validity window (default 24h).
	TokenLifetime    time.Duration `yaml:"-"`
	TokenLifetimeRaw string        `yaml:"token_lifetime"`

	// APIKeyDefaultDays is the default API key lifetime in days (default 365).
	APIKeyDefaultDays int `yaml:"api_key_default_days"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults applied by Load for fields left unset.
const (
	DefaultTokenLifetime     = 24 * time.Hour
	DefaultAPIKeyDefaultDays = 365
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse parses raw YAML configuration bytes. Exposed for tests and for
// callers that assemble configuration in memory.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills unset fields and parses duration strings.
func (c *Config) applyDefaults() error {
	if c.Environment == "" {
		c.Environment = EnvProduction
	}

	c.Auth.TokenLifetime = DefaultTokenLifetime
	if c.Auth.TokenLifetimeRaw != "" {
		d, err := time.ParseDuration(c.Auth.TokenLifetimeRaw)
		if err != nil {
			return fmt.Errorf("parsing token_lifetime %q: %w", c.Auth.TokenLifetimeRaw, err)
		}
		c.Auth.TokenLifetime = d
	}

	if c.Auth.APIKeyDefaultDays == 0 {
		c.Auth.APIKeyDefaultDays = DefaultAPIKeyDefaultDays
	}

	// The development environment may run without an explicit secret.
	if c.Auth.JWTSecret == "" && c.Environment == EnvDevelopment {
		c.Auth.JWTSecret = DevSecret
	}

	return nil
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
// The JWT secret check fails fast: a missing, short, or known-insecure secret
// is rejected in any environment other than development.
func (c *Config) Validate() error {
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return fmt.Errorf("environment must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Environment)
	}

	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Environment != EnvDevelopment {
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret is required outside development")
		}
		if c.Auth.JWTSecret == DevSecret {
			return fmt.Errorf("auth.jwt_secret is the insecure development default; set a real secret")
		}
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < MinSecretLength {
		return fmt.Errorf("auth.jwt_secret must be at least %d bytes, got %d", MinSecretLength, len(c.Auth.JWTSecret))
	}

	if c.Auth.TokenLifetime <= 0 {
		return fmt.Errorf("token_lifetime must be positive")
	}

	if c.Auth.APIKeyDefaultDays <= 0 {
		return fmt.Errorf("api_key_default_days must be positive")
	}

	return nil
}
