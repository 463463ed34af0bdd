// ABOUTME: Tests for configuration parsing, defaults, and validation
// ABOUTME: The JWT secret checks are the fail-fast startup guard

package config

import (
	"strings"
	"testing"
	"time"
)

const validSecret = "a-valid-secret-that-is-long-enough-32b!"

func validYAML() string {
	return `
environment: "production"
server:
  http_addr: "localhost:8080"
database:
  path: "/tmp/test.db"
auth:
  jwt_secret: "` + validSecret + `"
logging:
  level: "info"
  format: "text"
`
}

func TestParse_Valid(t *testing.T) {
	cfg, err := Parse([]byte(validYAML()))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Server.HTTPAddr != "localhost:8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "localhost:8080")
	}
	if cfg.Auth.JWTSecret != validSecret {
		t.Errorf("JWTSecret = %q, want %q", cfg.Auth.JWTSecret, validSecret)
	}
	if cfg.Auth.TokenLifetime != DefaultTokenLifetime {
		t.Errorf("TokenLifetime = %v, want %v", cfg.Auth.TokenLifetime, DefaultTokenLifetime)
	}
	if cfg.Auth.APIKeyDefaultDays != DefaultAPIKeyDefaultDays {
		t.Errorf("APIKeyDefaultDays = %d, want %d", cfg.Auth.APIKeyDefaultDays, DefaultAPIKeyDefaultDays)
	}
}

func TestParse_TokenLifetime(t *testing.T) {
	yaml := strings.Replace(validYAML(),
		"logging:",
		"  token_lifetime: \"2h\"\nlogging:", 1)

	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Auth.TokenLifetime != 2*time.Hour {
		t.Errorf("TokenLifetime = %v, want 2h", cfg.Auth.TokenLifetime)
	}
}

func TestParse_BadTokenLifetime(t *testing.T) {
	yaml := strings.Replace(validYAML(),
		"logging:",
		"  token_lifetime: \"soon\"\nlogging:", 1)

	if _, err := Parse([]byte(yaml)); err == nil {
		t.Error("Parse should reject an unparseable token_lifetime")
	}
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_VULNSCAN_SECRET", validSecret)

	yaml := strings.Replace(validYAML(), validSecret, "${TEST_VULNSCAN_SECRET}", 1)

	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Auth.JWTSecret != validSecret {
		t.Errorf("JWTSecret = %q, want expanded %q", cfg.Auth.JWTSecret, validSecret)
	}
}

func TestValidate_SecretRules(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		secret      string
		wantErr     bool
	}{
		{"production with valid secret", EnvProduction, validSecret, false},
		{"production with no secret", EnvProduction, "", true},
		{"production with dev secret", EnvProduction, DevSecret, true},
		{"production with short secret", EnvProduction, "short", true},
		{"development with no secret", EnvDevelopment, "", false},
		{"development with short secret", EnvDevelopment, "short", true},
		{"development with valid secret", EnvDevelopment, validSecret, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yaml := strings.Replace(validYAML(), "production", tt.environment, 1)
			yaml = strings.Replace(yaml, validSecret, tt.secret, 1)

			_, err := Parse([]byte(yaml))
			if tt.wantErr && err == nil {
				t.Error("Parse should have failed")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Parse failed: %v", err)
			}
		})
	}
}

func TestParse_DevSecretFallback(t *testing.T) {
	yaml := strings.Replace(validYAML(), "production", EnvDevelopment, 1)
	yaml = strings.Replace(yaml, validSecret, "", 1)

	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Auth.JWTSecret != DevSecret {
		t.Errorf("JWTSecret = %q, want the development default", cfg.Auth.JWTSecret)
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "missing http_addr",
			mutate:  func(y string) string { return strings.Replace(y, `http_addr: "localhost:8080"`, `http_addr: ""`, 1) },
			wantErr: "http_addr",
		},
		{
			name:    "missing database path",
			mutate:  func(y string) string { return strings.Replace(y, `path: "/tmp/test.db"`, `path: ""`, 1) },
			wantErr: "database.path",
		},
		{
			name:    "unknown environment",
			mutate:  func(y string) string { return strings.Replace(y, "production", "staging", 1) },
			wantErr: "environment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.mutate(validYAML())))
			if err == nil {
				t.Fatal("Parse should have failed")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load should fail for a missing file")
	}
}

func TestParse_DefaultEnvironment(t *testing.T) {
	yaml := strings.Replace(validYAML(), `environment: "production"`, "", 1)

	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Environment != EnvProduction {
		t.Errorf("Environment = %q, want default %q", cfg.Environment, EnvProduction)
	}
}
