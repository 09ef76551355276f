package config

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/auth-engine/internal/auth"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("AUTH_TOKEN_DURATION_SECONDS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.TokenDuration() != time.Hour {
		t.Errorf("TokenDuration() = %v, want 1h", cfg.Auth.TokenDuration())
	}
	if cfg.Auth.CostParams() != auth.DefaultCostParams() {
		t.Errorf("CostParams() = %+v, want defaults", cfg.Auth.CostParams())
	}
	if cfg.Auth.MaxConcurrentHashes < 1 {
		t.Errorf("MaxConcurrentHashes = %d, want >= 1", cfg.Auth.MaxConcurrentHashes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on development defaults error = %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("AUTH_TOKEN_DURATION_SECONDS", "0")
	t.Setenv("AUTH_ARGON2_MEMORY_KB", "19456")
	t.Setenv("AUTH_ARGON2_ITERATIONS", "2")
	t.Setenv("AUTH_ARGON2_PARALLELISM", "1")
	t.Setenv("AUTH_MAX_CONCURRENT_HASHES", "3")
	t.Setenv("CREDENTIAL_CACHE_TTL_SECONDS", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Errorf("JWTSecret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.Auth.TokenDuration() != 0 {
		t.Errorf("TokenDuration() = %v, want 0", cfg.Auth.TokenDuration())
	}
	params := cfg.Auth.CostParams()
	if params.MemoryKB != 19456 || params.Iterations != 2 || params.Parallelism != 1 {
		t.Errorf("CostParams() = %+v", params)
	}
	if cfg.Auth.MaxConcurrentHashes != 3 {
		t.Errorf("MaxConcurrentHashes = %d, want 3", cfg.Auth.MaxConcurrentHashes)
	}
	if cfg.Cache.CredentialTTL() != 0 {
		t.Errorf("CredentialTTL() = %v, want 0", cfg.Cache.CredentialTTL())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "one")
	if _, err := Load(); err == nil {
		t.Error("Load() should reject a non-numeric REDIS_DB")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App: AppConfig{Env: "production"},
			Auth: AuthConfig{
				JWTSecret:            "prod-secret",
				TokenDurationSeconds: 60,
				Argon2MemoryKB:       65536,
				Argon2Iterations:     3,
				Argon2Parallelism:    4,
				Argon2OutputLength:   32,
				Argon2MaxMemoryKB:    1 << 20,
				MaxConcurrentHashes:  2,
			},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("Validate() on a valid config error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"dev secret in production", func(c *Config) { c.Auth.JWTSecret = devSecret }},
		{"negative duration", func(c *Config) { c.Auth.TokenDurationSeconds = -1 }},
		{"no hashing slots", func(c *Config) { c.Auth.MaxConcurrentHashes = 0 }},
		{"zero iterations", func(c *Config) { c.Auth.Argon2Iterations = 0 }},
		{"parallelism overflow", func(c *Config) { c.Auth.Argon2Parallelism = 300 }},
		{"memory above ceiling", func(c *Config) { c.Auth.Argon2MaxMemoryKB = 1024 }},
		{"max memory wraps uint32", func(c *Config) { c.Auth.Argon2MaxMemoryKB = math.MaxUint32 + 1 }},
		{"memory wraps uint32", func(c *Config) { c.Auth.Argon2MemoryKB = math.MaxUint32 + 65536 }},
		{"iterations wrap uint32", func(c *Config) { c.Auth.Argon2Iterations = math.MaxUint32 + 3 }},
		{"output length wraps uint32", func(c *Config) { c.Auth.Argon2OutputLength = math.MaxUint32 + 32 }},
		{"negative max memory", func(c *Config) { c.Auth.Argon2MaxMemoryKB = -1 }},
		{"duration overflows", func(c *Config) { c.Auth.TokenDurationSeconds = math.MaxInt64 / 1000 }},
		{"negative cache ttl", func(c *Config) { c.Cache.CredentialTTLSeconds = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() error = nil, want an error")
			}
		})
	}
}

func TestLoad_MaxMemoryAboveUint32(t *testing.T) {
	t.Setenv("AUTH_ARGON2_MAX_MEMORY_KB", "4294967296")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	err = cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "AUTH_ARGON2_MAX_MEMORY_KB") {
		t.Fatalf("Validate() error = %v, want AUTH_ARGON2_MAX_MEMORY_KB out of range", err)
	}
}

func TestAuthConfig_MaxMemoryKB(t *testing.T) {
	a := AuthConfig{Argon2MaxMemoryKB: 2 << 20}
	if a.MaxMemoryKB() != 2<<20 {
		t.Errorf("MaxMemoryKB() = %d", a.MaxMemoryKB())
	}
}
