package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/spec-kit/auth-engine/internal/auth"
)

const (
	devSecret = "dev-secret"

	maxTokenDurationSeconds = math.MaxInt64 / int64(time.Second)
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Cache    CacheConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token and password hashing parameters.
type AuthConfig struct {
	JWTSecret            string
	TokenDurationSeconds int

	Argon2MemoryKB     int
	Argon2Iterations   int
	Argon2Parallelism  int
	Argon2OutputLength int
	Argon2MaxMemoryKB  int

	MaxConcurrentHashes int
}

// CacheConfig controls the credential cache. A zero TTL disables it.
type CacheConfig struct {
	CredentialTTLSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	defaults := auth.DefaultCostParams()

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "auth-engine"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:            getEnv("AUTH_JWT_SECRET", devSecret),
			TokenDurationSeconds: getEnvAsInt("AUTH_TOKEN_DURATION_SECONDS", 3600),

			Argon2MemoryKB:     getEnvAsInt("AUTH_ARGON2_MEMORY_KB", int(defaults.MemoryKB)),
			Argon2Iterations:   getEnvAsInt("AUTH_ARGON2_ITERATIONS", int(defaults.Iterations)),
			Argon2Parallelism:  getEnvAsInt("AUTH_ARGON2_PARALLELISM", int(defaults.Parallelism)),
			Argon2OutputLength: getEnvAsInt("AUTH_ARGON2_OUTPUT_LENGTH", int(defaults.OutputLength)),
			Argon2MaxMemoryKB:  getEnvAsInt("AUTH_ARGON2_MAX_MEMORY_KB", int(auth.DefaultMaxMemoryKB)),

			MaxConcurrentHashes: getEnvAsInt("AUTH_MAX_CONCURRENT_HASHES", runtime.NumCPU()),
		},
		Cache: CacheConfig{
			CredentialTTLSeconds: getEnvAsInt("CREDENTIAL_CACHE_TTL_SECONDS", 60),
		},
	}

	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	} else if c.App.Env == "production" && c.Auth.JWTSecret == devSecret {
		errs = append(errs, errors.New("AUTH_JWT_SECRET must be set in production"))
	}
	if c.Auth.TokenDurationSeconds < 0 {
		errs = append(errs, errors.New("AUTH_TOKEN_DURATION_SECONDS must not be negative"))
	}
	if c.Auth.MaxConcurrentHashes < 1 {
		errs = append(errs, errors.New("AUTH_MAX_CONCURRENT_HASHES must be at least 1"))
	}
	if c.Cache.CredentialTTLSeconds < 0 {
		errs = append(errs, errors.New("CREDENTIAL_CACHE_TTL_SECONDS must not be negative"))
	}
	if int64(c.Auth.TokenDurationSeconds) > maxTokenDurationSeconds {
		errs = append(errs, fmt.Errorf("AUTH_TOKEN_DURATION_SECONDS must be at most %d", maxTokenDurationSeconds))
	}
	rangeErrs := []error{
		checkRange("AUTH_ARGON2_MEMORY_KB", c.Auth.Argon2MemoryKB, math.MaxUint32),
		checkRange("AUTH_ARGON2_ITERATIONS", c.Auth.Argon2Iterations, math.MaxUint32),
		checkRange("AUTH_ARGON2_PARALLELISM", c.Auth.Argon2Parallelism, math.MaxUint8),
		checkRange("AUTH_ARGON2_OUTPUT_LENGTH", c.Auth.Argon2OutputLength, math.MaxUint32),
		checkRange("AUTH_ARGON2_MAX_MEMORY_KB", c.Auth.Argon2MaxMemoryKB, math.MaxUint32),
	}
	if err := errors.Join(rangeErrs...); err != nil {
		errs = append(errs, err)
	} else {
		params := c.Auth.CostParams()
		if err := params.Validate(); err != nil {
			errs = append(errs, err)
		} else if limit := c.Auth.Argon2MaxMemoryKB; limit > 0 && params.MemoryKB > uint32(limit) {
			errs = append(errs, fmt.Errorf("AUTH_ARGON2_MEMORY_KB exceeds AUTH_ARGON2_MAX_MEMORY_KB: %w", auth.ErrMemoryLimit))
		}
	}
	return errors.Join(errs...)
}

// checkRange rejects values that would not survive conversion to the hashing parameter types.
func checkRange(name string, value int, limit uint64) error {
	if value < 0 || uint64(value) > limit {
		return fmt.Errorf("%s must be between 0 and %d, got %d", name, limit, value)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// TokenDuration returns the issued token lifetime.
func (a AuthConfig) TokenDuration() time.Duration {
	return time.Duration(a.TokenDurationSeconds) * time.Second
}

// CostParams returns the configured Argon2id parameters with the default salt length.
func (a AuthConfig) CostParams() auth.CostParams {
	return auth.CostParams{
		MemoryKB:     uint32(a.Argon2MemoryKB),
		Iterations:   uint32(a.Argon2Iterations),
		Parallelism:  uint8(a.Argon2Parallelism),
		OutputLength: uint32(a.Argon2OutputLength),
		SaltLength:   auth.DefaultCostParams().SaltLength,
	}
}

// MaxMemoryKB returns the hashing memory ceiling; zero selects the hasher default.
func (a AuthConfig) MaxMemoryKB() uint32 {
	return uint32(a.Argon2MaxMemoryKB)
}

// CredentialTTL returns the cache lifetime of a credential lookup.
func (c CacheConfig) CredentialTTL() time.Duration {
	return time.Duration(c.CredentialTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
