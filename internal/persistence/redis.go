package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-engine/internal/config"
)

const cacheProbeTimeout = 2 * time.Second

var errCacheDisabled = errors.New("credential cache: disabled")

// Redis holds the client behind the credential cache. A nil Client means
// the cache is disabled and lookups go straight to the directory.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds the cache client. An unreachable server is logged but still
// returned: the cache falls back to the directory on every Redis error.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if cfg.Addr == "" {
		logger.Info("credential cache disabled", zap.String("reason", "REDIS_ADDR empty"))
		return &Redis{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	probeCtx, cancel := context.WithTimeout(ctx, cacheProbeTimeout)
	defer cancel()
	if err := client.Ping(probeCtx).Err(); err != nil {
		logger.Warn("credential cache unreachable; serving from directory",
			zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("credential cache connected", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	}

	return &Redis{Client: client}
}

// Enabled reports whether a cache client was configured.
func (r *Redis) Enabled() bool {
	return r != nil && r.Client != nil
}

// Ping reports whether the cache is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	if !r.Enabled() {
		return errCacheDisabled
	}
	return r.Client.Ping(ctx).Err()
}

// Close closes the client.
func (r *Redis) Close() {
	if r.Enabled() {
		_ = r.Client.Close()
	}
}
