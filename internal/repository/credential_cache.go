package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-engine/internal/domain"
)

const credentialKeyPrefix = "credential:"

type cachedCredential struct {
	Email        string   `json:"email"`
	PasswordHash string   `json:"password_hash"`
	Roles        []string `json:"roles"`
}

type cachedCredentialRepository struct {
	next   CredentialRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedCredentialRepository puts a Redis cache in front of next. With a nil
// client or a non-positive ttl it returns next unchanged.
func NewCachedCredentialRepository(next CredentialRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) CredentialRepository {
	if client == nil || ttl <= 0 {
		return next
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &cachedCredentialRepository{next: next, client: client, ttl: ttl, logger: logger}
}

func credentialKey(email domain.Email) string {
	return credentialKeyPrefix + email.String()
}

func (r *cachedCredentialRepository) FindByEmail(ctx context.Context, email domain.Email) (*domain.Credential, error) {
	key := credentialKey(email)

	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached cachedCredential
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return &domain.Credential{
				Identity:     domain.Email(cached.Email),
				PasswordHash: cached.PasswordHash,
				Roles:        domain.ParseRoles(cached.Roles),
			}, nil
		}
		r.logger.Warn("discarding unreadable cached credential")
	case errors.Is(err, redis.Nil):
	default:
		r.logger.Warn("credential cache read failed", zap.Error(err))
	}

	cred, err := r.next.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(cachedCredential{
		Email:        cred.Identity.String(),
		PasswordHash: cred.PasswordHash,
		Roles:        domain.RoleStrings(cred.Roles),
	})
	if err == nil {
		err = r.client.Set(ctx, key, payload, r.ttl).Err()
	}
	if err != nil {
		r.logger.Warn("credential cache write failed", zap.Error(err))
	}
	return cred, nil
}
