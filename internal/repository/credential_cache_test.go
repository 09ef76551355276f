package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/auth-engine/internal/domain"
)

type stubDirectory struct {
	creds map[domain.Email]*domain.Credential
	err   error
	calls int
}

func (s *stubDirectory) FindByEmail(_ context.Context, email domain.Email) (*domain.Credential, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	cred, ok := s.creds[email]
	if !ok {
		return nil, ErrCredentialNotFound
	}
	return cred, nil
}

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func testDirectory() *stubDirectory {
	return &stubDirectory{creds: map[domain.Email]*domain.Credential{
		"test@test.com": {
			Identity:     "test@test.com",
			PasswordHash: "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$ZGlnZXN0",
			Roles:        []domain.Role{"test", domain.RoleModerator},
		},
	}}
}

func TestCachedCredentialRepository_CacheAside(t *testing.T) {
	client, server := newTestRedis(t)
	next := testDirectory()
	repo := NewCachedCredentialRepository(next, client, time.Minute, zaptest.NewLogger(t))

	ctx := context.Background()
	first, err := repo.FindByEmail(ctx, "test@test.com")
	if err != nil {
		t.Fatalf("FindByEmail returned error: %v", err)
	}
	if !server.Exists("credential:test@test.com") {
		t.Fatal("credential should be cached after a miss")
	}
	if ttl := server.TTL("credential:test@test.com"); ttl != time.Minute {
		t.Errorf("cache TTL = %v, want 1m", ttl)
	}

	second, err := repo.FindByEmail(ctx, "test@test.com")
	if err != nil {
		t.Fatalf("FindByEmail returned error: %v", err)
	}
	if next.calls != 1 {
		t.Errorf("directory calls = %d, want 1", next.calls)
	}
	if second.PasswordHash != first.PasswordHash || len(second.Roles) != 2 || second.Roles[1] != domain.RoleModerator {
		t.Errorf("cached credential = %+v, want %+v", second, first)
	}

	server.FastForward(2 * time.Minute)
	if _, err := repo.FindByEmail(ctx, "test@test.com"); err != nil {
		t.Fatalf("FindByEmail returned error: %v", err)
	}
	if next.calls != 2 {
		t.Errorf("directory calls after expiry = %d, want 2", next.calls)
	}
}

func TestCachedCredentialRepository_NotFoundIsNotCached(t *testing.T) {
	client, server := newTestRedis(t)
	next := testDirectory()
	repo := NewCachedCredentialRepository(next, client, time.Minute, zaptest.NewLogger(t))

	for i := 0; i < 2; i++ {
		if _, err := repo.FindByEmail(context.Background(), "nobody@test.com"); !errors.Is(err, ErrCredentialNotFound) {
			t.Fatalf("FindByEmail error = %v, want ErrCredentialNotFound", err)
		}
	}
	if server.Exists("credential:nobody@test.com") {
		t.Error("a missing credential must not be cached")
	}
	if next.calls != 2 {
		t.Errorf("directory calls = %d, want 2", next.calls)
	}
}

func TestCachedCredentialRepository_RedisDown(t *testing.T) {
	client, server := newTestRedis(t)
	next := testDirectory()
	repo := NewCachedCredentialRepository(next, client, time.Minute, zaptest.NewLogger(t))
	server.Close()

	cred, err := repo.FindByEmail(context.Background(), "test@test.com")
	if err != nil {
		t.Fatalf("FindByEmail should bypass a failing cache, got %v", err)
	}
	if cred.Identity != "test@test.com" {
		t.Errorf("Identity = %q", cred.Identity)
	}
}

func TestCachedCredentialRepository_CorruptEntry(t *testing.T) {
	client, server := newTestRedis(t)
	next := testDirectory()
	repo := NewCachedCredentialRepository(next, client, time.Minute, zaptest.NewLogger(t))

	if err := server.Set("credential:test@test.com", "{not json"); err != nil {
		t.Fatalf("miniredis Set: %v", err)
	}
	cred, err := repo.FindByEmail(context.Background(), "test@test.com")
	if err != nil {
		t.Fatalf("FindByEmail returned error: %v", err)
	}
	if next.calls != 1 || cred.PasswordHash == "" {
		t.Errorf("corrupt entry should fall through to the directory")
	}
}

func TestNewCachedCredentialRepository_Disabled(t *testing.T) {
	next := testDirectory()
	if got := NewCachedCredentialRepository(next, nil, time.Minute, nil); got != CredentialRepository(next) {
		t.Error("nil client should return the directory unchanged")
	}
	client, _ := newTestRedis(t)
	if got := NewCachedCredentialRepository(next, client, 0, nil); got != CredentialRepository(next) {
		t.Error("zero ttl should return the directory unchanged")
	}
}

func TestCachedCredentialRepository_BanVisibleAfterTTL(t *testing.T) {
	client, server := newTestRedis(t)
	next := testDirectory()
	repo := NewCachedCredentialRepository(next, client, 30*time.Second, zaptest.NewLogger(t))
	ctx := context.Background()

	if _, err := repo.FindByEmail(ctx, "test@test.com"); err != nil {
		t.Fatalf("FindByEmail returned error: %v", err)
	}

	banned := *next.creds["test@test.com"]
	banned.Roles = append([]domain.Role{domain.RoleBanned}, banned.Roles...)
	next.creds["test@test.com"] = &banned

	cached, err := repo.FindByEmail(ctx, "test@test.com")
	if err != nil {
		t.Fatalf("FindByEmail returned error: %v", err)
	}
	if domain.NewRoleSet(cached.Roles...).Has(domain.RoleBanned) {
		t.Fatal("a ban inside the TTL window should still be served from cache")
	}

	server.FastForward(31 * time.Second)

	fresh, err := repo.FindByEmail(ctx, "test@test.com")
	if err != nil {
		t.Fatalf("FindByEmail returned error: %v", err)
	}
	if !domain.NewRoleSet(fresh.Roles...).Has(domain.RoleBanned) {
		t.Errorf("roles after TTL = %v, want the ban from the directory", fresh.Roles)
	}
}
