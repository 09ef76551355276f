package repository

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/auth-engine/internal/domain"
)

// ErrCredentialNotFound is returned when no credential exists for an identity.
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialRepository is the read-only credential directory used by login.
type CredentialRepository interface {
	FindByEmail(ctx context.Context, email domain.Email) (*domain.Credential, error)
}

// Querier is the subset of pgx shared by *pgxpool.Pool, pgx.Tx and pgxmock.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type credentialRepository struct {
	db      Querier
	builder squirrel.StatementBuilderType
}

// NewCredentialRepository returns a Postgres-backed implementation.
func NewCredentialRepository(db Querier) CredentialRepository {
	return &credentialRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *credentialRepository) FindByEmail(ctx context.Context, email domain.Email) (*domain.Credential, error) {
	query, args, err := r.builder.
		Select("email", "password_hash", "roles").
		From("credentials").
		Where(squirrel.Eq{"email": email.String()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build credential query: %w", err)
	}

	var (
		identity string
		hash     string
		roles    []string
	)
	if err := r.db.QueryRow(ctx, query, args...).Scan(&identity, &hash, &roles); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("query credential: %w", err)
	}

	return &domain.Credential{
		Identity:     domain.Email(identity),
		PasswordHash: hash,
		Roles:        domain.ParseRoles(roles),
	}, nil
}
