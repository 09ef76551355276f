package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/spec-kit/auth-engine/internal/auth"
	"github.com/spec-kit/auth-engine/internal/domain"
	"github.com/spec-kit/auth-engine/internal/events"
	"github.com/spec-kit/auth-engine/internal/observability"
	"github.com/spec-kit/auth-engine/internal/repository"
)

// LoginStatus is the kind of a LoginOutcome.
type LoginStatus string

const (
	LoginSuccess           LoginStatus = "success"
	LoginUserNotFound      LoginStatus = "user_not_found"
	LoginIncorrectPassword LoginStatus = "incorrect_password"
	LoginForbidden         LoginStatus = "forbidden"
)

// LoginOutcome is the result of a login attempt. Token is set only on LoginSuccess.
type LoginOutcome struct {
	Status LoginStatus
	Token  *auth.IssuedToken
}

// PasswordVerifier checks a plaintext against a stored hash.
type PasswordVerifier interface {
	Verify(plaintext, encoded string) bool
}

// LoginRecorder receives login metrics. *observability.Metrics implements it.
type LoginRecorder interface {
	RecordLogin(outcome string)
	ObservePasswordVerify(d time.Duration)
}

// AuthService implements the credential verification use case.
type AuthService struct {
	credentials repository.CredentialRepository
	verifier    PasswordVerifier
	tokens      *auth.TokenManager
	slots       *semaphore.Weighted
	dispatcher  events.Dispatcher
	recorder    LoginRecorder
	logger      *zap.Logger
}

// AuthDependencies encapsulates collaborators for the auth service.
// Dispatcher, Recorder and Logger are optional.
type AuthDependencies struct {
	Credentials         repository.CredentialRepository
	Verifier            PasswordVerifier
	Tokens              *auth.TokenManager
	MaxConcurrentHashes int
	Dispatcher          events.Dispatcher
	Recorder            LoginRecorder
	Logger              *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	slots := deps.MaxConcurrentHashes
	if slots < 1 {
		slots = 1
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		credentials: deps.Credentials,
		verifier:    deps.Verifier,
		tokens:      deps.Tokens,
		slots:       semaphore.NewWeighted(int64(slots)),
		dispatcher:  deps.Dispatcher,
		recorder:    deps.Recorder,
		logger:      logger,
	}
}

// Login verifies identity and plaintext and issues a token on success.
// Checks run in a fixed order: lookup, ban, password, issue. A banned account
// is reported as forbidden without evaluating the password. Expected failures
// are outcomes; the error return is for directory, cancellation and signing failures.
func (s *AuthService) Login(ctx context.Context, identity domain.Email, plaintext string) (LoginOutcome, error) {
	cred, err := s.credentials.FindByEmail(ctx, identity)
	if errors.Is(err, repository.ErrCredentialNotFound) {
		return s.reject(ctx, identity, LoginUserNotFound), nil
	}
	if err != nil {
		return LoginOutcome{}, fmt.Errorf("lookup credential: %w", err)
	}

	if cred.HasRole(domain.RoleBanned) {
		return s.reject(ctx, identity, LoginForbidden), nil
	}

	ok, err := s.verify(ctx, plaintext, cred.PasswordHash)
	if err != nil {
		return LoginOutcome{}, err
	}
	if !ok {
		return s.reject(ctx, identity, LoginIncorrectPassword), nil
	}

	issued, err := s.tokens.Issue(cred.Identity, cred.Roles)
	if err != nil {
		return LoginOutcome{}, fmt.Errorf("issue token: %w", err)
	}

	s.record(LoginSuccess)
	s.logger.Info("login succeeded",
		zap.String("email", observability.MaskEmail(identity.String())),
		zap.String("token_id", issued.Claims.TokenID.String()))
	s.publish(ctx, events.NewEvent(events.EventLoginSucceeded, identity, events.LoginSucceededPayload{
		TokenID:   issued.Claims.TokenID.String(),
		Roles:     issued.Claims.Roles,
		ExpiresAt: issued.ExpiresAt,
	}))

	return LoginOutcome{Status: LoginSuccess, Token: issued}, nil
}

func (s *AuthService) verify(ctx context.Context, plaintext, encoded string) (bool, error) {
	if err := s.slots.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("wait for hashing slot: %w", err)
	}
	defer s.slots.Release(1)

	start := time.Now()
	ok := s.verifier.Verify(plaintext, encoded)
	if s.recorder != nil {
		s.recorder.ObservePasswordVerify(time.Since(start))
	}
	return ok, nil
}

func (s *AuthService) reject(ctx context.Context, identity domain.Email, status LoginStatus) LoginOutcome {
	s.record(status)
	s.logger.Info("login rejected",
		zap.String("email", observability.MaskEmail(identity.String())),
		zap.String("outcome", string(status)))
	s.publish(ctx, events.NewEvent(events.EventLoginRejected, identity, events.LoginRejectedPayload{
		Outcome: string(status),
	}))
	return LoginOutcome{Status: status}
}

func (s *AuthService) record(status LoginStatus) {
	if s.recorder != nil {
		s.recorder.RecordLogin(string(status))
	}
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}
