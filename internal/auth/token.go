package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/auth-engine/internal/domain"
)

// TokenErrorKind classifies why a bearer credential was rejected.
type TokenErrorKind string

const (
	TokenMissingCredential   TokenErrorKind = "missing_credential"
	TokenMalformedCredential TokenErrorKind = "malformed_credential"
	TokenInvalidSignature    TokenErrorKind = "invalid_signature"
	TokenExpired             TokenErrorKind = "expired"
	TokenMalformedClaims     TokenErrorKind = "malformed_claims"
)

// TokenError is returned by Validate and ParseToken for every rejection.
type TokenError struct {
	Kind TokenErrorKind
	Err  error
}

func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token %s: %v", e.Kind, e.Err)
	}
	return "token " + string(e.Kind)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// Is matches any TokenError of the same kind, so callers can test against the
// Err* sentinels below.
func (e *TokenError) Is(target error) bool {
	var other *TokenError
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

var (
	ErrMissingCredential   = &TokenError{Kind: TokenMissingCredential}
	ErrMalformedCredential = &TokenError{Kind: TokenMalformedCredential}
	ErrInvalidSignature    = &TokenError{Kind: TokenInvalidSignature}
	ErrTokenExpired        = &TokenError{Kind: TokenExpired}
	ErrMalformedClaims     = &TokenError{Kind: TokenMalformedClaims}
)

func tokenError(kind TokenErrorKind, err error) *TokenError {
	return &TokenError{Kind: kind, Err: err}
}

const bearerScheme = "Bearer"

// TokenManager issues and validates HS256 tokens. It keeps no record of issued
// tokens; validity depends only on signature and expiry.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a manager. A zero ttl issues tokens that are already expired.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl < 0 {
		ttl = 0
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns the configured token lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// wireClaims is the signed payload: jti, email, roles, exp and iat.
type wireClaims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// IssuedToken is a freshly signed token together with what it carries.
type IssuedToken struct {
	Token     string
	Claims    domain.TokenClaims
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issue signs a token for subject carrying roles. Each call gets a new token id.
func (tm *TokenManager) Issue(subject domain.Email, roles []domain.Role) (*IssuedToken, error) {
	if subject == "" {
		return nil, errors.New("token subject is required")
	}
	if len(tm.secret) == 0 {
		return nil, errors.New("token signing secret is not configured")
	}

	now := tm.now()
	id := uuid.New()
	claims := &wireClaims{
		Email: subject.String(),
		Roles: domain.RoleStrings(roles),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &IssuedToken{
		Token: signed,
		Claims: domain.TokenClaims{
			TokenID: id,
			Subject: subject,
			Roles:   claims.Roles,
		},
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Validate checks an Authorization header value ("Bearer <token>") and returns
// its claims. Checks run in order: envelope, signature, expiry, claim shape.
func (tm *TokenManager) Validate(bearerValue string) (*domain.TokenClaims, error) {
	raw, err := extractBearer(bearerValue)
	if err != nil {
		return nil, err
	}
	return tm.ParseToken(raw)
}

// ParseToken validates a raw token without the scheme prefix.
func (tm *TokenManager) ParseToken(raw string) (*domain.TokenClaims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, tokenError(TokenMissingCredential, nil)
	}
	if strings.Count(raw, ".") != 2 {
		return nil, tokenError(TokenMalformedCredential, errors.New("expected header.payload.signature"))
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
		jwt.WithStrictDecoding(),
	)
	mapped := jwt.MapClaims{}
	if _, err := parser.ParseWithClaims(raw, mapped, func(*jwt.Token) (interface{}, error) {
		return tm.secret, nil
	}); err != nil {
		return nil, tokenError(TokenInvalidSignature, err)
	}

	exp, err := mapped.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, tokenError(TokenMalformedClaims, errors.New("exp claim missing or invalid"))
	}
	if !tm.now().Before(exp.Time) {
		return nil, tokenError(TokenExpired, fmt.Errorf("expired at %s", exp.Time.UTC().Format(time.RFC3339)))
	}

	return claimsFromMap(mapped)
}

func extractBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", tokenError(TokenMissingCredential, nil)
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return "", tokenError(TokenMalformedCredential, errors.New("expected 'Bearer <token>'"))
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", tokenError(TokenMalformedCredential, errors.New("empty bearer token"))
	}
	return token, nil
}

func claimsFromMap(mapped jwt.MapClaims) (*domain.TokenClaims, error) {
	jti, _ := mapped["jti"].(string)
	id, err := uuid.Parse(jti)
	if err != nil {
		return nil, tokenError(TokenMalformedClaims, errors.New("jti must be a UUID"))
	}

	rawEmail, _ := mapped["email"].(string)
	email, err := domain.ParseEmail(rawEmail)
	if err != nil {
		return nil, tokenError(TokenMalformedClaims, fmt.Errorf("email: %w", err))
	}

	rawRoles, ok := mapped["roles"].([]interface{})
	if !ok {
		return nil, tokenError(TokenMalformedClaims, errors.New("roles must be an array"))
	}
	roles := make([]string, 0, len(rawRoles))
	for _, r := range rawRoles {
		role, ok := r.(string)
		if !ok {
			return nil, tokenError(TokenMalformedClaims, errors.New("roles must be strings"))
		}
		roles = append(roles, role)
	}

	return &domain.TokenClaims{TokenID: id, Subject: email, Roles: roles}, nil
}
