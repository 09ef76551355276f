package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-engine/internal/domain"
	apperrors "github.com/spec-kit/auth-engine/pkg/util"
)

const claimsKey = "auth_claims"

// RejectionRecorder observes rejected credentials. Metrics and audit hooks implement it.
type RejectionRecorder interface {
	RecordTokenRejection(kind TokenErrorKind)
}

// AuthorizationGate validates bearer tokens and exposes their claims to later stages.
type AuthorizationGate struct {
	tokens   *TokenManager
	recorder RejectionRecorder
}

// NewAuthorizationGate constructs the gate. recorder may be nil.
func NewAuthorizationGate(tokens *TokenManager, recorder RejectionRecorder) *AuthorizationGate {
	return &AuthorizationGate{tokens: tokens, recorder: recorder}
}

// Handle enforces a valid bearer token on the request.
func (g *AuthorizationGate) Handle(c *fiber.Ctx) error {
	if err := g.authenticate(c); err != nil {
		return err
	}
	return c.Next()
}

// Require validates the token and evaluates reqs in a single stage.
func (g *AuthorizationGate) Require(reqs ...RoleRequirement) fiber.Handler {
	check := RequireRoles(reqs...)
	return func(c *fiber.Ctx) error {
		if err := g.authenticate(c); err != nil {
			return err
		}
		return check(c)
	}
}

func (g *AuthorizationGate) authenticate(c *fiber.Ctx) error {
	claims, err := g.tokens.Validate(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		var tokErr *TokenError
		if !errors.As(err, &tokErr) {
			return apperrors.NewInternalError(err)
		}
		if g.recorder != nil {
			g.recorder.RecordTokenRejection(tokErr.Kind)
		}
		return TokenErrorToDomain(tokErr)
	}
	c.Locals(claimsKey, claims)
	return nil
}

// ClaimsFromContext retrieves the validated claims stored by the gate.
func ClaimsFromContext(c *fiber.Ctx) (*domain.TokenClaims, bool) {
	val := c.Locals(claimsKey)
	if val == nil {
		return nil, false
	}
	claims, ok := val.(*domain.TokenClaims)
	return claims, ok && claims != nil
}

// TokenErrorToDomain maps a token rejection to a 401 with a kind-specific code.
func TokenErrorToDomain(err *TokenError) error {
	switch err.Kind {
	case TokenMissingCredential:
		return apperrors.NewTokenError("MISSING_CREDENTIAL", "missing authorization header")
	case TokenMalformedCredential:
		return apperrors.NewTokenError("MALFORMED_CREDENTIAL", "invalid authorization format: expected 'Bearer <token>'")
	case TokenExpired:
		return apperrors.NewTokenError("TOKEN_EXPIRED", "access token expired")
	case TokenMalformedClaims:
		return apperrors.NewTokenError("MALFORMED_CLAIMS", "access token claims are malformed")
	default:
		return apperrors.NewTokenError("INVALID_TOKEN", "invalid access token")
	}
}
