package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-engine/internal/domain"
	apperrors "github.com/spec-kit/auth-engine/pkg/util"
)

// RoleRequirement is a declarative rule over the caller's roles. All three
// clauses must hold; an empty clause is vacuously satisfied.
//
//	All:  every role must be present
//	Some: at least one role must be present
//	None: no role may be present
type RoleRequirement struct {
	All  domain.RoleSet
	Some domain.RoleSet
	None domain.RoleSet
}

// RequireAll is shorthand for a requirement with only an All clause.
func RequireAll(roles ...domain.Role) RoleRequirement {
	return RoleRequirement{All: domain.NewRoleSet(roles...)}
}

// RequireSome is shorthand for a requirement with only a Some clause.
func RequireSome(roles ...domain.Role) RoleRequirement {
	return RoleRequirement{Some: domain.NewRoleSet(roles...)}
}

// RequireNone is shorthand for a requirement with only a None clause.
func RequireNone(roles ...domain.Role) RoleRequirement {
	return RoleRequirement{None: domain.NewRoleSet(roles...)}
}

// Evaluate reports whether claims satisfy req, stopping at the first unmet clause.
func Evaluate(claims *domain.TokenClaims, req RoleRequirement) bool {
	if claims == nil {
		return false
	}
	held := claims.RoleSet()

	for role := range req.All {
		if !held.Has(role) {
			return false
		}
	}

	if len(req.Some) > 0 {
		found := false
		for role := range req.Some {
			if held.Has(role) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for role := range req.None {
		if held.Has(role) {
			return false
		}
	}
	return true
}

// EvaluateAll ANDs chained requirements.
func EvaluateAll(claims *domain.TokenClaims, reqs ...RoleRequirement) bool {
	if claims == nil {
		return false
	}
	for _, req := range reqs {
		if !Evaluate(claims, req) {
			return false
		}
	}
	return true
}

// RequireRoles is a gate stage that runs after AuthorizationGate.Handle and
// rejects callers whose claims do not satisfy every requirement.
func RequireRoles(reqs ...RoleRequirement) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !EvaluateAll(claims, reqs...) {
			return apperrors.NewDomainError("INSUFFICIENT_ROLE", "insufficient role", fiber.StatusForbidden, nil)
		}
		return c.Next()
	}
}

// RequireAuthenticated only checks that a gate stage has stored claims.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := ClaimsFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
