package domain

import "github.com/google/uuid"

// TokenClaims is the validated content of a bearer token. The expiry lives in the
// signed envelope and is not part of the claims.
type TokenClaims struct {
	TokenID uuid.UUID
	Subject Email
	Roles   []string
}

// RoleSet returns the claimed roles as a set.
func (c *TokenClaims) RoleSet() RoleSet {
	if c == nil {
		return RoleSet{}
	}
	return RolesFromStrings(c.Roles)
}
