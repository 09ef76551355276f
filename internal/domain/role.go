package domain

import "sort"

// Role is a permission tag attached to a principal. Roles built from the same
// string are equal and can be used directly as map keys.
type Role string

const (
	RoleBanned     Role = "banned"
	RoleUnverified Role = "unverified"
	RoleAdmin      Role = "admin"
	RoleModerator  Role = "moderator"
)

// String returns the wire form of the role.
func (r Role) String() string {
	return string(r)
}

// RoleSet is an immutable-by-convention set of roles.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from the given roles, dropping duplicates and empty tags.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, role := range roles {
		if role == "" {
			continue
		}
		set[role] = struct{}{}
	}
	return set
}

// RolesFromStrings converts raw tags (e.g. from token claims) into a set.
func RolesFromStrings(values []string) RoleSet {
	set := make(RoleSet, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		set[Role(v)] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s RoleSet) Has(role Role) bool {
	_, ok := s[role]
	return ok
}

// Len returns the number of roles in the set.
func (s RoleSet) Len() int {
	return len(s)
}

// Slice returns the roles sorted lexically.
func (s RoleSet) Slice() []Role {
	out := make([]Role, 0, len(s))
	for role := range s {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RoleStrings converts roles to their wire form, preserving order.
func RoleStrings(roles []Role) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		out = append(out, string(role))
	}
	return out
}

// ParseRoles converts stored tags to roles, preserving order and dropping empty tags.
func ParseRoles(values []string) []Role {
	out := make([]Role, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, Role(v))
		}
	}
	return out
}
