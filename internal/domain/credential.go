package domain

import (
	"errors"
	"net/mail"
	"strings"
)

// ErrInvalidEmail is returned when an identity is not a syntactically valid address.
var ErrInvalidEmail = errors.New("invalid email address")

// Email identifies a principal. Values produced by ParseEmail are trimmed and lower-cased.
type Email string

// ParseEmail validates and normalizes a raw address. Display names ("Bob <b@x.io>")
// are rejected; only the bare addr-spec is accepted.
func ParseEmail(raw string) (Email, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed || addr.Name != "" {
		return "", ErrInvalidEmail
	}
	at := strings.LastIndex(trimmed, "@")
	if at <= 0 || at == len(trimmed)-1 {
		return "", ErrInvalidEmail
	}
	return Email(strings.ToLower(trimmed)), nil
}

// String returns the address.
func (e Email) String() string {
	return string(e)
}

// Credential is the stored login material for a principal. It is owned by the
// credential directory and never mutated by the authentication core.
type Credential struct {
	Identity     Email
	PasswordHash string
	Roles        []Role
}

// HasRole reports whether the credential carries the given role.
func (c *Credential) HasRole(role Role) bool {
	if c == nil {
		return false
	}
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
