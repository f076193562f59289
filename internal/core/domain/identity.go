package domain

import "time"

// TokenClaims is the claim set carried by a signed session token.
type TokenClaims struct {
	Subject   string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Identity is the caller resolved from a valid token. It lives for a single
// request and is never persisted.
type Identity struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// HasRole reports whether the identity carries role.
func (i Identity) HasRole(role string) bool {
	return containsRole(i.Roles, role)
}
