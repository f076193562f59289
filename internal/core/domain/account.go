package domain

import (
	"strings"
	"time"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Account is a registered user of the service.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PublicAccount is the part of an Account that may leave the service.
type PublicAccount struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles,omitempty"`
}

// Public returns the client-safe projection of the account.
func (a *Account) Public() PublicAccount {
	return PublicAccount{
		ID:       a.ID,
		Username: a.Username,
		Roles:    append([]string(nil), a.Roles...),
	}
}

// HasRole reports whether role is part of the account's role set.
func (a *Account) HasRole(role string) bool {
	return containsRole(a.Roles, role)
}

// NormalizeRoles trims, drops empty entries and de-duplicates roles while
// keeping their first-seen order. An empty result becomes the default set so
// that an account or token never carries an empty role set.
func NormalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	if len(out) == 0 {
		return DefaultRoles()
	}
	return out
}

// DefaultRoles returns a fresh copy of the role set given to new accounts.
func DefaultRoles() []string {
	return []string{RoleUser}
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
