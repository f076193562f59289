package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// PasswordHasher hashes and verifies passwords. Verify reports a mismatch or
// an unparsable hash as false, never as an error.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// TokenCodec issues and verifies signed session tokens. Decode failures are
// one of domain.ErrTokenExpired, domain.ErrTokenMalformed or
// domain.ErrTokenSignatureMismatch.
type TokenCodec interface {
	Encode(subject string, roles []string) (string, error)
	Decode(token string) (domain.TokenClaims, error)
}

// RoleResolver returns the current role set of an account.
type RoleResolver interface {
	ResolveRoles(ctx context.Context, username string) ([]string, error)
}
