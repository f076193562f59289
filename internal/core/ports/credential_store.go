package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// CredentialStore persists accounts.
//
// FindByUsername returns domain.ErrAccountNotFound when no account matches.
// Save returns domain.ErrDuplicateUsername when the username is taken and
// must not leave a partial record behind in that case. Any other failure
// wraps domain.ErrStoreUnavailable.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	Save(ctx context.Context, account *domain.Account) error
}
