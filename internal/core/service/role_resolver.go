package service

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// StoreRoleResolver reads the live role set straight from the credential store.
type StoreRoleResolver struct {
	store ports.CredentialStore
}

func NewStoreRoleResolver(store ports.CredentialStore) *StoreRoleResolver {
	return &StoreRoleResolver{store: store}
}

func (r *StoreRoleResolver) ResolveRoles(ctx context.Context, username string) ([]string, error) {
	account, err := r.store.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return domain.NormalizeRoles(account.Roles), nil
}
