// Package memory is a process-local CredentialStore for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

var _ ports.CredentialStore = (*AccountRepository)(nil)

type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{accounts: make(map[string]*domain.Account)}
}

func (r *AccountRepository) Save(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.accounts[account.Username]; exists {
		return domain.ErrDuplicateUsername
	}
	r.accounts[account.Username] = clone(account)
	return nil
}

func (r *AccountRepository) FindByUsername(_ context.Context, username string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[username]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return clone(a), nil
}

// SetRoles replaces the roles of an existing account.
func (r *AccountRepository) SetRoles(username string, roles []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[username]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.Roles = domain.NormalizeRoles(roles)
	return nil
}

func (r *AccountRepository) Ping(context.Context) error { return nil }

func clone(a *domain.Account) *domain.Account {
	c := *a
	c.Roles = append([]string(nil), a.Roles...)
	return &c
}
