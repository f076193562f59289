package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

const uniqueViolation = "23505"

var _ ports.CredentialStore = (*AccountRepository)(nil)

// AccountRepository persists accounts in PostgreSQL.
type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) Save(ctx context.Context, account *domain.Account) error {
	const query = `
INSERT INTO accounts (id, username, password_hash, roles, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
`
	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.Username,
		account.PasswordHash,
		domain.NormalizeRoles(account.Roles),
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return classifyError("insert account", err)
	}
	return nil
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	const query = `
SELECT id, username, password_hash, roles, created_at, updated_at
FROM accounts WHERE username = $1
`
	var a domain.Account
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&a.ID,
		&a.Username,
		&a.PasswordHash,
		&a.Roles,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, classifyError("find account", err)
	}
	a.Roles = domain.NormalizeRoles(a.Roles)
	return &a, nil
}

// Ping reports whether the pool can reach the server.
func (r *AccountRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func classifyError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrDuplicateUsername
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
