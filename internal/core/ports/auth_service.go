package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, username, password string) (domain.PublicAccount, error)
	Login(ctx context.Context, username, password string) (string, domain.PublicAccount, error)
}
