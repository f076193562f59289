package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// RequireAuth rejects requests without an identity.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := IdentityFrom(c); !ok {
				return domain.ErrUnauthenticated
			}
			return next(c)
		}
	}
}

// RequireRole lets a request through when its identity holds any of roles.
// Anonymous requests get 401, authenticated ones without the role get 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return domain.ErrUnauthenticated
			}
			for _, r := range id.Roles {
				if _, ok := allowed[r]; ok {
					return next(c)
				}
			}
			return domain.ErrForbidden
		}
	}
}
