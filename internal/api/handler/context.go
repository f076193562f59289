package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/domain"
)

// currentIdentity returns the identity attached by middleware.Authenticate.
// Routes are expected to sit behind RequireAuth; the check here keeps a
// misconfigured route from answering for nobody.
func currentIdentity(c echo.Context) (domain.Identity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok || id.Username == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return id, nil
}
