package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type AccountHandler struct{}

func NewAccountHandler() *AccountHandler {
	return &AccountHandler{}
}

type meResponse struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// Me returns the caller's identity as seen by the authentication pipeline.
//
// @Summary      Current identity
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  meResponse
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/users/me [get]
func (h *AccountHandler) Me(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, meResponse{Username: id.Username, Roles: id.Roles})
}

// AdminPing is a probe for ADMIN role checks.
//
// @Summary      Admin ping
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /api/v1/admin/ping [get]
func (h *AccountHandler) AdminPing(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "pong", "username": id.Username})
}
