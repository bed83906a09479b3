package user

import (
	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/boxoffice/internal/presentation/http/response"
	"github.com/Additional-Code/boxoffice/internal/transport/http/middleware"
)

// Handler answers the identity probe. Clients call it to validate a stored
// token before relying on it.
type Handler struct{}

// NewHandler constructs a user Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Register mounts the probe behind the identity middleware.
func Register(e *echo.Echo, id *middleware.Identity, h *Handler) {
	e.GET("/api/users/me", h.me, id.Middleware())
}

func (h *Handler) me(c echo.Context) error {
	return response.New(c).WithData(map[string]any{
		"userId": middleware.UserID(c),
	}).Build()
}
