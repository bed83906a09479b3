package ticket

import (
	"go.uber.org/fx"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/boxoffice/internal/transport/http/middleware"
)

// Module wires HTTP ticket handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(func(e *echo.Echo, id *middleware.Identity, h *Handler) {
		Register(e, id, h)
	}),
)
