package http

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/boxoffice/internal/transport/http/middleware"
	ordertransport "github.com/Additional-Code/boxoffice/internal/transport/http/order"
	performancetransport "github.com/Additional-Code/boxoffice/internal/transport/http/performance"
	tickettransport "github.com/Additional-Code/boxoffice/internal/transport/http/ticket"
	usertransport "github.com/Additional-Code/boxoffice/internal/transport/http/user"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	middleware.Module,
	ordertransport.Module,
	tickettransport.Module,
	performancetransport.Module,
	usertransport.Module,
)
