package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/boxoffice/internal/cache"
	"github.com/Additional-Code/boxoffice/internal/config"
	"github.com/Additional-Code/boxoffice/internal/database"
	"github.com/Additional-Code/boxoffice/internal/logger"
	"github.com/Additional-Code/boxoffice/internal/messaging"
	"github.com/Additional-Code/boxoffice/internal/observability"
	repositoryorder "github.com/Additional-Code/boxoffice/internal/repository/order"
	repositoryperformance "github.com/Additional-Code/boxoffice/internal/repository/performance"
	repositorytickettype "github.com/Additional-Code/boxoffice/internal/repository/tickettype"
	httpserver "github.com/Additional-Code/boxoffice/internal/server/http"
	serviceorder "github.com/Additional-Code/boxoffice/internal/service/order"
	serviceseckill "github.com/Additional-Code/boxoffice/internal/service/seckill"
	transporthttp "github.com/Additional-Code/boxoffice/internal/transport/http"
	"github.com/Additional-Code/boxoffice/internal/worker"
	workerorder "github.com/Additional-Code/boxoffice/internal/worker/order"
	"github.com/Additional-Code/boxoffice/internal/worker/sweeper"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	repositoryorder.Module,
	repositoryperformance.Module,
	repositorytickettype.Module,
	serviceorder.Module,
	serviceseckill.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// Worker exposes background processing: bus consumption plus the expiry
// sweep that returns stock held by lapsed reservations.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
	sweeper.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
