package ticket

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/boxoffice/internal/presentation/http/response"
	service "github.com/Additional-Code/boxoffice/internal/service/seckill"
	"github.com/Additional-Code/boxoffice/internal/transport/http/middleware"
	"github.com/Additional-Code/boxoffice/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/boxoffice/transport/http/ticket")

// Handler exposes the flash-sale endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a ticket Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts ticket routes. The sale itself requires identity; stock and
// tier listings are open.
func Register(e *echo.Echo, id *middleware.Identity, h *Handler) {
	e.POST("/api/tickets/seckill", h.seckill, id.Middleware())
	e.GET("/api/tickets/types/:id/stock", h.stock)
	e.GET("/api/performances/:id/ticket-types", h.ticketTypes)
}

func (h *Handler) seckill(c echo.Context) error {
	b := response.New(c)

	var payload struct {
		TicketTypeID int64 `json:"ticketTypeId"`
		Quantity     int   `json:"quantity"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.Validation("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "tickets.seckill", trace.WithAttributes(
		attribute.Int64("ticket_type.id", payload.TicketTypeID),
		attribute.Int("quantity", payload.Quantity),
	))
	defer span.End()

	reservation, err := h.svc.Attempt(ctx, middleware.UserID(c), payload.TicketTypeID, payload.Quantity)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(reservation).WithMessage("抢票成功").Build()
}

func (h *Handler) stock(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return b.WithError(errorbank.Validation("invalid ticket type id")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "tickets.stock", trace.WithAttributes(attribute.Int64("ticket_type.id", id)))
	defer span.End()

	view, err := h.svc.Stock(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(view).Build()
}

func (h *Handler) ticketTypes(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return b.WithError(errorbank.Validation("invalid performance id")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "tickets.types", trace.WithAttributes(attribute.Int64("performance.id", id)))
	defer span.End()

	types, err := h.svc.TicketTypes(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(types).Build()
}
