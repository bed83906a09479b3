package order

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/boxoffice/internal/dto"
	"github.com/Additional-Code/boxoffice/internal/presentation/http/response"
	service "github.com/Additional-Code/boxoffice/internal/service/order"
	"github.com/Additional-Code/boxoffice/internal/transport/http/middleware"
	"github.com/Additional-Code/boxoffice/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/boxoffice/transport/http/order")

// Handler exposes the order lifecycle over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts order routes behind the identity middleware.
func Register(e *echo.Echo, id *middleware.Identity, h *Handler) {
	g := e.Group("/api/orders", id.Middleware())
	g.GET("", h.list)
	g.GET("/:id", h.getByID)
	g.POST("/from-seckill", h.fromSeckill)
	g.POST("/:id/pay", h.pay)
	g.POST("/:id/cancel", h.cancel)
	g.POST("/:id/refund", h.refund)
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, middleware.UserID(c), id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.NewOrderView(order, time.Now().UTC())).Build()
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	status := -1
	if raw := c.QueryParam("status"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return b.WithError(errorbank.Validation("invalid status", errorbank.WithCause(err))).Build()
		}
		status = parsed
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("pageSize"))

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list")
	defer span.End()

	result, err := h.svc.List(ctx, middleware.UserID(c), status, page, size)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(result).Build()
}

// fromSeckill confirms the order behind a flash-sale reservation. Repeating
// the call reports a duplicate so clients fetch the existing order instead of
// minting a second one.
func (h *Handler) fromSeckill(c echo.Context) error {
	b := response.New(c)

	var payload struct {
		OrderID int64 `json:"orderId"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.Validation("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.OrderID <= 0 {
		return b.WithError(errorbank.Validation("orderId is required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.fromSeckill", trace.WithAttributes(attribute.Int64("order.id", payload.OrderID)))
	defer span.End()

	order, err := h.svc.Materialize(ctx, middleware.UserID(c), payload.OrderID)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.NewOrderView(order, time.Now().UTC())).Build()
}

func (h *Handler) pay(c echo.Context) error {
	b := response.New(c)

	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.pay", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	result, err := h.svc.Pay(ctx, middleware.UserID(c), id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(result).WithMessage("支付成功").Build()
}

func (h *Handler) cancel(c echo.Context) error {
	b := response.New(c)

	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.cancel", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if err := h.svc.Cancel(ctx, middleware.UserID(c), id); err != nil {
		return b.WithError(err).Build()
	}

	return b.WithMessage("订单已取消").Build()
}

func (h *Handler) refund(c echo.Context) error {
	b := response.New(c)

	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.refund", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if err := h.svc.Refund(ctx, middleware.UserID(c), id); err != nil {
		return b.WithError(err).Build()
	}

	return b.WithMessage("退款成功").Build()
}

func orderID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errorbank.Validation("invalid order id")
	}
	return id, nil
}
