package performance

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/boxoffice/internal/presentation/http/response"
	repo "github.com/Additional-Code/boxoffice/internal/repository/performance"
	"github.com/Additional-Code/boxoffice/pkg/errorbank"
	"github.com/Additional-Code/boxoffice/pkg/statuscode"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/boxoffice/transport/http/performance")

// Handler exposes performance browsing over HTTP. Listings are read-only and
// unauthenticated.
type Handler struct {
	repo *repo.Repository
}

// NewHandler constructs a performance Handler.
func NewHandler(r *repo.Repository) *Handler {
	return &Handler{repo: r}
}

// Register mounts performance routes.
func Register(e *echo.Echo, h *Handler) {
	e.GET("/api/performances", h.list)
	e.GET("/api/performances/:id", h.getByID)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	q := repo.Query{Keyword: c.QueryParam("keyword"), Status: -1}
	if raw := c.QueryParam("categoryId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return b.WithError(errorbank.Validation("invalid category id", errorbank.WithCause(err))).Build()
		}
		q.CategoryID = id
	}
	if raw := c.QueryParam("status"); raw != "" {
		status, err := strconv.Atoi(raw)
		if err != nil {
			return b.WithError(errorbank.Validation("invalid status", errorbank.WithCause(err))).Build()
		}
		q.Status = status
	}
	q.Page, _ = strconv.Atoi(c.QueryParam("page"))
	q.Size, _ = strconv.Atoi(c.QueryParam("pageSize"))

	ctx, span := httpTracer.Start(c.Request().Context(), "performances.list")
	defer span.End()

	list, total, err := h.repo.List(ctx, q)
	if err != nil {
		return b.WithError(errorbank.Internal("failed to list performances", errorbank.WithCause(err))).Build()
	}

	return b.WithData(map[string]any{
		"list":  list,
		"total": total,
	}).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return b.WithError(errorbank.Validation("invalid performance id")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "performances.getByID", trace.WithAttributes(attribute.Int64("performance.id", id)))
	defer span.End()

	perf, err := h.repo.GetByID(ctx, id)
	if err != nil {
		if err == repo.ErrNotFound {
			return b.WithError(errorbank.NotFound("演出不存在", errorbank.WithCode(statuscode.PerformanceNotExist))).Build()
		}
		return b.WithError(errorbank.Internal("failed to load performance", errorbank.WithCause(err))).Build()
	}

	return b.WithData(perf).Build()
}
