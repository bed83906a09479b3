package tickettype

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/boxoffice/internal/database"
	"github.com/Additional-Code/boxoffice/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/boxoffice/repository/tickettype")

// ErrNotFound is returned when a ticket type is missing.
var ErrNotFound = errors.New("ticket type not found")

// Repository encapsulates read/write access for ticket types and their stock.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// GetByID fetches a ticket type by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.TicketType, error) {
	ctx, span := repoTracer.Start(ctx, "TicketTypeRepository.GetByID", trace.WithAttributes(attribute.Int64("ticket_type.id", id)))
	defer span.End()

	tt := new(entity.TicketType)
	err := r.reader.NewSelect().Model(tt).Where("tt.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return tt, nil
}

// ListByPerformance returns all ticket types of one performance.
func (r *Repository) ListByPerformance(ctx context.Context, performanceID int64) ([]entity.TicketType, error) {
	ctx, span := repoTracer.Start(ctx, "TicketTypeRepository.ListByPerformance", trace.WithAttributes(attribute.Int64("performance.id", performanceID)))
	defer span.End()

	var types []entity.TicketType
	err := r.reader.NewSelect().Model(&types).
		Where("tt.performance_id = ?", performanceID).
		Order("tt.price ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return types, nil
}

// DecreaseStock atomically claims quantity units of stock. The single guarded
// statement is the entire concurrency story: when remaining stock is short
// the update matches no row and the claim fails.
func (r *Repository) DecreaseStock(ctx context.Context, id int64, quantity int) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "TicketTypeRepository.DecreaseStock", trace.WithAttributes(
		attribute.Int64("ticket_type.id", id),
		attribute.Int("quantity", quantity),
	))
	defer span.End()

	res, err := r.writer.NewUpdate().Model((*entity.TicketType)(nil)).
		Set("stock = stock - ?", quantity).
		Where("id = ?", id).
		Where("stock >= ?", quantity).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// IncreaseStock returns quantity units to the pool.
func (r *Repository) IncreaseStock(ctx context.Context, id int64, quantity int) error {
	ctx, span := repoTracer.Start(ctx, "TicketTypeRepository.IncreaseStock", trace.WithAttributes(
		attribute.Int64("ticket_type.id", id),
		attribute.Int("quantity", quantity),
	))
	defer span.End()

	_, err := r.writer.NewUpdate().Model((*entity.TicketType)(nil)).
		Set("stock = stock + ?", quantity).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
	}
	return err
}
