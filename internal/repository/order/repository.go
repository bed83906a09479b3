package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/boxoffice/internal/database"
	"github.com/Additional-Code/boxoffice/internal/entity"
	"github.com/Additional-Code/boxoffice/pkg/lifecycle"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/boxoffice/repository/order")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// Repository encapsulates read/write access for orders and their tickets.
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

// Create persists a new order using the write connection.
func (r *Repository) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(attribute.String("order.no", order.OrderNo)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(order).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches an order with its snapshots and tickets, preferring the
// read replica.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).
		Relation("Performance").
		Relation("TicketType").
		Relation("Tickets").
		Where("o.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// ListByUser returns a page of a user's orders, newest first. status < 0
// means all statuses.
func (r *Repository) ListByUser(ctx context.Context, userID int64, status int, page, size int) ([]*entity.Order, int, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListByUser", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}

	var orders []*entity.Order
	q := r.reader.NewSelect().Model(&orders).
		Relation("Performance").
		Relation("TicketType").
		Where("o.user_id = ?", userID)
	if status >= 0 {
		q = q.Where("o.status = ?", status)
	}

	total, err := q.Order("o.created_at DESC").
		Limit(size).
		Offset((page - 1) * size).
		ScanAndCount(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, 0, err
	}
	return orders, total, nil
}

// SumQuantityForTicketType totals how many tickets of one type the user has
// already bought or still holds pending. Cancelled orders release their claim
// against the purchase cap.
func (r *Repository) SumQuantityForTicketType(ctx context.Context, userID, ticketTypeID int64) (int, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.SumQuantityForTicketType")
	defer span.End()

	var total sql.NullInt64
	err := r.reader.NewSelect().Model((*entity.Order)(nil)).
		ColumnExpr("SUM(o.quantity)").
		Where("o.user_id = ?", userID).
		Where("o.ticket_type_id = ?", ticketTypeID).
		Where("o.status IN (?, ?)", lifecycle.StatusPending, lifecycle.StatusPaid).
		Scan(ctx, &total)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		span.RecordError(err)
		return 0, err
	}
	return int(total.Int64), nil
}

// Transition moves an order from one lifecycle state to another with a
// guarded update. It returns false without error when the order was not in
// the expected state, which callers surface as a status mismatch.
func (r *Repository) Transition(ctx context.Context, id int64, from, to lifecycle.Status) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Transition", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.from", from.String()),
		attribute.String("order.to", to.String()),
	))
	defer span.End()

	res, err := r.writer.NewUpdate().Model((*entity.Order)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status = ?", from).
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

// MarkPaid records payment atomically against the pending state. Returns
// false when the order had already left Pending.
func (r *Repository) MarkPaid(ctx context.Context, id int64, paidAt time.Time) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.MarkPaid", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	res, err := r.writer.NewUpdate().Model((*entity.Order)(nil)).
		Set("status = ?", lifecycle.StatusPaid).
		Set("payment_time = ?", paidAt).
		Set("updated_at = ?", paidAt).
		Where("id = ?", id).
		Where("status = ?", lifecycle.StatusPending).
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

// MarkMaterialized stamps the reservation-to-order exchange exactly once.
// Returns false when the order was already materialized.
func (r *Repository) MarkMaterialized(ctx context.Context, id int64, at time.Time) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.MarkMaterialized", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	res, err := r.writer.NewUpdate().Model((*entity.Order)(nil)).
		Set("materialized_at = ?", at).
		Where("id = ?", id).
		Where("materialized_at IS NULL").
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

// InsertTickets persists electronic tickets issued for a paid order.
func (r *Repository) InsertTickets(ctx context.Context, tickets []entity.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.InsertTickets", trace.WithAttributes(attribute.Int("tickets.count", len(tickets))))
	defer span.End()

	_, err := r.writer.NewInsert().Model(&tickets).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// ListExpiredUnreleased returns pending orders whose payment window lapsed
// and whose stock has not been returned yet. The orders stay Pending; expiry
// is a derived view, only the stock claim is released.
func (r *Repository) ListExpiredUnreleased(ctx context.Context, now time.Time, limit int) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListExpiredUnreleased")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}
	var orders []*entity.Order
	err := r.reader.NewSelect().Model(&orders).
		Where("o.status = ?", lifecycle.StatusPending).
		Where("o.expire_time < ?", now).
		Where("o.stock_released = ?", false).
		Order("o.expire_time ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// MarkStockReleased flags an order's stock claim as returned. Guarded so two
// concurrent sweeps cannot release the same claim twice.
func (r *Repository) MarkStockReleased(ctx context.Context, id int64) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.MarkStockReleased", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	res, err := r.writer.NewUpdate().Model((*entity.Order)(nil)).
		Set("stock_released = ?", true).
		Where("id = ?", id).
		Where("stock_released = ?", false).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
