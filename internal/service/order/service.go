package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/boxoffice/internal/cache"
	"github.com/Additional-Code/boxoffice/internal/config"
	"github.com/Additional-Code/boxoffice/internal/dto"
	"github.com/Additional-Code/boxoffice/internal/entity"
	"github.com/Additional-Code/boxoffice/internal/messaging"
	"github.com/Additional-Code/boxoffice/internal/observability"
	repo "github.com/Additional-Code/boxoffice/internal/repository/order"
	tickettyperepo "github.com/Additional-Code/boxoffice/internal/repository/tickettype"
	"github.com/Additional-Code/boxoffice/pkg/errorbank"
	"github.com/Additional-Code/boxoffice/pkg/lifecycle"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/boxoffice/service/order")

// orderStore is the slice of the order repository the lifecycle flow needs.
type orderStore interface {
	GetByID(ctx context.Context, id int64) (*entity.Order, error)
	ListByUser(ctx context.Context, userID int64, status int, page, size int) ([]*entity.Order, int, error)
	Transition(ctx context.Context, id int64, from, to lifecycle.Status) (bool, error)
	MarkPaid(ctx context.Context, id int64, paidAt time.Time) (bool, error)
	MarkMaterialized(ctx context.Context, id int64, at time.Time) (bool, error)
	InsertTickets(ctx context.Context, tickets []entity.Ticket) error
	MarkStockReleased(ctx context.Context, id int64) (bool, error)
}

// stockStore returns claimed units when an order is cancelled.
type stockStore interface {
	IncreaseStock(ctx context.Context, id int64, quantity int) error
}

// Service owns the order lifecycle after the flash-sale claim: materialize,
// pay, cancel, refund. Every transition is a single guarded update so two
// racing callers cannot both win.
type Service struct {
	orders    orderStore
	stock     stockStore
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	metrics   *observability.Metrics
	publisher messaging.Client
	publish   bool
	now       func() time.Time
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Orders      *repo.Repository
	TicketTypes *tickettyperepo.Repository
	Cache       cache.Store
	Config      config.Config
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Publisher   messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		orders:    p.Orders,
		stock:     p.TicketTypes,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		logger:    p.Logger,
		metrics:   p.Metrics,
		publisher: p.Publisher,
		publish:   p.Config.Messaging.Enabled,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// OrderPaidEvent is emitted after a successful payment transition.
type OrderPaidEvent struct {
	OrderID     int64     `json:"order_id"`
	OrderNo     string    `json:"order_no"`
	UserID      int64     `json:"user_id"`
	Amount      float64   `json:"amount"`
	PaymentTime time.Time `json:"payment_time"`
}

// OrderCancelledEvent is emitted after a cancel or refund transition.
type OrderCancelledEvent struct {
	OrderID  int64  `json:"order_id"`
	OrderNo  string `json:"order_no"`
	UserID   int64  `json:"user_id"`
	Refunded bool   `json:"refunded"`
}

// Get retrieves an order by id, consulting cache when available. Callers only
// see orders they own.
func (s *Service) Get(ctx context.Context, userID, id int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := s.load(ctx, span, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, errorbank.Forbidden("无权操作该订单")
	}
	return order, nil
}

// Materialize exchanges a flash-sale reservation for its confirmed order. The
// exchange happens at most once; a repeat attempt is reported as a duplicate
// and callers should fetch the existing order instead.
func (s *Service) Materialize(ctx context.Context, userID, id int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Materialize", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.OrderNotFound("订单不存在")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}
	if order.UserID != userID {
		return nil, errorbank.Forbidden("无权操作该订单")
	}
	if order.Expired(s.now()) {
		return nil, errorbank.OrderExpired("订单已过期")
	}

	ok, err := s.orders.MarkMaterialized(ctx, id, s.now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "materialize failed")
		return nil, errorbank.Internal("failed to confirm order", errorbank.WithCause(err))
	}
	if !ok {
		return nil, errorbank.Duplicate("订单已存在")
	}

	s.dropFromCache(ctx, id)
	return order, nil
}

// List returns one page of the user's orders, newest first. A negative status
// means all statuses.
func (s *Service) List(ctx context.Context, userID int64, status int, page, size int) (*dto.OrderPage, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.List", trace.WithAttributes(
		attribute.Int("page", page),
		attribute.Int("page_size", size),
	))
	defer span.End()

	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 10
	}

	orders, total, err := s.orders.ListByUser(ctx, userID, status, page, size)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}

	now := s.now()
	views := make([]dto.OrderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, dto.NewOrderView(order, now))
	}
	return &dto.OrderPage{List: views, Total: total, Page: page, PageSize: size}, nil
}

// Pay settles a pending order and issues its tickets. An order whose payment
// window has lapsed is rejected before any state changes.
func (s *Service) Pay(ctx context.Context, userID, id int64) (*dto.PaymentResult, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Pay", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if order.Expired(now) {
		return nil, errorbank.OrderExpired("订单已过期")
	}

	ok, err := s.orders.MarkPaid(ctx, id, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "payment transition failed")
		return nil, errorbank.Internal("failed to pay order", errorbank.WithCause(err))
	}
	if !ok {
		return nil, errorbank.OrderStatusMismatch("订单状态错误")
	}

	tickets := make([]entity.Ticket, 0, order.Quantity)
	for i := 0; i < order.Quantity; i++ {
		tickets = append(tickets, entity.Ticket{
			OrderID:   order.ID,
			TicketNo:  newTicketNo(),
			Status:    entity.TicketValid,
			CreatedAt: now,
		})
	}
	if err := s.orders.InsertTickets(ctx, tickets); err != nil {
		// Payment already recorded; tickets can be re-issued out of band.
		s.logger.Error("ticket issue failed",
			zap.Int64("order_id", id),
			zap.Int("quantity", order.Quantity),
			zap.Error(err),
		)
		span.RecordError(err)
	}

	s.metrics.OrderSettled("paid")
	s.dropFromCache(ctx, id)
	s.publishEvent(ctx, order.ID, OrderPaidEvent{
		OrderID:     order.ID,
		OrderNo:     order.OrderNo,
		UserID:      order.UserID,
		Amount:      order.Amount,
		PaymentTime: now,
	})

	return &dto.PaymentResult{PaymentTime: now, Tickets: tickets}, nil
}

// Cancel voids a pending order and returns its claimed stock. Cancelling an
// order that already left Pending reports a status mismatch.
func (s *Service) Cancel(ctx context.Context, userID, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Cancel", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	ok, err := s.orders.Transition(ctx, id, lifecycle.StatusPending, lifecycle.StatusCancelled)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancel transition failed")
		return errorbank.Internal("failed to cancel order", errorbank.WithCause(err))
	}
	if !ok {
		return errorbank.OrderStatusMismatch("订单状态错误")
	}

	s.metrics.OrderSettled("cancelled")
	s.releaseStock(ctx, order)
	s.dropFromCache(ctx, id)
	s.publishEvent(ctx, order.ID, OrderCancelledEvent{
		OrderID: order.ID,
		OrderNo: order.OrderNo,
		UserID:  order.UserID,
	})
	return nil
}

// Refund reverses a paid order. Only paid orders are refundable.
func (s *Service) Refund(ctx context.Context, userID, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Refund", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	ok, err := s.orders.Transition(ctx, id, lifecycle.StatusPaid, lifecycle.StatusRefunded)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refund transition failed")
		return errorbank.Internal("failed to refund order", errorbank.WithCause(err))
	}
	if !ok {
		return errorbank.OrderStatusMismatch("订单状态错误")
	}

	s.metrics.OrderSettled("refunded")
	s.releaseStock(ctx, order)
	s.dropFromCache(ctx, id)
	s.publishEvent(ctx, order.ID, OrderCancelledEvent{
		OrderID:  order.ID,
		OrderNo:  order.OrderNo,
		UserID:   order.UserID,
		Refunded: true,
	})
	return nil
}

// releaseStock gives an order's claimed units back exactly once. The guarded
// stock_released flag coordinates with the expiry sweeper so a cancel racing a
// sweep cannot restore the same units twice.
func (s *Service) releaseStock(ctx context.Context, order *entity.Order) {
	ok, err := s.orders.MarkStockReleased(ctx, order.ID)
	if err != nil {
		s.logger.Error("stock release mark failed", zap.Int64("order_id", order.ID), zap.Error(err))
		return
	}
	if !ok {
		return
	}
	s.metrics.StockReleased(order.Quantity)
	if err := s.stock.IncreaseStock(ctx, order.TicketTypeID, order.Quantity); err != nil {
		s.logger.Error("stock restore failed",
			zap.Int64("order_id", order.ID),
			zap.Int64("ticket_type_id", order.TicketTypeID),
			zap.Int("quantity", order.Quantity),
			zap.Error(err),
		)
	}
}

func (s *Service) load(ctx context.Context, span trace.Span, id int64) (*entity.Order, error) {
	if order, err := s.getFromCache(ctx, id); err == nil {
		return order, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("orders cache read failed", zap.Int64("id", id), zap.Error(err))
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.OrderNotFound("订单不存在")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, order); err != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("id", id), zap.Error(err))
	}
	return order, nil
}

func (s *Service) cacheKey(id int64) string {
	return fmt.Sprintf("orders:%d", id)
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(id))
	if err != nil {
		return nil, err
	}
	var order entity.Order
	if err := json.Unmarshal(bytes, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) error {
	if s.cache == nil || order == nil {
		return nil
	}
	bytes, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, s.cacheKey(order.ID), bytes, s.cacheTTL)
}

func (s *Service) dropFromCache(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.cacheKey(id)); err != nil {
		s.logger.Warn("orders cache delete failed", zap.Int64("id", id), zap.Error(err))
	}
}

func (s *Service) publishEvent(ctx context.Context, orderID int64, event any) {
	if !s.publish || s.publisher == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal order event", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, []byte(fmt.Sprintf("order-%d", orderID)), payload); err != nil {
		s.logger.Error("publish order event", zap.Error(err))
	}
}

func newTicketNo() string {
	return "T" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:16]
}
