package seckill

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

	"github.com/Additional-Code/boxoffice/internal/config"
	"github.com/Additional-Code/boxoffice/internal/dto"
	"github.com/Additional-Code/boxoffice/internal/entity"
	"github.com/Additional-Code/boxoffice/internal/messaging"
	"github.com/Additional-Code/boxoffice/internal/observability"
	orderrepo "github.com/Additional-Code/boxoffice/internal/repository/order"
	performancerepo "github.com/Additional-Code/boxoffice/internal/repository/performance"
	tickettyperepo "github.com/Additional-Code/boxoffice/internal/repository/tickettype"
	"github.com/Additional-Code/boxoffice/pkg/errorbank"
	"github.com/Additional-Code/boxoffice/pkg/lifecycle"
	"github.com/Additional-Code/boxoffice/pkg/statuscode"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/boxoffice/service/seckill")

// ticketTypeStore is the slice of the ticket type repository the flash-sale
// flow needs.
type ticketTypeStore interface {
	GetByID(ctx context.Context, id int64) (*entity.TicketType, error)
	ListByPerformance(ctx context.Context, performanceID int64) ([]entity.TicketType, error)
	DecreaseStock(ctx context.Context, id int64, quantity int) (bool, error)
	IncreaseStock(ctx context.Context, id int64, quantity int) error
}

// performanceStore resolves the performance a ticket type belongs to.
type performanceStore interface {
	GetByID(ctx context.Context, id int64) (*entity.Performance, error)
}

// orderStore covers order creation and the purchase cap accounting.
type orderStore interface {
	Create(ctx context.Context, order *entity.Order) error
	SumQuantityForTicketType(ctx context.Context, userID, ticketTypeID int64) (int, error)
}

// Service runs the flash-sale reservation flow: claim stock with one guarded
// decrement, then cut a pending order against the claimed units.
type Service struct {
	ticketTypes  ticketTypeStore
	performances performanceStore
	orders       orderStore
	logger       *zap.Logger
	metrics      *observability.Metrics
	publisher    messaging.Client
	purchaseCap  int
	orderTTL     time.Duration
	topic        string
	publish      bool
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	TicketTypes  *tickettyperepo.Repository
	Performances *performancerepo.Repository
	Orders       *orderrepo.Repository
	Config       config.Config
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	Publisher    messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		ticketTypes:  p.TicketTypes,
		performances: p.Performances,
		orders:       p.Orders,
		logger:       p.Logger,
		metrics:      p.Metrics,
		publisher:    p.Publisher,
		purchaseCap:  p.Config.Seckill.PurchaseCap,
		orderTTL:     p.Config.Seckill.OrderTTL,
		topic:        p.Config.Messaging.Kafka.Topic,
		publish:      p.Config.Messaging.Enabled,
	}
}

// OrderCreatedEvent is emitted when a flash-sale attempt produces an order.
type OrderCreatedEvent struct {
	OrderID      int64     `json:"order_id"`
	OrderNo      string    `json:"order_no"`
	UserID       int64     `json:"user_id"`
	TicketTypeID int64     `json:"ticket_type_id"`
	Quantity     int       `json:"quantity"`
	Amount       float64   `json:"amount"`
	ExpireTime   time.Time `json:"expire_time"`
}

// Attempt runs one reservation attempt. Exactly one of the domain outcomes
// comes back: a reservation, stock-insufficient, limit-exceeded, or a
// transient failure. Nothing is mutated unless the stock claim succeeds.
func (s *Service) Attempt(ctx context.Context, userID, ticketTypeID int64, quantity int) (*dto.SeckillReservation, error) {
	ctx, span := serviceTracer.Start(ctx, "SeckillService.Attempt", trace.WithAttributes(
		attribute.Int64("ticket_type.id", ticketTypeID),
		attribute.Int("quantity", quantity),
	))
	defer span.End()

	if ticketTypeID <= 0 || quantity < 1 {
		s.metrics.SeckillAttempt(observability.OutcomeRejected)
		return nil, errorbank.Validation("ticketTypeId and quantity are required")
	}
	if quantity > s.purchaseCap {
		s.metrics.SeckillAttempt(observability.OutcomeLimited)
		return nil, errorbank.LimitExceeded(fmt.Sprintf("每人限购%d张票", s.purchaseCap))
	}

	tt, err := s.ticketTypes.GetByID(ctx, ticketTypeID)
	if err != nil {
		if errors.Is(err, tickettyperepo.ErrNotFound) {
			return nil, errorbank.NotFound("票种不存在", errorbank.WithCode(statuscode.TicketNotExist))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load ticket type", errorbank.WithCause(err))
	}

	perf, err := s.performances.GetByID(ctx, tt.PerformanceID)
	if err != nil {
		if errors.Is(err, performancerepo.ErrNotFound) {
			return nil, errorbank.NotFound("演出不存在", errorbank.WithCode(statuscode.PerformanceNotExist))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load performance", errorbank.WithCause(err))
	}

	// Cheap pre-check before touching the counter; the guarded decrement
	// below remains the authority under contention.
	if tt.Stock < quantity {
		s.metrics.SeckillAttempt(observability.OutcomeSoldOut)
		return nil, errorbank.StockInsufficient("库存不足")
	}

	owned, err := s.orders.SumQuantityForTicketType(ctx, userID, ticketTypeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to check purchase cap", errorbank.WithCause(err))
	}
	if owned+quantity > s.purchaseCap {
		s.metrics.SeckillAttempt(observability.OutcomeLimited)
		return nil, errorbank.LimitExceeded(fmt.Sprintf("每人限购%d张票", s.purchaseCap))
	}

	claimed, err := s.ticketTypes.DecreaseStock(ctx, ticketTypeID, quantity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stock claim failed")
		s.metrics.SeckillAttempt(observability.OutcomeError)
		return nil, errorbank.Transient("抢票失败，请重试", errorbank.WithCause(err))
	}
	if !claimed {
		s.metrics.SeckillAttempt(observability.OutcomeSoldOut)
		return nil, errorbank.StockInsufficient("库存不足")
	}

	now := time.Now().UTC()
	order := &entity.Order{
		OrderNo:       newOrderNo(now),
		UserID:        userID,
		PerformanceID: perf.ID,
		TicketTypeID:  tt.ID,
		Quantity:      quantity,
		UnitPrice:     tt.Price,
		Amount:        tt.Price * float64(quantity),
		Status:        lifecycle.StatusPending,
		ExpireTime:    now.Add(s.orderTTL),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		// The claim has already landed; give the units back.
		if rbErr := s.ticketTypes.IncreaseStock(ctx, ticketTypeID, quantity); rbErr != nil {
			s.logger.Error("stock rollback failed",
				zap.Int64("ticket_type_id", ticketTypeID),
				zap.Int("quantity", quantity),
				zap.Error(rbErr),
			)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "order create failed")
		s.metrics.SeckillAttempt(observability.OutcomeError)
		return nil, errorbank.Transient("抢票失败，请重试", errorbank.WithCause(err))
	}

	s.metrics.SeckillAttempt(observability.OutcomeClaimed)
	s.publishOrderCreated(ctx, order)

	return &dto.SeckillReservation{
		OrderID:    order.ID,
		OrderNo:    order.OrderNo,
		Amount:     order.Amount,
		ExpireTime: order.ExpireTime,
	}, nil
}

// TicketTypes lists the ticket tiers of one performance.
func (s *Service) TicketTypes(ctx context.Context, performanceID int64) ([]entity.TicketType, error) {
	ctx, span := serviceTracer.Start(ctx, "SeckillService.TicketTypes", trace.WithAttributes(attribute.Int64("performance.id", performanceID)))
	defer span.End()

	if _, err := s.performances.GetByID(ctx, performanceID); err != nil {
		if errors.Is(err, performancerepo.ErrNotFound) {
			return nil, errorbank.NotFound("演出不存在", errorbank.WithCode(statuscode.PerformanceNotExist))
		}
		return nil, errorbank.Internal("failed to load performance", errorbank.WithCause(err))
	}

	types, err := s.ticketTypes.ListByPerformance(ctx, performanceID)
	if err != nil {
		span.RecordError(err)
		return nil, errorbank.Internal("failed to list ticket types", errorbank.WithCause(err))
	}
	return types, nil
}

// Stock reports the remaining stock of one ticket type.
func (s *Service) Stock(ctx context.Context, ticketTypeID int64) (*dto.StockView, error) {
	ctx, span := serviceTracer.Start(ctx, "SeckillService.Stock", trace.WithAttributes(attribute.Int64("ticket_type.id", ticketTypeID)))
	defer span.End()

	tt, err := s.ticketTypes.GetByID(ctx, ticketTypeID)
	if err != nil {
		if errors.Is(err, tickettyperepo.ErrNotFound) {
			return nil, errorbank.NotFound("票种不存在", errorbank.WithCode(statuscode.TicketNotExist))
		}
		return nil, errorbank.Internal("failed to load ticket type", errorbank.WithCause(err))
	}
	return &dto.StockView{TicketTypeID: tt.ID, Stock: tt.Stock}, nil
}

func (s *Service) publishOrderCreated(ctx context.Context, order *entity.Order) {
	if !s.publish || s.publisher == nil {
		return
	}
	event := OrderCreatedEvent{
		OrderID:      order.ID,
		OrderNo:      order.OrderNo,
		UserID:       order.UserID,
		TicketTypeID: order.TicketTypeID,
		Quantity:     order.Quantity,
		Amount:       order.Amount,
		ExpireTime:   order.ExpireTime,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal order created", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, []byte(fmt.Sprintf("order-%d", order.ID)), payload); err != nil {
		s.logger.Error("publish order created", zap.Error(err))
	}
}

// newOrderNo is a sortable timestamp prefix plus a random suffix, unique
// enough for a single sales window.
func newOrderNo(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return now.Format("20060102150405") + suffix
}
