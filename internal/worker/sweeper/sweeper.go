package sweeper

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/boxoffice/internal/config"
	"github.com/Additional-Code/boxoffice/internal/entity"
	"github.com/Additional-Code/boxoffice/internal/observability"
	orderrepo "github.com/Additional-Code/boxoffice/internal/repository/order"
	tickettyperepo "github.com/Additional-Code/boxoffice/internal/repository/tickettype"
)

var sweepTracer = otel.Tracer("github.com/Additional-Code/boxoffice/worker/sweeper")

const sweepBatchSize = 100

type orderStore interface {
	ListExpiredUnreleased(ctx context.Context, now time.Time, limit int) ([]*entity.Order, error)
	MarkStockReleased(ctx context.Context, id int64) (bool, error)
}

type stockStore interface {
	IncreaseStock(ctx context.Context, id int64, quantity int) error
}

// Sweeper returns the stock behind pending orders whose payment window has
// lapsed. It never rewrites the order status: expiry stays derived, and a late
// payment attempt is still rejected by the window check.
type Sweeper struct {
	orders   orderStore
	stock    stockStore
	logger   *zap.Logger
	metrics  *observability.Metrics
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// Params collects dependencies via Fx.
type Params struct {
	fx.In

	Orders      *orderrepo.Repository
	TicketTypes *tickettyperepo.Repository
	Config      config.Config
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// NewSweeper constructs the expiry sweeper.
func NewSweeper(p Params) *Sweeper {
	return &Sweeper{
		orders:   p.Orders,
		stock:    p.TicketTypes,
		logger:   p.Logger,
		metrics:  p.Metrics,
		interval: p.Config.Seckill.SweepInterval,
	}
}

// Module wires the sweeper into the Fx lifecycle.
var Module = fx.Options(
	fx.Provide(NewSweeper),
	fx.Invoke(func(lc fx.Lifecycle, s *Sweeper) {
		lc.Append(fx.Hook{
			OnStart: s.start,
			OnStop:  s.stop,
		})
	}),
)

func (s *Sweeper) start(context.Context) error {
	if s.interval <= 0 {
		s.logger.Info("expiry sweeper disabled")
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.Sweep(runCtx)
			}
		}
	}()

	s.logger.Info("expiry sweeper started", zap.Duration("interval", s.interval))
	return nil
}

func (s *Sweeper) stop(ctx context.Context) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		s.logger.Info("expiry sweeper stopped")
		return nil
	}
}

// Sweep runs one pass: find lapsed pending orders still holding stock and
// return their units exactly once each. The guarded stock_released flag makes
// a sweep racing a user cancel safe.
func (s *Sweeper) Sweep(ctx context.Context) {
	ctx, span := sweepTracer.Start(ctx, "Sweeper.Sweep")
	defer span.End()

	now := time.Now().UTC()
	orders, err := s.orders.ListExpiredUnreleased(ctx, now, sweepBatchSize)
	if err != nil {
		s.logger.Error("sweep listing failed", zap.Error(err))
		span.RecordError(err)
		return
	}

	released := 0
	for _, order := range orders {
		ok, err := s.orders.MarkStockReleased(ctx, order.ID)
		if err != nil {
			s.logger.Error("sweep mark failed", zap.Int64("order_id", order.ID), zap.Error(err))
			continue
		}
		if !ok {
			// Someone else released it between listing and marking.
			continue
		}
		if err := s.stock.IncreaseStock(ctx, order.TicketTypeID, order.Quantity); err != nil {
			s.logger.Error("sweep stock restore failed",
				zap.Int64("order_id", order.ID),
				zap.Int64("ticket_type_id", order.TicketTypeID),
				zap.Error(err),
			)
			continue
		}
		s.metrics.StockReleased(order.Quantity)
		released++
	}

	span.SetAttributes(attribute.Int("orders.released", released))
	if released > 0 {
		s.logger.Info("expired reservations swept", zap.Int("released", released))
	}
}
