package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/boxoffice/internal/config"
	"github.com/Additional-Code/boxoffice/internal/messaging"
	"github.com/Additional-Code/boxoffice/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/boxoffice/worker/order")

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewOrderEventHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// orderEvent is the common shape of every order lifecycle event on the bus.
type orderEvent struct {
	OrderID int64  `json:"order_id"`
	OrderNo string `json:"order_no"`
	UserID  int64  `json:"user_id"`
}

// NewOrderEventHandler sets up a worker handler that records order lifecycle
// events for downstream bookkeeping.
func NewOrderEventHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event orderEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode order event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}
		logger.Info("order event processed",
			zap.Int64("order_id", event.OrderID),
			zap.String("order_no", event.OrderNo),
			zap.Int64("user_id", event.UserID),
		)

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
