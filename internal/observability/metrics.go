package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Attempt outcomes reported on the flash-sale counter.
const (
	OutcomeClaimed  = "claimed"
	OutcomeSoldOut  = "sold_out"
	OutcomeLimited  = "limited"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics holds the domain counters the sale path reports into. All methods
// are nil-safe so call sites never need to guard.
type Metrics struct {
	seckillAttempts *prometheus.CounterVec
	ordersSettled   *prometheus.CounterVec
	stockReleased   prometheus.Counter
}

// NewMetrics registers the sale counters on the default registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		seckillAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boxoffice",
			Name:      "seckill_attempts_total",
			Help:      "Flash-sale attempts by outcome.",
		}, []string{"outcome"}),
		ordersSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boxoffice",
			Name:      "orders_settled_total",
			Help:      "Orders that reached a settled state.",
		}, []string{"state"}),
		stockReleased: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "boxoffice",
			Name:      "stock_released_units_total",
			Help:      "Ticket units returned from lapsed or voided orders.",
		}),
	}
	prometheus.MustRegister(m.seckillAttempts, m.ordersSettled, m.stockReleased)
	return m
}

// SeckillAttempt records one flash-sale attempt with its outcome.
func (m *Metrics) SeckillAttempt(outcome string) {
	if m == nil {
		return
	}
	m.seckillAttempts.WithLabelValues(outcome).Inc()
}

// OrderSettled records an order reaching paid, cancelled or refunded.
func (m *Metrics) OrderSettled(state string) {
	if m == nil {
		return
	}
	m.ordersSettled.WithLabelValues(state).Inc()
}

// StockReleased records ticket units returned to the pool.
func (m *Metrics) StockReleased(units int) {
	if m == nil {
		return
	}
	m.stockReleased.Add(float64(units))
}
