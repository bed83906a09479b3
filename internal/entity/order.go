package entity

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/Additional-Code/boxoffice/pkg/lifecycle"
)

// Order represents one ticket purchase stored in the relational database.
// UnitPrice and Amount are snapshots taken at creation time; they are never
// recomputed, so later edits to the live ticket type cannot change what the
// buyer owes. ExpireTime is only meaningful while the order is pending.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID            int64            `bun:",pk,autoincrement" json:"id"`
	OrderNo       string           `bun:"order_no" json:"order_no"`
	UserID        int64            `bun:"user_id" json:"user_id"`
	PerformanceID int64            `bun:"performance_id" json:"performance_id"`
	TicketTypeID  int64            `bun:"ticket_type_id" json:"ticket_type_id"`
	Quantity      int              `bun:"quantity" json:"quantity"`
	UnitPrice     float64          `bun:"unit_price" json:"unit_price"`
	Amount        float64          `bun:"amount" json:"amount"`
	Status        lifecycle.Status `bun:"status" json:"status"`
	ExpireTime    time.Time        `bun:"expire_time,nullzero" json:"expire_time"`
	PaymentTime   *time.Time       `bun:"payment_time" json:"payment_time,omitempty"`
	// MaterializedAt records when the seckill reservation was exchanged for
	// this confirmed order; a second exchange attempt is a duplicate.
	MaterializedAt *time.Time `bun:"materialized_at" json:"-"`
	StockReleased  bool       `bun:"stock_released" json:"-"`
	CreatedAt      time.Time  `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time  `bun:"updated_at,nullzero" json:"updated_at"`

	Performance *Performance `bun:"rel:belongs-to,join:performance_id=id" json:"performance,omitempty"`
	TicketType  *TicketType  `bun:"rel:belongs-to,join:ticket_type_id=id" json:"ticket_type,omitempty"`
	Tickets     []Ticket     `bun:"rel:has-many,join:id=order_id" json:"tickets,omitempty"`
}

// Expired reports the derived expired view against the supplied clock.
func (o *Order) Expired(now time.Time) bool {
	return lifecycle.Expired(o.Status, o.ExpireTime, now)
}
