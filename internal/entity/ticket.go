package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Electronic ticket status values.
const (
	TicketValid    = 0
	TicketUsed     = 1
	TicketRefunded = 2
)

// Ticket is an electronic ticket issued when an order is paid. Rows exist
// only for paid orders; a pending or cancelled order has none.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets,alias:t"`

	ID        int64     `bun:",pk,autoincrement" json:"id"`
	OrderID   int64     `bun:"order_id" json:"order_id"`
	TicketNo  string    `bun:"ticket_no" json:"ticket_no"`
	Status    int       `bun:"status" json:"status"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"created_at"`
}
