package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Ticket type sale status values.
const (
	TicketTypeNotOnSale = 0
	TicketTypePresale   = 1
	TicketTypeOnSale    = 2
	TicketTypeSoldOut   = 3
	TicketTypeEnded     = 4
)

// TicketType is a purchasable tier of a performance with finite stock.
type TicketType struct {
	bun.BaseModel `bun:"table:ticket_types,alias:tt"`

	ID            int64     `bun:",pk,autoincrement" json:"id"`
	PerformanceID int64     `bun:"performance_id" json:"performance_id"`
	Name          string    `bun:"name" json:"name"`
	Price         float64   `bun:"price" json:"price"`
	Stock         int       `bun:"stock" json:"stock"`
	Total         int       `bun:"total" json:"total"`
	SaleStartTime time.Time `bun:"sale_start_time,nullzero" json:"sale_start_time"`
	SaleEndTime   time.Time `bun:"sale_end_time,nullzero" json:"sale_end_time"`
	Status        int       `bun:"status" json:"status"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero" json:"updated_at"`
}
