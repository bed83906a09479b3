package dto

import (
	"time"

	"github.com/Additional-Code/boxoffice/internal/entity"
)

// SeckillReservation is the ephemeral result of a successful flash-sale
// attempt. It is handed to the caller once and immediately exchanged for a
// confirmed order; it is never persisted on its own.
type SeckillReservation struct {
	OrderID    int64     `json:"order_id"`
	OrderNo    string    `json:"order_no"`
	Amount     float64   `json:"amount"`
	ExpireTime time.Time `json:"expire_time"`
}

// OrderView decorates an order with its derived expiry flag. Expiry is never
// stored; it is computed from the payment window at render time.
type OrderView struct {
	*entity.Order
	Expired bool `json:"expired"`
}

// NewOrderView builds the wire view of an order as of now.
func NewOrderView(order *entity.Order, now time.Time) OrderView {
	return OrderView{Order: order, Expired: order.Expired(now)}
}

// PaymentResult is returned when an order is paid.
type PaymentResult struct {
	PaymentTime time.Time       `json:"payment_time"`
	Tickets     []entity.Ticket `json:"tickets"`
}

// OrderPage is a paginated slice of orders.
type OrderPage struct {
	List     []OrderView `json:"list"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}

// StockView reports remaining stock for one ticket type.
type StockView struct {
	TicketTypeID int64 `json:"ticketTypeId"`
	Stock        int   `json:"stock"`
}
