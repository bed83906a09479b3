package client

import (
	"time"

	"github.com/Additional-Code/boxoffice/pkg/lifecycle"
)

// Reservation is the ephemeral result of a successful flash-sale attempt. It
// must be exchanged for a confirmed order before the payment window lapses.
type Reservation struct {
	OrderID    int64     `json:"order_id"`
	OrderNo    string    `json:"order_no"`
	Amount     float64   `json:"amount"`
	ExpireTime time.Time `json:"expire_time"`
}

// Order is the wire view of an order.
type Order struct {
	ID            int64            `json:"id"`
	OrderNo       string           `json:"order_no"`
	UserID        int64            `json:"user_id"`
	PerformanceID int64            `json:"performance_id"`
	TicketTypeID  int64            `json:"ticket_type_id"`
	Quantity      int              `json:"quantity"`
	UnitPrice     float64          `json:"unit_price"`
	Amount        float64          `json:"amount"`
	Status        lifecycle.Status `json:"status"`
	ExpireTime    time.Time        `json:"expire_time"`
	PaymentTime   *time.Time       `json:"payment_time,omitempty"`
	Expired       bool             `json:"expired"`
	Tickets       []Ticket         `json:"tickets,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// LocallyExpired reports whether the payment window has lapsed as of now,
// regardless of what the server said when the order was fetched.
func (o *Order) LocallyExpired(now time.Time) bool {
	return lifecycle.Expired(o.Status, o.ExpireTime, now)
}

// Ticket is an issued electronic ticket.
type Ticket struct {
	ID       int64  `json:"id"`
	OrderID  int64  `json:"order_id"`
	TicketNo string `json:"ticket_no"`
	Status   int    `json:"status"`
}

// PaymentResult is returned when an order is paid.
type PaymentResult struct {
	PaymentTime time.Time `json:"payment_time"`
	Tickets     []Ticket  `json:"tickets"`
}

// OrderPage is one page of the caller's orders.
type OrderPage struct {
	List     []Order `json:"list"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
}

// TicketType is a purchasable tier of a performance.
type TicketType struct {
	ID            int64   `json:"id"`
	PerformanceID int64   `json:"performance_id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Stock         int     `json:"stock"`
	Total         int     `json:"total"`
	Status        int     `json:"status"`
}

// StockView reports remaining stock of one ticket type.
type StockView struct {
	TicketTypeID int64 `json:"ticketTypeId"`
	Stock        int   `json:"stock"`
}

// Performance is a show tickets are sold against.
type Performance struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Performer string    `json:"performer"`
	Venue     string    `json:"venue"`
	StartTime time.Time `json:"start_time"`
	Status    int       `json:"status"`
}

// PerformancePage is one page of the performance catalogue.
type PerformancePage struct {
	List  []Performance `json:"list"`
	Total int           `json:"total"`
}

// Identity is the authenticated user as reported by the probe endpoint.
type Identity struct {
	UserID int64 `json:"userId"`
}
