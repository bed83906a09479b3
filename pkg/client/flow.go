package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Additional-Code/boxoffice/pkg/errorbank"
	"github.com/Additional-Code/boxoffice/pkg/lifecycle"
)

// ErrAttemptInFlight rejects a purchase while an identical one is still being
// processed. The rejection is local; no request leaves the process.
var ErrAttemptInFlight = errors.New("purchase attempt already in flight")

// maxQuantity caps a single purchase attempt. The backend enforces the same
// cap per user; an over-cap request is rejected without a round trip.
const maxQuantity = 5

type flightKey struct {
	ticketTypeID int64
	quantity     int
}

// Flow orchestrates the full purchase journey on top of the raw endpoint
// bindings: claim, exchange, pay. It enforces the client-side guarantees the
// raw Client does not: duplicate attempts are rejected while one is in
// flight, a reservation is exchanged for its order at most once, and a lapsed
// payment window is detected locally before any request is sent.
type Flow struct {
	client *Client
	now    func() time.Time

	mu       sync.Mutex
	inflight map[flightKey]struct{}
}

// NewFlow builds a Flow over the given Client.
func NewFlow(c *Client) *Flow {
	return &Flow{
		client:   c,
		now:      func() time.Time { return time.Now().UTC() },
		inflight: make(map[flightKey]struct{}),
	}
}

// Buy runs one complete purchase attempt: validate locally, claim stock,
// exchange the reservation for its confirmed order. On a duplicate exchange
// the existing order is fetched and returned instead of failing.
//
// While an attempt for the same ticket type and quantity is in flight, a
// second call fails immediately with ErrAttemptInFlight. Failed attempts
// leave no client-side state behind.
func (f *Flow) Buy(ctx context.Context, ticketTypeID int64, quantity int) (*Order, error) {
	if ticketTypeID <= 0 {
		return nil, errorbank.Validation("ticket type id is required")
	}
	if quantity < 1 {
		return nil, errorbank.Validation("quantity must be at least 1")
	}
	if quantity > maxQuantity {
		return nil, errorbank.LimitExceeded(fmt.Sprintf("每人限购%d张票", maxQuantity))
	}

	key := flightKey{ticketTypeID: ticketTypeID, quantity: quantity}
	if !f.acquire(key) {
		return nil, ErrAttemptInFlight
	}
	defer f.release(key)

	reservation, err := f.client.Seckill(ctx, ticketTypeID, quantity)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		// The claim landed but the caller is gone; leave the reservation
		// for the expiry sweep.
		return nil, errorbank.Transient("purchase abandoned", errorbank.WithCause(err))
	}

	order, err := f.client.Materialize(ctx, reservation.OrderID)
	if err != nil {
		appErr := errorbank.From(err)
		if appErr.Kind() == errorbank.KindDuplicate {
			return f.client.Order(ctx, reservation.OrderID)
		}
		return nil, err
	}
	return order, nil
}

// Pay settles a pending order. When the payment window has already lapsed
// locally the call fails without touching the network. A status mismatch from
// the server means the order moved underneath us; the refreshed order comes
// back together with the error so callers can reconcile.
func (f *Flow) Pay(ctx context.Context, order *Order) (*PaymentResult, *Order, error) {
	if order == nil {
		return nil, nil, errorbank.Validation("order is required")
	}
	if order.LocallyExpired(f.now()) {
		return nil, order, errorbank.OrderExpired("订单已过期")
	}

	result, err := f.client.Pay(ctx, order.ID)
	if err != nil {
		return nil, f.reconcile(ctx, order, err), err
	}

	updated := *order
	updated.Status = lifecycle.StatusPaid
	updated.PaymentTime = &result.PaymentTime
	updated.Tickets = result.Tickets
	return result, &updated, nil
}

// Cancel voids a pending order. On a status mismatch the refreshed order is
// returned with the error so the caller sees what the order became.
func (f *Flow) Cancel(ctx context.Context, order *Order) (*Order, error) {
	if order == nil {
		return nil, errorbank.Validation("order is required")
	}

	if err := f.client.Cancel(ctx, order.ID); err != nil {
		return f.reconcile(ctx, order, err), err
	}

	updated := *order
	updated.Status = lifecycle.StatusCancelled
	return &updated, nil
}

// Refund reverses a paid order.
func (f *Flow) Refund(ctx context.Context, order *Order) (*Order, error) {
	if order == nil {
		return nil, errorbank.Validation("order is required")
	}

	if err := f.client.Refund(ctx, order.ID); err != nil {
		return f.reconcile(ctx, order, err), err
	}

	updated := *order
	updated.Status = lifecycle.StatusRefunded
	return &updated, nil
}

// reconcile refetches the order after a status mismatch so callers always end
// up holding the server's view. Any other error returns the order unchanged.
func (f *Flow) reconcile(ctx context.Context, order *Order, err error) *Order {
	if errorbank.From(err).Kind() != errorbank.KindOrderStatusMismatch {
		return order
	}
	refreshed, fetchErr := f.client.Order(ctx, order.ID)
	if fetchErr != nil {
		return order
	}
	return refreshed
}

func (f *Flow) acquire(key flightKey) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.inflight[key]; busy {
		return false
	}
	f.inflight[key] = struct{}{}
	return true
}

func (f *Flow) release(key flightKey) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.inflight, key)
}
