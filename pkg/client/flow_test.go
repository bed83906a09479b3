package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/boxoffice/pkg/errorbank"
	"github.com/Additional-Code/boxoffice/pkg/lifecycle"
	"github.com/Additional-Code/boxoffice/pkg/statuscode"
)

// fakeAPI is a scriptable box office backend for flow tests.
type fakeAPI struct {
	mu sync.Mutex

	seckillCode     int
	reservation     Reservation
	materializeCode int
	order           Order
	payCode         int
	cancelCode      int

	seckillCalls     atomic.Int32
	materializeCalls atomic.Int32
	orderCalls       atomic.Int32
	payCalls         atomic.Int32
	cancelCalls      atomic.Int32

	// blockSeckill, when set, holds the seckill handler until released.
	blockSeckill chan struct{}
	// onSeckill, when set, runs before the seckill response is written.
	onSeckill func()
}

func (f *fakeAPI) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch {
		case r.URL.Path == "/api/tickets/seckill":
			f.seckillCalls.Add(1)
			if f.blockSeckill != nil {
				ch := f.blockSeckill
				f.mu.Unlock()
				<-ch
				f.mu.Lock()
			}
			if f.onSeckill != nil {
				f.onSeckill()
			}
			if f.seckillCode != statuscode.Success {
				writeEnvelope(w, f.seckillCode, nil)
				return
			}
			writeEnvelope(w, statuscode.Success, f.reservation)

		case r.URL.Path == "/api/orders/from-seckill":
			f.materializeCalls.Add(1)
			if f.materializeCode != statuscode.Success {
				writeEnvelope(w, f.materializeCode, nil)
				return
			}
			writeEnvelope(w, statuscode.Success, f.order)

		case strings.HasSuffix(r.URL.Path, "/pay"):
			f.payCalls.Add(1)
			if f.payCode != statuscode.Success {
				writeEnvelope(w, f.payCode, nil)
				return
			}
			writeEnvelope(w, statuscode.Success, PaymentResult{
				PaymentTime: time.Now().UTC(),
				Tickets:     []Ticket{{ID: 1, OrderID: f.order.ID, TicketNo: "T1"}},
			})

		case strings.HasSuffix(r.URL.Path, "/cancel"):
			f.cancelCalls.Add(1)
			writeEnvelope(w, f.cancelCode, nil)

		case strings.HasPrefix(r.URL.Path, "/api/orders/"):
			f.orderCalls.Add(1)
			writeEnvelope(w, statuscode.Success, f.order)

		default:
			writeEnvelope(w, statuscode.NotFound, nil)
		}
	})
}

func newFlowFixture(t *testing.T, api *fakeAPI) *Flow {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	return NewFlow(New(srv.URL))
}

func successAPI() *fakeAPI {
	expire := time.Now().UTC().Add(30 * time.Minute)
	return &fakeAPI{
		seckillCode:     statuscode.Success,
		materializeCode: statuscode.Success,
		payCode:         statuscode.Success,
		cancelCode:      statuscode.Success,
		reservation: Reservation{
			OrderID:    42,
			OrderNo:    "20260301120000ABCD1234",
			Amount:     1960,
			ExpireTime: expire,
		},
		order: Order{
			ID:           42,
			OrderNo:      "20260301120000ABCD1234",
			TicketTypeID: 7,
			Quantity:     2,
			UnitPrice:    980,
			Amount:       1960,
			Status:       lifecycle.StatusPending,
			ExpireTime:   expire,
		},
	}
}

func TestBuySuccess(t *testing.T) {
	api := successAPI()
	flow := newFlowFixture(t, api)

	order, err := flow.Buy(context.Background(), 7, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(42), order.ID)
	assert.Equal(t, lifecycle.StatusPending, order.Status)

	// The confirmed order carries the amount quoted at claim time.
	assert.Equal(t, api.reservation.Amount, order.Amount)

	assert.Equal(t, int32(1), api.seckillCalls.Load())
	assert.Equal(t, int32(1), api.materializeCalls.Load())
}

func TestBuyValidatesLocally(t *testing.T) {
	api := successAPI()
	flow := newFlowFixture(t, api)

	_, err := flow.Buy(context.Background(), 0, 1)
	assert.Equal(t, errorbank.KindValidation, errorbank.From(err).Kind())

	_, err = flow.Buy(context.Background(), 7, 0)
	assert.Equal(t, errorbank.KindValidation, errorbank.From(err).Kind())

	// Invalid input never leaves the process.
	assert.Equal(t, int32(0), api.seckillCalls.Load())
}

func TestBuyOverCapRejectedLocally(t *testing.T) {
	api := successAPI()
	flow := newFlowFixture(t, api)

	_, err := flow.Buy(context.Background(), 7, maxQuantity+1)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindLimitExceeded, errorbank.From(err).Kind())

	// The over-cap attempt never leaves the process.
	assert.Equal(t, int32(0), api.seckillCalls.Load())

	// The cap itself is still purchasable.
	_, err = flow.Buy(context.Background(), 7, maxQuantity)
	require.NoError(t, err)
}

func TestBuyStockInsufficientStopsFlow(t *testing.T) {
	api := successAPI()
	api.seckillCode = statuscode.TicketStockInsufficient
	flow := newFlowFixture(t, api)

	_, err := flow.Buy(context.Background(), 7, 2)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindStockInsufficient, errorbank.From(err).Kind())

	// A failed claim must never be exchanged for an order.
	assert.Equal(t, int32(0), api.materializeCalls.Load())
}

func TestBuyDuplicateFetchesExistingOrder(t *testing.T) {
	api := successAPI()
	api.materializeCode = statuscode.OrderDuplicate
	flow := newFlowFixture(t, api)

	order, err := flow.Buy(context.Background(), 7, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(42), order.ID)

	// The duplicate is resolved by fetching, not by a second exchange.
	assert.Equal(t, int32(1), api.materializeCalls.Load())
	assert.Equal(t, int32(1), api.orderCalls.Load())
}

func TestBuyInFlightRejection(t *testing.T) {
	api := successAPI()
	api.blockSeckill = make(chan struct{})
	flow := newFlowFixture(t, api)

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, _ = flow.Buy(context.Background(), 7, 2)
	}()

	// Wait until the first attempt is holding the flight slot.
	require.Eventually(t, func() bool {
		return api.seckillCalls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	_, err := flow.Buy(context.Background(), 7, 2)
	assert.ErrorIs(t, err, ErrAttemptInFlight)

	// A different quantity is a different attempt and is not blocked locally.
	api.mu.Lock()
	blocked := api.blockSeckill
	api.blockSeckill = nil
	api.mu.Unlock()
	close(blocked)
	<-firstDone

	_, err = flow.Buy(context.Background(), 7, 3)
	require.NoError(t, err)
}

func TestBuyReleasesFlightSlotAfterFailure(t *testing.T) {
	api := successAPI()
	api.seckillCode = statuscode.TicketStockInsufficient
	flow := newFlowFixture(t, api)

	_, err := flow.Buy(context.Background(), 7, 2)
	require.Error(t, err)

	// The failed attempt left no client-side state behind; retrying is
	// allowed immediately.
	api.seckillCode = statuscode.Success
	_, err = flow.Buy(context.Background(), 7, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(2), api.seckillCalls.Load())
}

// abandonedContext starts live and flips to cancelled on demand. Done never
// fires, so a request already on the wire still completes; only callers that
// poll Err observe the cancellation.
type abandonedContext struct {
	context.Context
	cancelled atomic.Bool
}

func (c *abandonedContext) Done() <-chan struct{} { return nil }

func (c *abandonedContext) Err() error {
	if c.cancelled.Load() {
		return context.Canceled
	}
	return nil
}

func TestBuyAbandonedAfterClaimSkipsExchange(t *testing.T) {
	api := successAPI()
	ctx := &abandonedContext{Context: context.Background()}
	// The caller gives up while the claim response is still in flight.
	api.onSeckill = func() { ctx.cancelled.Store(true) }
	flow := newFlowFixture(t, api)

	_, err := flow.Buy(ctx, 7, 2)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindTransient, errorbank.From(err).Kind())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "purchase abandoned")

	// The claim landed server-side but is never exchanged for an order; the
	// expiry sweep reclaims its stock.
	assert.Equal(t, int32(1), api.seckillCalls.Load())
	assert.Equal(t, int32(0), api.materializeCalls.Load())
}

func TestPayLocalExpiryShortCircuit(t *testing.T) {
	api := successAPI()
	flow := newFlowFixture(t, api)

	order := api.order
	order.ExpireTime = time.Now().UTC().Add(-time.Minute)

	_, _, err := flow.Pay(context.Background(), &order)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindOrderExpired, errorbank.From(err).Kind())

	// The lapsed window is detected before any request is sent.
	assert.Equal(t, int32(0), api.payCalls.Load())
}

func TestPaySuccess(t *testing.T) {
	api := successAPI()
	flow := newFlowFixture(t, api)

	order := api.order
	result, updated, err := flow.Pay(context.Background(), &order)
	require.NoError(t, err)
	require.Len(t, result.Tickets, 1)
	assert.Equal(t, lifecycle.StatusPaid, updated.Status)
	require.NotNil(t, updated.PaymentTime)

	// Paying never rewrites the agreed amount.
	assert.Equal(t, api.order.Amount, updated.Amount)
}

func TestDoubleCancelSurfacesMismatch(t *testing.T) {
	api := successAPI()
	flow := newFlowFixture(t, api)

	order := api.order
	updated, err := flow.Cancel(context.Background(), &order)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusCancelled, updated.Status)

	// The server now reports the order already left Pending.
	api.mu.Lock()
	api.cancelCode = statuscode.OrderStatusError
	api.order.Status = lifecycle.StatusCancelled
	api.mu.Unlock()

	refreshed, err := flow.Cancel(context.Background(), updated)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindOrderStatusMismatch, errorbank.From(err).Kind())
	assert.Equal(t, lifecycle.StatusCancelled, refreshed.Status)
}

func TestCancelPaidOrderReconciles(t *testing.T) {
	api := successAPI()
	api.cancelCode = statuscode.OrderStatusError
	api.order.Status = lifecycle.StatusPaid
	flow := newFlowFixture(t, api)

	order := api.order
	order.Status = lifecycle.StatusPending // stale local view

	refreshed, err := flow.Cancel(context.Background(), &order)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindOrderStatusMismatch, errorbank.From(err).Kind())

	// The refetched order shows what actually happened: it was paid.
	assert.Equal(t, lifecycle.StatusPaid, refreshed.Status)
	assert.Equal(t, int32(1), api.orderCalls.Load())
}

func TestRefund(t *testing.T) {
	api := successAPI()
	api.order.Status = lifecycle.StatusPaid
	flow := newFlowFixture(t, api)

	srvOrder := api.order
	updated, err := flow.Refund(context.Background(), &srvOrder)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusRefunded, updated.Status)
}
