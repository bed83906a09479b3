package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/Additional-Code/boxoffice/internal/entity"
)

type mockOrders struct {
	mock.Mock
}

func (m *mockOrders) ListExpiredUnreleased(ctx context.Context, now time.Time, limit int) ([]*entity.Order, error) {
	args := m.Called(ctx, now, limit)
	if orders := args.Get(0); orders != nil {
		return orders.([]*entity.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrders) MarkStockReleased(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type mockStock struct {
	mock.Mock
}

func (m *mockStock) IncreaseStock(ctx context.Context, id int64, quantity int) error {
	args := m.Called(ctx, id, quantity)
	return args.Error(0)
}

func newSweeper(orders *mockOrders, stock *mockStock) *Sweeper {
	return &Sweeper{
		orders: orders,
		stock:  stock,
		logger: zap.NewNop(),
	}
}

func TestSweepReturnsStock(t *testing.T) {
	orders := &mockOrders{}
	stock := &mockStock{}

	lapsed := []*entity.Order{
		{ID: 1, TicketTypeID: 7, Quantity: 2},
		{ID: 2, TicketTypeID: 8, Quantity: 1},
	}
	orders.On("ListExpiredUnreleased", mock.Anything, mock.Anything, sweepBatchSize).Return(lapsed, nil)
	orders.On("MarkStockReleased", mock.Anything, int64(1)).Return(true, nil)
	orders.On("MarkStockReleased", mock.Anything, int64(2)).Return(true, nil)
	stock.On("IncreaseStock", mock.Anything, int64(7), 2).Return(nil)
	stock.On("IncreaseStock", mock.Anything, int64(8), 1).Return(nil)

	newSweeper(orders, stock).Sweep(context.Background())

	stock.AssertExpectations(t)
}

func TestSweepSkipsAlreadyReleased(t *testing.T) {
	orders := &mockOrders{}
	stock := &mockStock{}

	lapsed := []*entity.Order{{ID: 1, TicketTypeID: 7, Quantity: 2}}
	orders.On("ListExpiredUnreleased", mock.Anything, mock.Anything, sweepBatchSize).Return(lapsed, nil)

	// A concurrent cancel won the guarded update first.
	orders.On("MarkStockReleased", mock.Anything, int64(1)).Return(false, nil)

	newSweeper(orders, stock).Sweep(context.Background())

	stock.AssertNotCalled(t, "IncreaseStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestSweepContinuesPastFailures(t *testing.T) {
	orders := &mockOrders{}
	stock := &mockStock{}

	lapsed := []*entity.Order{
		{ID: 1, TicketTypeID: 7, Quantity: 2},
		{ID: 2, TicketTypeID: 8, Quantity: 1},
	}
	orders.On("ListExpiredUnreleased", mock.Anything, mock.Anything, sweepBatchSize).Return(lapsed, nil)
	orders.On("MarkStockReleased", mock.Anything, int64(1)).Return(false, assert.AnError)
	orders.On("MarkStockReleased", mock.Anything, int64(2)).Return(true, nil)
	stock.On("IncreaseStock", mock.Anything, int64(8), 1).Return(nil)

	newSweeper(orders, stock).Sweep(context.Background())

	stock.AssertExpectations(t)
	stock.AssertNotCalled(t, "IncreaseStock", mock.Anything, int64(7), mock.Anything)
}
