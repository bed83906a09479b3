package errorbank

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/boxoffice/pkg/statuscode"
)

func TestFromCode(t *testing.T) {
	tests := []struct {
		name string
		code int
		kind Kind
	}{
		{"stock insufficient", statuscode.TicketStockInsufficient, KindStockInsufficient},
		{"limit exceeded", statuscode.TicketLimitExceeded, KindLimitExceeded},
		{"order missing", statuscode.OrderNotExist, KindOrderNotFound},
		{"order expired", statuscode.OrderExpired, KindOrderExpired},
		{"status mismatch", statuscode.OrderStatusError, KindOrderStatusMismatch},
		{"duplicate", statuscode.OrderDuplicate, KindDuplicate},
		{"unauthenticated", statuscode.Unauthorized, KindUnauthenticated},
		{"forbidden", statuscode.Forbidden, KindForbidden},
		{"seckill failed", statuscode.TicketSeckillFailed, KindTransient},
		{"unknown code", 987654, KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := FromCode(tt.code, "")
			require.NotNil(t, appErr)
			assert.Equal(t, tt.kind, appErr.Kind())
			assert.Equal(t, tt.code, appErr.Code())
			assert.Equal(t, statuscode.Message(tt.code), appErr.Message())
		})
	}
}

func TestFromCodeSuccess(t *testing.T) {
	assert.Nil(t, FromCode(statuscode.Success, "ok"))
}

func TestCodeDerivedFromKind(t *testing.T) {
	assert.Equal(t, statuscode.TicketStockInsufficient, StockInsufficient("").Code())
	assert.Equal(t, statuscode.TicketLimitExceeded, LimitExceeded("").Code())
	assert.Equal(t, statuscode.OrderNotExist, OrderNotFound("").Code())
	assert.Equal(t, statuscode.OrderExpired, OrderExpired("").Code())
	assert.Equal(t, statuscode.OrderStatusError, OrderStatusMismatch("").Code())
	assert.Equal(t, statuscode.OrderDuplicate, Duplicate("").Code())
	assert.Equal(t, statuscode.TicketSeckillFailed, Transient("").Code())
	assert.Equal(t, statuscode.InternalError, Internal("").Code())
}

func TestCodeOverride(t *testing.T) {
	appErr := NotFound("票种不存在", WithCode(statuscode.TicketNotExist))
	assert.Equal(t, statuscode.TicketNotExist, appErr.Code())
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StockInsufficient("").StatusCode())
	assert.Equal(t, http.StatusBadRequest, OrderStatusMismatch("").StatusCode())
	assert.Equal(t, http.StatusUnauthorized, Unauthenticated("").StatusCode())
	assert.Equal(t, http.StatusForbidden, Forbidden("").StatusCode())
	assert.Equal(t, http.StatusNotFound, OrderNotFound("").StatusCode())
	assert.Equal(t, http.StatusInternalServerError, Internal("").StatusCode())
}

func TestFrom(t *testing.T) {
	appErr := StockInsufficient("库存不足")
	assert.Same(t, appErr, From(appErr))
	assert.Same(t, appErr, From(fmt.Errorf("wrapped: %w", appErr)))

	plain := errors.New("boom")
	wrapped := From(plain)
	assert.Equal(t, KindInternal, wrapped.Kind())
	assert.ErrorIs(t, wrapped, plain)

	assert.Nil(t, From(nil))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("row lock timeout")
	appErr := Internal("failed to pay order", WithCause(cause))
	assert.ErrorIs(t, appErr, cause)
	assert.Contains(t, appErr.Error(), "row lock timeout")
}
