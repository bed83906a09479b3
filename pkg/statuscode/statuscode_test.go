package statuscode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpret(t *testing.T) {
	tests := []struct {
		name string
		code int
		want Outcome
	}{
		{"success", Success, OutcomeSuccess},
		{"bad request", BadRequest, OutcomeValidation},
		{"unauthorized", Unauthorized, OutcomeUnauthenticated},
		{"forbidden", Forbidden, OutcomeForbidden},
		{"not found", NotFound, OutcomeNotFound},
		{"performance missing", PerformanceNotExist, OutcomeNotFound},
		{"ticket type missing", TicketNotExist, OutcomeNotFound},
		{"stock insufficient", TicketStockInsufficient, OutcomeStockInsufficient},
		{"seckill failed", TicketSeckillFailed, OutcomeTransient},
		{"limit exceeded", TicketLimitExceeded, OutcomeLimitExceeded},
		{"order missing", OrderNotExist, OutcomeOrderNotFound},
		{"order expired", OrderExpired, OutcomeOrderExpired},
		{"status mismatch", OrderStatusError, OutcomeOrderStatusMismatch},
		{"duplicate", OrderDuplicate, OutcomeDuplicate},
		{"internal error", InternalError, OutcomeTransient},
		{"rate limited", RateLimitExceeded, OutcomeTransient},
		{"maintenance", SystemMaintenance, OutcomeTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Interpret(tt.code))
		})
	}
}

func TestInterpretUnknownCode(t *testing.T) {
	// Codes the backend invents later degrade to retryable, never to a crash.
	for _, code := range []int{0, -1, 999, 7001, 123456} {
		assert.Equal(t, OutcomeTransient, Interpret(code), "code %d", code)
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, OutcomeTransient.Retryable())

	for _, o := range []Outcome{
		OutcomeSuccess, OutcomeValidation, OutcomeStockInsufficient,
		OutcomeLimitExceeded, OutcomeNotFound, OutcomeOrderNotFound,
		OutcomeOrderExpired, OutcomeOrderStatusMismatch, OutcomeDuplicate,
		OutcomeUnauthenticated, OutcomeForbidden,
	} {
		assert.False(t, o.Retryable(), o.String())
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "库存不足", Message(TicketStockInsufficient))
	assert.Equal(t, "订单状态错误", Message(OrderStatusError))

	// Unmapped codes fall back to the generic failure message.
	assert.Equal(t, Message(InternalError), Message(987654))
}
