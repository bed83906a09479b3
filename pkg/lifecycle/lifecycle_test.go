package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name   string
		from   Status
		action Action
		want   Status
		ok     bool
	}{
		{"pay pending", StatusPending, ActionPay, StatusPaid, true},
		{"cancel pending", StatusPending, ActionCancel, StatusCancelled, true},
		{"refund paid", StatusPaid, ActionRefund, StatusRefunded, true},
		{"pay paid", StatusPaid, ActionPay, StatusPaid, false},
		{"cancel paid", StatusPaid, ActionCancel, StatusPaid, false},
		{"refund pending", StatusPending, ActionRefund, StatusPending, false},
		{"pay cancelled", StatusCancelled, ActionPay, StatusCancelled, false},
		{"refund refunded", StatusRefunded, ActionRefund, StatusRefunded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Next(tt.from, tt.action)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusPaid.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusRefunded.Terminal())
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusPaid))
	assert.True(t, CanTransition(StatusPending, StatusCancelled))
	assert.True(t, CanTransition(StatusPaid, StatusRefunded))
	assert.False(t, CanTransition(StatusPaid, StatusCancelled))
	assert.False(t, CanTransition(StatusCancelled, StatusPaid))
	assert.False(t, CanTransition(StatusRefunded, StatusPending))
}

func TestExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	// Expiry is derived, and only a pending order can be expired.
	assert.True(t, Expired(StatusPending, past, now))
	assert.False(t, Expired(StatusPending, future, now))
	assert.False(t, Expired(StatusPaid, past, now))
	assert.False(t, Expired(StatusCancelled, past, now))
	assert.False(t, Expired(StatusRefunded, past, now))

	// A zero window never expires.
	assert.False(t, Expired(StatusPending, time.Time{}, now))
}

func TestPayable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, Payable(StatusPending, now.Add(time.Minute), now))
	assert.False(t, Payable(StatusPending, now.Add(-time.Minute), now))
	assert.False(t, Payable(StatusPaid, now.Add(time.Minute), now))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "pending", StatusPending.String())
	assert.Equal(t, "paid", StatusPaid.String())
	assert.Equal(t, "cancelled", StatusCancelled.String())
	assert.Equal(t, "refunded", StatusRefunded.String())
}
