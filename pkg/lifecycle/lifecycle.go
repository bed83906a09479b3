// Package lifecycle models the order state machine shared by the boxoffice
// service and its clients. The stored states are Pending, Paid, Cancelled and
// Refunded; Expired is a derived view of a Pending order whose payment window
// has lapsed, and is never written anywhere.
package lifecycle

import (
	"fmt"
	"time"
)

// Status is a stored order state.
type Status int

const (
	StatusPending Status = iota
	StatusPaid
	StatusCancelled
	StatusRefunded
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusPaid:
		return "paid"
	case StatusCancelled:
		return "cancelled"
	case StatusRefunded:
		return "refunded"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Valid reports whether s is one of the stored states.
func (s Status) Valid() bool {
	return s >= StatusPending && s <= StatusRefunded
}

// Terminal reports whether no further transition leaves s. Paid is not
// terminal because a refund is still possible; Cancelled and Refunded are.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusRefunded
}

// Action is a requested transition.
type Action int

const (
	ActionPay Action = iota
	ActionCancel
	ActionRefund
)

func (a Action) String() string {
	switch a {
	case ActionPay:
		return "pay"
	case ActionCancel:
		return "cancel"
	case ActionRefund:
		return "refund"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// transitions is the full table. Nothing ever returns an order to Pending.
var transitions = map[Status]map[Action]Status{
	StatusPending: {
		ActionPay:    StatusPaid,
		ActionCancel: StatusCancelled,
	},
	StatusPaid: {
		ActionRefund: StatusRefunded,
	},
}

// Next returns the target state for applying action to from, and whether the
// transition is defined at all.
func Next(from Status, action Action) (Status, bool) {
	to, ok := transitions[from][action]
	return to, ok
}

// CanTransition reports whether the from→to edge exists in the table.
func CanTransition(from, to Status) bool {
	for _, target := range transitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// Expired reports the derived expired view: a Pending order whose payment
// deadline has passed. Orders in any other state never expire.
func Expired(status Status, expireTime, now time.Time) bool {
	if status != StatusPending {
		return false
	}
	if expireTime.IsZero() {
		return false
	}
	return now.After(expireTime)
}

// Payable reports whether an order may be paid at the given instant. The
// check is advisory on clients; the service re-evaluates it authoritatively.
func Payable(status Status, expireTime, now time.Time) bool {
	if status != StatusPending {
		return false
	}
	return !Expired(status, expireTime, now)
}
