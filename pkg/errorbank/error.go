package errorbank

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Additional-Code/boxoffice/pkg/statuscode"
)

// Kind enumerates supported application error categories. The domain kinds
// mirror the business status code namespace so transports can render the
// {code, message} envelope without inspecting causes.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"

	KindStockInsufficient   Kind = "stock_insufficient"
	KindLimitExceeded       Kind = "limit_exceeded"
	KindOrderNotFound       Kind = "order_not_found"
	KindOrderExpired        Kind = "order_expired"
	KindOrderStatusMismatch Kind = "order_status_mismatch"
	KindDuplicate           Kind = "duplicate"

	KindTransient Kind = "transient"
	KindInternal  Kind = "internal"
)

// AppError captures rich error context shared across transports.
type AppError struct {
	kind    Kind
	code    int
	message string
	details map[string]any
	cause   error
}

// Option mutates an AppError during construction.
type Option func(*AppError)

// WithCause attaches an underlying error.
func WithCause(err error) Option {
	return func(appErr *AppError) {
		appErr.cause = err
	}
}

// WithCode overrides the business status code derived from the kind.
func WithCode(code int) Option {
	return func(appErr *AppError) {
		appErr.code = code
	}
}

// WithDetail adds a single named detail value.
func WithDetail(key string, value any) Option {
	return func(appErr *AppError) {
		if appErr.details == nil {
			appErr.details = make(map[string]any)
		}
		appErr.details[key] = value
	}
}

// New constructs a new AppError with the supplied kind and message.
func New(kind Kind, message string, opts ...Option) *AppError {
	if message == "" {
		message = string(kind)
	}
	appErr := &AppError{kind: kind, message: message}
	for _, opt := range opts {
		opt(appErr)
	}
	return appErr
}

// Error satisfies the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Kind returns the error category.
func (e *AppError) Kind() Kind {
	if e == nil {
		return KindInternal
	}
	return e.kind
}

// Message returns the human-readable message.
func (e *AppError) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Details returns optional metadata about the error.
func (e *AppError) Details() map[string]any {
	if e == nil {
		return nil
	}
	return e.details
}

// Code resolves the business status code for the error.
func (e *AppError) Code() int {
	if e == nil {
		return statuscode.InternalError
	}
	if e.code != 0 {
		return e.code
	}
	switch e.kind {
	case KindValidation:
		return statuscode.BadRequest
	case KindUnauthenticated:
		return statuscode.Unauthorized
	case KindForbidden:
		return statuscode.Forbidden
	case KindNotFound:
		return statuscode.NotFound
	case KindStockInsufficient:
		return statuscode.TicketStockInsufficient
	case KindLimitExceeded:
		return statuscode.TicketLimitExceeded
	case KindOrderNotFound:
		return statuscode.OrderNotExist
	case KindOrderExpired:
		return statuscode.OrderExpired
	case KindOrderStatusMismatch:
		return statuscode.OrderStatusError
	case KindDuplicate:
		return statuscode.OrderDuplicate
	case KindTransient:
		return statuscode.TicketSeckillFailed
	default:
		return statuscode.InternalError
	}
}

// StatusCode resolves the HTTP status for the error kind.
func (e *AppError) StatusCode() int {
	if e == nil {
		return http.StatusInternalServerError
	}
	switch e.kind {
	case KindValidation, KindStockInsufficient, KindLimitExceeded,
		KindOrderExpired, KindOrderStatusMismatch, KindDuplicate:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound, KindOrderNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Validation constructs a local pre-network validation error.
func Validation(message string, opts ...Option) *AppError {
	return New(KindValidation, message, opts...)
}

// Unauthenticated constructs a 401 error.
func Unauthenticated(message string, opts ...Option) *AppError {
	return New(KindUnauthenticated, message, opts...)
}

// Forbidden constructs a 403 error.
func Forbidden(message string, opts ...Option) *AppError {
	return New(KindForbidden, message, opts...)
}

// NotFound constructs a 404 error.
func NotFound(message string, opts ...Option) *AppError {
	return New(KindNotFound, message, opts...)
}

// StockInsufficient signals the requested quantity exceeds remaining stock.
func StockInsufficient(message string, opts ...Option) *AppError {
	return New(KindStockInsufficient, message, opts...)
}

// LimitExceeded signals the per-user purchase cap was hit.
func LimitExceeded(message string, opts ...Option) *AppError {
	return New(KindLimitExceeded, message, opts...)
}

// OrderNotFound signals the order does not exist.
func OrderNotFound(message string, opts ...Option) *AppError {
	return New(KindOrderNotFound, message, opts...)
}

// OrderExpired signals the payment window has lapsed.
func OrderExpired(message string, opts ...Option) *AppError {
	return New(KindOrderExpired, message, opts...)
}

// OrderStatusMismatch signals the order is no longer in the expected state.
func OrderStatusMismatch(message string, opts ...Option) *AppError {
	return New(KindOrderStatusMismatch, message, opts...)
}

// Duplicate signals an order already exists for the reservation.
func Duplicate(message string, opts ...Option) *AppError {
	return New(KindDuplicate, message, opts...)
}

// Transient constructs a retryable failure with no further meaning.
func Transient(message string, opts ...Option) *AppError {
	return New(KindTransient, message, opts...)
}

// Internal constructs a generic 500 error.
func Internal(message string, opts ...Option) *AppError {
	return New(KindInternal, message, opts...)
}

// From returns an AppError for any error input, wrapping unexpected values.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal error", WithCause(err))
}

// FromCode builds the AppError matching a raw backend status code, using the
// canonical message when none is supplied. Unmapped codes become transient.
func FromCode(code int, message string, opts ...Option) *AppError {
	if message == "" {
		message = statuscode.Message(code)
	}
	opts = append(opts, WithCode(code))
	switch statuscode.Interpret(code) {
	case statuscode.OutcomeSuccess:
		return nil
	case statuscode.OutcomeValidation:
		return Validation(message, opts...)
	case statuscode.OutcomeUnauthenticated:
		return Unauthenticated(message, opts...)
	case statuscode.OutcomeForbidden:
		return Forbidden(message, opts...)
	case statuscode.OutcomeNotFound:
		return NotFound(message, opts...)
	case statuscode.OutcomeStockInsufficient:
		return StockInsufficient(message, opts...)
	case statuscode.OutcomeLimitExceeded:
		return LimitExceeded(message, opts...)
	case statuscode.OutcomeOrderNotFound:
		return OrderNotFound(message, opts...)
	case statuscode.OutcomeOrderExpired:
		return OrderExpired(message, opts...)
	case statuscode.OutcomeOrderStatusMismatch:
		return OrderStatusMismatch(message, opts...)
	case statuscode.OutcomeDuplicate:
		return Duplicate(message, opts...)
	default:
		return Transient(message, opts...)
	}
}
