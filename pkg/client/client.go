// Package client is the typed SDK for the box office API. It converts the
// {code, message, data} envelope into domain errors so callers dispatch on
// error kinds instead of raw status codes, and layers purchase-flow
// orchestration (Flow) and identity handling (Session) on top of the plain
// endpoint bindings.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/Additional-Code/boxoffice/pkg/errorbank"
)

// Client provides typed access to the box office API.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// Option customises a Client during construction.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.http.SetAuthToken(token)
	}
}

// WithTimeout bounds each request round trip.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(timeout)
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient swaps the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		base := c.http.BaseURL
		c.http = resty.NewWithClient(hc)
		c.http.SetBaseURL(base)
	}
}

// New constructs a Client for the given API base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http:   resty.New().SetBaseURL(baseURL).SetTimeout(10 * time.Second),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token on a live client.
func (c *Client) SetToken(token string) {
	c.http.SetAuthToken(token)
}

// envelope is the wire shape of every response.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return errorbank.Transient("request failed", errorbank.WithCause(err))
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return errorbank.Transient(
			fmt.Sprintf("malformed response (http %d)", resp.StatusCode()),
			errorbank.WithCause(err),
		)
	}

	c.logger.Debug("api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("code", env.Code),
	)

	if appErr := errorbank.FromCode(env.Code, env.Message); appErr != nil {
		return appErr
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return errorbank.Transient("malformed response payload", errorbank.WithCause(err))
		}
	}
	return nil
}

// Seckill runs one flash-sale attempt for the given ticket type and quantity.
func (c *Client) Seckill(ctx context.Context, ticketTypeID int64, quantity int) (*Reservation, error) {
	var reservation Reservation
	err := c.call(ctx, http.MethodPost, "/api/tickets/seckill", map[string]any{
		"ticketTypeId": ticketTypeID,
		"quantity":     quantity,
	}, &reservation)
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// Materialize exchanges a reservation for its confirmed order. A duplicate
// exchange fails with a duplicate error; fetch the order instead.
func (c *Client) Materialize(ctx context.Context, orderID int64) (*Order, error) {
	var order Order
	err := c.call(ctx, http.MethodPost, "/api/orders/from-seckill", map[string]any{
		"orderId": orderID,
	}, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Order fetches one order by id.
func (c *Client) Order(ctx context.Context, id int64) (*Order, error) {
	var order Order
	if err := c.call(ctx, http.MethodGet, "/api/orders/"+strconv.FormatInt(id, 10), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Orders fetches one page of the caller's orders. A negative status means all
// statuses.
func (c *Client) Orders(ctx context.Context, status, page, pageSize int) (*OrderPage, error) {
	path := fmt.Sprintf("/api/orders?page=%d&pageSize=%d", page, pageSize)
	if status >= 0 {
		path += "&status=" + strconv.Itoa(status)
	}
	var result OrderPage
	if err := c.call(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Pay settles a pending order and returns the issued tickets.
func (c *Client) Pay(ctx context.Context, orderID int64) (*PaymentResult, error) {
	var result PaymentResult
	if err := c.call(ctx, http.MethodPost, fmt.Sprintf("/api/orders/%d/pay", orderID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Cancel voids a pending order.
func (c *Client) Cancel(ctx context.Context, orderID int64) error {
	return c.call(ctx, http.MethodPost, fmt.Sprintf("/api/orders/%d/cancel", orderID), nil, nil)
}

// Refund reverses a paid order.
func (c *Client) Refund(ctx context.Context, orderID int64) error {
	return c.call(ctx, http.MethodPost, fmt.Sprintf("/api/orders/%d/refund", orderID), nil, nil)
}

// Performances searches the performance catalogue. An empty keyword matches
// everything; a negative status means all statuses.
func (c *Client) Performances(ctx context.Context, keyword string, status, page, pageSize int) (*PerformancePage, error) {
	path := fmt.Sprintf("/api/performances?page=%d&pageSize=%d", page, pageSize)
	if keyword != "" {
		path += "&keyword=" + url.QueryEscape(keyword)
	}
	if status >= 0 {
		path += "&status=" + strconv.Itoa(status)
	}
	var result PerformancePage
	if err := c.call(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Performance fetches one performance by id.
func (c *Client) Performance(ctx context.Context, id int64) (*Performance, error) {
	var perf Performance
	if err := c.call(ctx, http.MethodGet, "/api/performances/"+strconv.FormatInt(id, 10), nil, &perf); err != nil {
		return nil, err
	}
	return &perf, nil
}

// TicketTypes lists the ticket tiers of one performance.
func (c *Client) TicketTypes(ctx context.Context, performanceID int64) ([]TicketType, error) {
	var types []TicketType
	path := fmt.Sprintf("/api/performances/%d/ticket-types", performanceID)
	if err := c.call(ctx, http.MethodGet, path, nil, &types); err != nil {
		return nil, err
	}
	return types, nil
}

// Stock reports remaining stock of one ticket type.
func (c *Client) Stock(ctx context.Context, ticketTypeID int64) (*StockView, error) {
	var view StockView
	path := fmt.Sprintf("/api/tickets/types/%d/stock", ticketTypeID)
	if err := c.call(ctx, http.MethodGet, path, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Me validates the stored token and returns the caller's identity.
func (c *Client) Me(ctx context.Context) (*Identity, error) {
	var identity Identity
	if err := c.call(ctx, http.MethodGet, "/api/users/me", nil, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}
