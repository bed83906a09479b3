package response

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/boxoffice/pkg/errorbank"
	"github.com/Additional-Code/boxoffice/pkg/statuscode"
)

// Envelope is the wire shape every endpoint responds with. Callers dispatch
// on Code, never on Message.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Builder helps construct consistent HTTP responses.
type Builder struct {
	ctx     echo.Context
	status  int
	data    any
	err     error
	message string
}

// New instantiates a Builder for the provided request context.
func New(ctx echo.Context) *Builder {
	return &Builder{ctx: ctx, status: http.StatusOK}
}

// WithStatus overrides the HTTP status code.
func (b *Builder) WithStatus(status int) *Builder {
	if status > 0 {
		b.status = status
	}
	return b
}

// WithData attaches a success payload.
func (b *Builder) WithData(data any) *Builder {
	b.data = data
	return b
}

// WithMessage overrides the success message.
func (b *Builder) WithMessage(message string) *Builder {
	b.message = message
	return b
}

// WithError records an error to be rendered.
func (b *Builder) WithError(err error) *Builder {
	b.err = err
	return b
}

// Build finalises and emits the HTTP response.
func (b *Builder) Build() error {
	if b.err != nil {
		return b.buildError()
	}
	return b.buildSuccess()
}

func (b *Builder) buildSuccess() error {
	message := b.message
	if message == "" {
		message = statuscode.Message(statuscode.Success)
	}
	return b.ctx.JSON(b.status, Envelope{
		Code:    statuscode.Success,
		Message: message,
		Data:    b.data,
	})
}

func (b *Builder) buildError() error {
	appErr := errorbank.From(b.err)
	status := b.status
	if status < 400 {
		status = appErr.StatusCode()
	}
	return b.ctx.JSON(status, Envelope{
		Code:    appErr.Code(),
		Message: appErr.Message(),
	})
}
