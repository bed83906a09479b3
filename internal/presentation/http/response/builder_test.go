package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/boxoffice/pkg/errorbank"
	"github.com/Additional-Code/boxoffice/pkg/statuscode"
)

func record(t *testing.T, build func(c echo.Context) error) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, build(e.NewContext(req, rec)))

	var envelope Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return rec, envelope
}

func TestBuildSuccessDefaults(t *testing.T) {
	rec, envelope := record(t, func(c echo.Context) error {
		return New(c).WithData(map[string]int{"id": 42}).Build()
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, statuscode.Success, envelope.Code)
	assert.Equal(t, statuscode.Message(statuscode.Success), envelope.Message)
	assert.NotNil(t, envelope.Data)
}

func TestBuildSuccessMessageOverride(t *testing.T) {
	_, envelope := record(t, func(c echo.Context) error {
		return New(c).WithMessage("抢票成功").Build()
	})

	assert.Equal(t, statuscode.Success, envelope.Code)
	assert.Equal(t, "抢票成功", envelope.Message)
}

func TestBuildErrorCarriesBusinessCode(t *testing.T) {
	rec, envelope := record(t, func(c echo.Context) error {
		return New(c).WithError(errorbank.StockInsufficient("库存不足")).Build()
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, statuscode.TicketStockInsufficient, envelope.Code)
	assert.Equal(t, "库存不足", envelope.Message)
	assert.Nil(t, envelope.Data)
}

func TestBuildErrorHTTPStatus(t *testing.T) {
	rec, envelope := record(t, func(c echo.Context) error {
		return New(c).WithError(errorbank.Unauthenticated("请先登录")).Build()
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, statuscode.Unauthorized, envelope.Code)
}

func TestBuildErrorFromPlainError(t *testing.T) {
	rec, envelope := record(t, func(c echo.Context) error {
		return New(c).WithError(assert.AnError).Build()
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, statuscode.InternalError, envelope.Code)
}
