package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/boxoffice/pkg/errorbank"
	"github.com/Additional-Code/boxoffice/pkg/lifecycle"
	"github.com/Additional-Code/boxoffice/pkg/statuscode"
)

func writeEnvelope(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":    code,
		"message": statuscode.Message(code),
		"data":    data,
	})
}

func TestSeckillSuccess(t *testing.T) {
	expire := time.Now().UTC().Add(30 * time.Minute).Truncate(time.Second)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/tickets/seckill", r.URL.Path)

		var payload struct {
			TicketTypeID int64 `json:"ticketTypeId"`
			Quantity     int   `json:"quantity"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, int64(7), payload.TicketTypeID)
		assert.Equal(t, 2, payload.Quantity)

		writeEnvelope(w, statuscode.Success, Reservation{
			OrderID:    42,
			OrderNo:    "20260301120000ABCD1234",
			Amount:     1960,
			ExpireTime: expire,
		})
	}))
	defer srv.Close()

	api := New(srv.URL)
	reservation, err := api.Seckill(context.Background(), 7, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(42), reservation.OrderID)
	assert.Equal(t, 1960.0, reservation.Amount)
	assert.True(t, expire.Equal(reservation.ExpireTime))
}

func TestSeckillStockInsufficient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		writeEnvelope(w, statuscode.TicketStockInsufficient, nil)
	}))
	defer srv.Close()

	api := New(srv.URL)
	_, err := api.Seckill(context.Background(), 7, 2)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindStockInsufficient, errorbank.From(err).Kind())
	assert.Equal(t, statuscode.TicketStockInsufficient, errorbank.From(err).Code())
}

func TestUnknownCodeIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 7777, nil)
	}))
	defer srv.Close()

	api := New(srv.URL)
	_, err := api.Seckill(context.Background(), 7, 2)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindTransient, errorbank.From(err).Kind())
}

func TestMalformedResponseIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	api := New(srv.URL)
	_, err := api.Order(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindTransient, errorbank.From(err).Kind())
}

func TestTokenIsSent(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("Authorization"))
		writeEnvelope(w, statuscode.Success, Identity{UserID: 9})
	}))
	defer srv.Close()

	api := New(srv.URL, WithToken("tok-123"))
	identity, err := api.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(9), identity.UserID)
	assert.Equal(t, "Bearer tok-123", got.Load())
}

func TestPerformancesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/performances", r.URL.Path)
		assert.Equal(t, "演唱会", r.URL.Query().Get("keyword"))
		assert.Equal(t, "1", r.URL.Query().Get("status"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		writeEnvelope(w, statuscode.Success, PerformancePage{
			List:  []Performance{{ID: 3, Title: "周杰伦演唱会", Venue: "国家体育场"}},
			Total: 1,
		})
	}))
	defer srv.Close()

	api := New(srv.URL)
	page, err := api.Performances(context.Background(), "演唱会", 1, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.List, 1)
	assert.Equal(t, int64(3), page.List[0].ID)
}

func TestOrdersQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orders", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "20", r.URL.Query().Get("pageSize"))
		assert.Equal(t, "1", r.URL.Query().Get("status"))
		writeEnvelope(w, statuscode.Success, OrderPage{
			List:     []Order{{ID: 1, Status: lifecycle.StatusPaid}},
			Total:    21,
			Page:     2,
			PageSize: 20,
		})
	}))
	defer srv.Close()

	api := New(srv.URL)
	page, err := api.Orders(context.Background(), int(lifecycle.StatusPaid), 2, 20)
	require.NoError(t, err)
	assert.Equal(t, 21, page.Total)
	require.Len(t, page.List, 1)
	assert.Equal(t, lifecycle.StatusPaid, page.List[0].Status)
}
