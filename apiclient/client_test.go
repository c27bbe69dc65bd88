package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/models"
	"storefront/shop"
)

// the client must satisfy the shop ports
var (
	_ shop.CatalogSource  = (*Client)(nil)
	_ shop.OrderSubmitter = (*Client)(nil)
	_ shop.OrderLister    = (*Client)(nil)
)

func TestFetchCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/catalog", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":[{"_id":"65a1","name":"Blue Shirt","price":10},{"id":2,"name":"Cap","price":"5.5"}]}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	raws, err := c.FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, raws, 2)

	p, err := shop.NormalizeProduct(raws[0])
	require.NoError(t, err)
	assert.Equal(t, "65a1", p.ID)
	p, err = shop.NormalizeProduct(raws[1])
	require.NoError(t, err)
	assert.Equal(t, "2", p.ID)
	assert.Equal(t, "5.5", p.Price.String())
}

func TestFetchCatalog_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"success":false,"message":"db down"}`},
		{"unsuccessful envelope", http.StatusOK, `{"success":false,"message":"nope"}`},
		{"garbage", http.StatusOK, `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := New(srv.URL)
			require.NoError(t, err)
			_, err = c.FetchCatalog(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestFetchCatalog_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	require.NoError(t, err)
	_, err = c.FetchCatalog(context.Background())
	assert.Error(t, err)
}

func TestCreateOrder(t *testing.T) {
	var got models.CreateOrderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(models.APIResponse{
			Success: true,
			Data:    models.Order{OrderID: got.OrderID, Status: models.StatusProcessing, TrackingNumber: "TRK400123"},
		})
	}))
	defer srv.Close()

	c, err := New(srv.URL + "/")
	require.NoError(t, err)

	order, err := c.CreateOrder(context.Background(), models.CreateOrderRequest{
		OrderID:       "1736942400123",
		PaymentMethod: "cod",
		TotalAmount:   decimal.RequireFromString("30"),
	})
	require.NoError(t, err)
	assert.Equal(t, "1736942400123", got.OrderID)
	assert.Equal(t, "TRK400123", order.TrackingNumber)
}

func TestCreateOrder_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"success":false,"message":"total mismatch"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	_, err = c.CreateOrder(context.Background(), models.CreateOrderRequest{OrderID: "1"})
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnprocessableEntity))
	assert.Contains(t, err.Error(), "total mismatch")
}

func TestListOrders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "u1", r.URL.Query().Get("owner"))
		_, _ = w.Write([]byte(`{"success":true,"count":1,"data":[{"orderId":"1","status":"Shipped"}]}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	orders, err := c.ListOrders(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, models.StatusShipped, orders[0].Status)
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New("localhost:8080/api")
	assert.Error(t, err)
}
