package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/bakery-storefront/internal/core/domain"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL + "/api"
	cfg.Retry.RetryDelay = time.Millisecond
	cfg.Retry.MaxDelay = 5 * time.Millisecond
	c, err := NewClient(cfg, nil)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

var shopper = &domain.User{ID: "u-1", Token: "tok-1"}

func TestNewClient_RejectsBadBaseURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "ftp://bakery"}, nil)
	assert.Error(t, err)

	c, err := NewClient(Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, err := uuid.Parse(r.Header.Get("X-Request-ID"))
		assert.NoError(t, err)

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ann@bakery.test", body["email"])
		assert.Equal(t, "secret", body["password"])

		writeJSON(w, http.StatusOK, map[string]any{
			"_id": "u-1", "name": "Ann", "email": "ann@bakery.test", "isAdmin": true, "token": "tok-1",
			"addresses": []map[string]any{{"_id": "a-1", "street": "1 Rye Rd", "city": "C", "state": "CA", "zip": "9", "default": true}},
		})
	}))

	user, err := c.Login(context.Background(), "ann@bakery.test", "secret")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, "tok-1", user.Token)
	assert.True(t, user.IsAdmin)
	require.Len(t, user.Addresses, 1)
	assert.True(t, user.Addresses[0].Default)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		body    string
		wantMsg string
		want    codes.Code
	}{
		{"backend message", http.StatusUnauthorized, `{"message":"Invalid email or password"}`, "Invalid email or password", codes.Unauthenticated},
		{"not json", http.StatusInternalServerError, `<html>oops</html>`, "Something went wrong", codes.Internal},
		{"empty message", http.StatusBadRequest, `{"message":""}`, "Something went wrong", codes.InvalidArgument},
		{"forbidden", http.StatusForbidden, `{"message":"Not authorized as an admin"}`, "Not authorized as an admin", codes.PermissionDenied},
		{"not found", http.StatusNotFound, `{}`, "Something went wrong", codes.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = io.WriteString(w, tt.body)
			}))

			_, err := c.Login(context.Background(), "a@b.c", "x")
			require.Error(t, err)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.code, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.NotEmpty(t, apiErr.RequestID)
			assert.Equal(t, tt.want, status.Code(err))
		})
	}
}

func TestTransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = url
	cfg.Retry.MaxRetries = 0
	c, err := NewClient(cfg, nil)
	require.NoError(t, err)

	_, err = c.FetchCart(context.Background(), shopper)
	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestCatalogReadsRetry(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, []map[string]any{
			{"_id": "p1", "name": "Croissant", "price": 3.5, "category": "Pastries"},
		})
	}))

	products, err := c.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "3.5", products[0].Price.String())
	assert.Equal(t, int32(3), calls.Load())
}

func TestCartWritesDoNotRetry(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	err := c.PersistCart(context.Background(), shopper, domain.Cart{{ProductID: "p1", Quantity: 1}})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchCart(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/user/cart", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[{"productId":{"_id":"p1","name":"Croissant","price":3.5},"quantity":2}]`)
	}))

	items, err := c.FetchCart(context.Background(), shopper)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.LineItem{ProductID: "p1", Quantity: 2}, items[0].LineItem())
	assert.Equal(t, "Croissant", items[0].Product.Name)
}

func TestFetchCartDeletedProduct(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"productId":null,"quantity":2},{"productId":{"_id":"p1"},"quantity":1}]`)
	}))

	items, err := c.FetchCart(context.Background(), shopper)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Empty(t, items[0].Product.ID)
	assert.ErrorIs(t, domain.CheckRemote(items), domain.ErrMissingProduct)
}

func TestPersistCartSendsFullSnapshot(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/user/cart", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"cart":[{"productId":"p1","quantity":2},{"productId":"p2","quantity":1}]}`, string(body))
		w.WriteHeader(http.StatusNoContent)
	}))

	err := c.PersistCart(context.Background(), shopper, domain.Cart{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1},
	})
	assert.NoError(t, err)
}

func TestPersistEmptyCartSendsArray(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"cart":[]}`, string(body))
		writeJSON(w, http.StatusOK, []any{})
	}))

	assert.NoError(t, c.PersistCart(context.Background(), shopper, nil))
}

func TestUpdateAddresses(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/user/addresses", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"addresses":[
			{"street":"1 Rye Rd","city":"C","state":"CA","zip":"9","default":true},
			{"_id":"a-2","street":"2 Oat St","city":"C","state":"CA","zip":"9","default":false}
		]}`, string(body))
		writeJSON(w, http.StatusOK, []map[string]any{
			{"_id": "a-1", "street": "1 Rye Rd", "city": "C", "state": "CA", "zip": "9", "default": true},
			{"_id": "a-2", "street": "2 Oat St", "city": "C", "state": "CA", "zip": "9"},
		})
	}))

	saved, err := c.UpdateAddresses(context.Background(), shopper, []domain.Address{
		{Street: "1 Rye Rd", City: "C", State: "CA", Zip: "9", Default: true},
		{ID: "a-2", Street: "2 Oat St", City: "C", State: "CA", Zip: "9"},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "a-1", saved[0].ID)
}

func TestPlaceOrder(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/orders", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{
			"cart":[{"productId":"p1","quantity":2}],
			"address":{"street":"1 Rye Rd","city":"C","state":"CA","zip":"9"},
			"deliveryNotes":"back door"
		}`, string(body))
		_, _ = io.WriteString(w, `{"_id":"o-1","user":"u-1","items":[{"productId":"p1","name":"Croissant","quantity":2,"price":3.5}],
			"total":7,"status":"Pending","createdAt":"2026-10-01T09:00:00Z"}`)
	}))

	order, err := c.PlaceOrder(context.Background(), shopper,
		domain.Cart{{ProductID: "p1", Quantity: 2}},
		domain.ShippingAddress{Street: "1 Rye Rd", City: "C", State: "CA", Zip: "9"},
		"back door")
	require.NoError(t, err)
	assert.Equal(t, "o-1", order.ID)
	assert.Equal(t, "u-1", order.Customer.ID)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, "7", order.Total.String())
}

func TestAdminOrders(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/admin/orders":
			_, _ = io.WriteString(w, `[{"_id":"o-1","user":{"_id":"u-1","name":"Ann","email":"ann@bakery.test"},"status":"Pending","total":3}]`)
		case r.Method == http.MethodPut && r.URL.Path == "/api/admin/orders/o-1/status":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			writeJSON(w, http.StatusOK, map[string]any{"_id": "o-1", "status": body["status"], "total": 3})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	admin := &domain.User{ID: "admin", IsAdmin: true, Token: "t"}
	orders, err := c.AllOrders(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "Ann", orders[0].Customer.Name)

	updated, err := c.UpdateOrderStatus(context.Background(), admin, "o-1", domain.OrderStatusOutForDelivery)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusOutForDelivery, updated.Status)
}

func TestProductNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Product not found"})
	}))

	_, err := c.Product(context.Background(), "nope")
	assert.Equal(t, codes.NotFound, status.Code(err))
}
