package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rl1809/bakery-storefront/internal/core/domain"
	"github.com/rl1809/bakery-storefront/internal/port"
)

var (
	_ port.AuthAPI     = (*Client)(nil)
	_ port.CatalogAPI  = (*Client)(nil)
	_ port.CartGateway = (*Client)(nil)
	_ port.AddressAPI  = (*Client)(nil)
	_ port.OrderAPI    = (*Client)(nil)
)

func tokenOf(user *domain.User) string {
	if user == nil {
		return ""
	}
	return user.Token
}

func (c *Client) Login(ctx context.Context, email, password string) (*domain.User, error) {
	var user domain.User
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   map[string]string{"email": email, "password": password},
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Signup(ctx context.Context, name, email, password string) (*domain.User, error) {
	var user domain.User
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/register",
		body:   map[string]string{"name": name, "email": email, "password": password},
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := c.do(ctx, request{
		method:    http.MethodGet,
		path:      "/products",
		retryable: true,
	}, &products)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

func (c *Client) Product(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := c.do(ctx, request{
		method:    http.MethodGet,
		path:      "/products/" + url.PathEscape(id),
		retryable: true,
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FetchCart reads the stored cart. The backend expands each productId into
// the full product document.
func (c *Client) FetchCart(ctx context.Context, user *domain.User) ([]domain.RemoteCartItem, error) {
	var items []domain.RemoteCartItem
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/user/cart",
		token:  tokenOf(user),
	}, &items)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// PersistCart replaces the stored cart. Cart writes are never retried here;
// the next local change carries the full state again.
func (c *Client) PersistCart(ctx context.Context, user *domain.User, items domain.Cart) error {
	return c.do(ctx, request{
		method: http.MethodPut,
		path:   "/user/cart",
		token:  tokenOf(user),
		body: struct {
			Cart domain.Cart `json:"cart"`
		}{Cart: items.Clone()},
	}, nil)
}

func (c *Client) UpdateAddresses(ctx context.Context, user *domain.User, addresses []domain.Address) ([]domain.Address, error) {
	if addresses == nil {
		addresses = []domain.Address{}
	}
	var saved []domain.Address
	err := c.do(ctx, request{
		method: http.MethodPut,
		path:   "/user/addresses",
		token:  tokenOf(user),
		body: struct {
			Addresses []domain.Address `json:"addresses"`
		}{Addresses: addresses},
	}, &saved)
	if err != nil {
		return nil, err
	}
	return saved, nil
}

type placeOrderRequest struct {
	Cart          domain.Cart            `json:"cart"`
	Address       domain.ShippingAddress `json:"address"`
	DeliveryNotes string                 `json:"deliveryNotes"`
}

func (c *Client) PlaceOrder(ctx context.Context, user *domain.User, items domain.Cart, address domain.ShippingAddress, notes string) (*domain.Order, error) {
	var order domain.Order
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/orders",
		token:  tokenOf(user),
		body: placeOrderRequest{
			Cart:          items.Clone(),
			Address:       address,
			DeliveryNotes: notes,
		},
	}, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) OrderHistory(ctx context.Context, user *domain.User) ([]domain.Order, error) {
	return c.listOrders(ctx, user, "/orders/myorders")
}

func (c *Client) AllOrders(ctx context.Context, user *domain.User) ([]domain.Order, error) {
	return c.listOrders(ctx, user, "/admin/orders")
}

func (c *Client) listOrders(ctx context.Context, user *domain.User, path string) ([]domain.Order, error) {
	var orders []domain.Order
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   path,
		token:  tokenOf(user),
	}, &orders)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, user *domain.User, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	var order domain.Order
	err := c.do(ctx, request{
		method: http.MethodPut,
		path:   "/admin/orders/" + url.PathEscape(orderID) + "/status",
		token:  tokenOf(user),
		body:   map[string]domain.OrderStatus{"status": status},
	}, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}
