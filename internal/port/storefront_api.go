package port

import (
	"context"

	"github.com/rl1809/bakery-storefront/internal/core/domain"
)

type AuthAPI interface {
	// Login exchanges credentials for a user carrying a bearer token
	Login(ctx context.Context, email, password string) (*domain.User, error)

	// Signup registers a new account and signs it in
	Signup(ctx context.Context, name, email, password string) (*domain.User, error)
}

type CatalogAPI interface {
	Products(ctx context.Context) ([]domain.Product, error)
	Product(ctx context.Context, id string) (*domain.Product, error)
}

type AddressAPI interface {
	// UpdateAddresses replaces the user's address book and returns the saved list
	UpdateAddresses(ctx context.Context, user *domain.User, addresses []domain.Address) ([]domain.Address, error)
}

type OrderAPI interface {
	PlaceOrder(ctx context.Context, user *domain.User, items domain.Cart, address domain.ShippingAddress, notes string) (*domain.Order, error)
	OrderHistory(ctx context.Context, user *domain.User) ([]domain.Order, error)

	// AllOrders and UpdateOrderStatus require an admin token
	AllOrders(ctx context.Context, user *domain.User) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, user *domain.User, orderID string, status domain.OrderStatus) (*domain.Order, error)
}
