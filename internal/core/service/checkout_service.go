package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/bakery-storefront/internal/core/domain"
	"github.com/rl1809/bakery-storefront/internal/port"
)

var (
	ErrEmptyCart = errors.New("cart is empty")
	ErrNoAddress = errors.New("no delivery address")
)

// ProductLookup resolves cart lines against the loaded catalog.
type ProductLookup interface {
	Lookup(id string) (domain.Product, bool)
}

type CartLine struct {
	domain.LineItem
	Product  domain.Product  `json:"product"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type CartSummary struct {
	Lines     []CartLine      `json:"lines"`
	ItemCount int             `json:"itemCount"`
	Total     decimal.Decimal `json:"total"`
}

type CheckoutService struct {
	store   *CartStore
	catalog ProductLookup
	orders  port.OrderAPI
	session CurrentUserProvider
	logger  *zap.Logger
}

func NewCheckoutService(store *CartStore, catalog ProductLookup, orders port.OrderAPI, session CurrentUserProvider, logger *zap.Logger) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutService{
		store:   store,
		catalog: catalog,
		orders:  orders,
		session: session,
		logger:  logger.Named("checkout"),
	}
}

// Summary prices the current cart.
func (s *CheckoutService) Summary() CartSummary {
	return Summarize(s.store.Items(), s.catalog)
}

// Summarize joins cart lines with their products. Lines whose product is not
// in the catalog are left out of the lines and the total but still count
// toward ItemCount.
func Summarize(cart domain.Cart, catalog ProductLookup) CartSummary {
	sum := CartSummary{
		Lines:     make([]CartLine, 0, len(cart)),
		ItemCount: cart.ItemCount(),
		Total:     decimal.Zero,
	}
	for _, it := range cart {
		p, ok := catalog.Lookup(it.ProductID)
		if !ok {
			continue
		}
		sub := p.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		sum.Lines = append(sum.Lines, CartLine{LineItem: it, Product: p, Subtotal: sub})
		sum.Total = sum.Total.Add(sub)
	}
	return sum
}

// DefaultAddress picks the address flagged default, falling back to the first.
func DefaultAddress(user *domain.User) (domain.Address, bool) {
	if user == nil || len(user.Addresses) == 0 {
		return domain.Address{}, false
	}
	for _, a := range user.Addresses {
		if a.Default {
			return a, true
		}
	}
	return user.Addresses[0], true
}

type PlaceOrderInput struct {
	// AddressID selects a saved address; empty means the default one.
	AddressID     string `json:"addressId"`
	DeliveryNotes string `json:"deliveryNotes"`
}

// PlaceOrder submits the current cart and empties it once the backend has
// accepted the order.
func (s *CheckoutService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*domain.Order, error) {
	user := s.session.CurrentUser()
	if user == nil {
		return nil, ErrNotAuthenticated
	}

	cart := s.store.Items()
	if len(cart) == 0 {
		return nil, ErrEmptyCart
	}

	var (
		addr domain.Address
		ok   bool
	)
	if in.AddressID == "" {
		addr, ok = DefaultAddress(user)
	} else {
		addr, ok = user.AddressByID(in.AddressID)
	}
	if !ok {
		return nil, ErrNoAddress
	}

	order, err := s.orders.PlaceOrder(ctx, user, cart, domain.ShippingAddressFrom(addr), in.DeliveryNotes)
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	s.store.Dispatch(domain.ClearCart())
	s.logger.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("user_id", user.ID),
		zap.Int("items", cart.ItemCount()),
	)
	return order, nil
}
