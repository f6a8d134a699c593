package cli

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/bakery-storefront/internal/config"
	"github.com/rl1809/bakery-storefront/internal/core/domain"
)

// fakeShop stands in for the storefront backend and the session store. Its
// state outlives a single command, the way the real backend does.
type fakeShop struct {
	mu sync.Mutex

	users    map[string]*domain.User // by email
	products []domain.Product
	carts    map[string]domain.Cart // by user id
	orders   []domain.Order
	session  *domain.User

	fetchErr   error
	persistErr error
	persists   int
}

func newFakeShop() *fakeShop {
	return &fakeShop{
		users: map[string]*domain.User{
			"alice@bakery.test": {
				ID:    "u-alice",
				Name:  "Alice",
				Email: "alice@bakery.test",
				Token: "tok-alice",
				Addresses: []domain.Address{
					{ID: "a-1", Street: "1 Rye Rd", City: "Crumbton", State: "CA", Zip: "90000", Default: true},
				},
			},
		},
		products: []domain.Product{
			{ID: "p1", Name: "Croissant", Category: "Pastries"},
			{ID: "p2", Name: "Sourdough", Category: "Breads"},
		},
		carts: map[string]domain.Cart{},
	}
}

func (s *fakeShop) factory(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Backend, error) {
	return &Backend{
		Auth:      s,
		Catalog:   s,
		Addresses: s,
		Orders:    s,
		Gateway:   s,
		Sessions:  s,
	}, nil
}

func (s *fakeShop) signIn(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *s.users[email]
	s.session = &u
}

func (s *fakeShop) cart(userID string) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.carts[userID].Clone()
}

func (s *fakeShop) Login(ctx context.Context, email, password string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok || password != "secret" {
		return nil, status.Error(codes.Unauthenticated, "Invalid email or password")
	}
	cp := *u
	return &cp, nil
}

func (s *fakeShop) Signup(ctx context.Context, name, email, password string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[email]; ok {
		return nil, status.Error(codes.InvalidArgument, "User already exists")
	}
	u := &domain.User{ID: "u-" + name, Name: name, Email: email, Token: "tok-" + name}
	s.users[email] = u
	cp := *u
	return &cp, nil
}

func (s *fakeShop) Products(ctx context.Context) ([]domain.Product, error) {
	return append([]domain.Product(nil), s.products...), nil
}

func (s *fakeShop) Product(ctx context.Context, id string) (*domain.Product, error) {
	for _, p := range s.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, status.Error(codes.NotFound, "Product not found")
}

func (s *fakeShop) UpdateAddresses(ctx context.Context, user *domain.User, addresses []domain.Address) ([]domain.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := make([]domain.Address, len(addresses))
	for i, a := range addresses {
		if a.ID == "" {
			a.ID = "a-" + a.Zip
		}
		saved[i] = a
	}
	s.users[user.Email].Addresses = saved
	return saved, nil
}

func (s *fakeShop) PlaceOrder(ctx context.Context, user *domain.User, items domain.Cart, address domain.ShippingAddress, notes string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order := domain.Order{
		ID:            "o-1",
		Customer:      domain.OrderCustomer{ID: user.ID},
		Address:       address,
		DeliveryNotes: notes,
		Status:        domain.OrderStatusPending,
		CreatedAt:     time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
	}
	for _, it := range items {
		order.Items = append(order.Items, domain.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	s.orders = append(s.orders, order)
	return &order, nil
}

func (s *fakeShop) OrderHistory(ctx context.Context, user *domain.User) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Order(nil), s.orders...), nil
}

func (s *fakeShop) AllOrders(ctx context.Context, user *domain.User) ([]domain.Order, error) {
	return s.OrderHistory(ctx, user)
}

func (s *fakeShop) UpdateOrderStatus(ctx context.Context, user *domain.User, orderID string, st domain.OrderStatus) (*domain.Order, error) {
	return nil, errors.New("not reachable in tests")
}

func (s *fakeShop) FetchCart(ctx context.Context, user *domain.User) ([]domain.RemoteCartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	var out []domain.RemoteCartItem
	for _, it := range s.carts[user.ID] {
		out = append(out, domain.RemoteCartItem{Product: domain.Product{ID: it.ProductID}, Quantity: it.Quantity})
	}
	return out, nil
}

func (s *fakeShop) PersistCart(ctx context.Context, user *domain.User, items domain.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persists++
	if s.persistErr != nil {
		return s.persistErr
	}
	s.carts[user.ID] = items.Clone()
	return nil
}

func (s *fakeShop) SaveSession(ctx context.Context, user *domain.User, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *user
	s.session = &cp
	return nil
}

func (s *fakeShop) LoadSession(ctx context.Context) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, nil
	}
	cp := *s.session
	return &cp, nil
}

func (s *fakeShop) ClearSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}
