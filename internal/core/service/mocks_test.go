package service

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/bakery-storefront/internal/core/domain"
)

var errNotFound = status.Error(codes.NotFound, "not found")

// Mock CartGateway
type mockGateway struct {
	mu         sync.Mutex
	remote     map[string][]domain.RemoteCartItem
	fetchErr   error
	persistErr error
	fetchCalls int
	pushes     []domain.Cart

	// when blockUser is set, FetchCart for that user reports on started and
	// waits for release
	blockUser string
	started   chan string
	release   chan struct{}
}

func newMockGateway() *mockGateway {
	return &mockGateway{remote: make(map[string][]domain.RemoteCartItem)}
}

func (m *mockGateway) FetchCart(ctx context.Context, user *domain.User) ([]domain.RemoteCartItem, error) {
	m.mu.Lock()
	m.fetchCalls++
	block := m.blockUser != "" && m.blockUser == user.ID
	started, release := m.started, m.release
	m.mu.Unlock()

	if block {
		started <- user.ID
		<-release
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return append([]domain.RemoteCartItem(nil), m.remote[user.ID]...), nil
}

func (m *mockGateway) PersistCart(ctx context.Context, user *domain.User, items domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushes = append(m.pushes, items.Clone())
	if m.persistErr != nil {
		return m.persistErr
	}
	m.remote[user.ID] = remoteFromCart(items)
	return nil
}

func (m *mockGateway) setFetchErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchErr = err
}

func (m *mockGateway) setPersistErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistErr = err
}

func (m *mockGateway) calls() (fetches int, pushes []domain.Cart) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchCalls, append([]domain.Cart(nil), m.pushes...)
}

func remoteFromCart(items domain.Cart) []domain.RemoteCartItem {
	out := make([]domain.RemoteCartItem, 0, len(items))
	for _, it := range items {
		out = append(out, domain.RemoteCartItem{
			Product:  domain.Product{ID: it.ProductID},
			Quantity: it.Quantity,
		})
	}
	return out
}

type recordingObserver struct {
	mu     sync.Mutex
	events []SyncEvent
}

func (o *recordingObserver) ObserveSync(ev SyncEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
}

func (o *recordingObserver) all() []SyncEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]SyncEvent(nil), o.events...)
}

// Mock AuthAPI
type mockAuth struct {
	users map[string]*domain.User
	err   error
}

func (m *mockAuth) Login(ctx context.Context, email, password string) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.users[email], nil
}

func (m *mockAuth) Signup(ctx context.Context, name, email, password string) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u := &domain.User{ID: "new-" + email, Name: name, Email: email, Token: "tok"}
	return u, nil
}

// Mock AddressAPI
type mockAddressAPI struct {
	sent []domain.Address
	err  error
}

func (m *mockAddressAPI) UpdateAddresses(ctx context.Context, user *domain.User, addresses []domain.Address) ([]domain.Address, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.sent = append([]domain.Address(nil), addresses...)
	saved := make([]domain.Address, len(addresses))
	for i, a := range addresses {
		if a.ID == "" {
			a.ID = "saved-" + a.Street
		}
		saved[i] = a
	}
	return saved, nil
}

// Mock SessionStore
type mockSessionStore struct {
	mu      sync.Mutex
	user    *domain.User
	ttl     time.Duration
	cleared int
}

func (m *mockSessionStore) SaveSession(ctx context.Context, user *domain.User, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	m.user = &cp
	m.ttl = ttl
	return nil
}

func (m *mockSessionStore) LoadSession(ctx context.Context) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil, nil
	}
	cp := *m.user
	return &cp, nil
}

func (m *mockSessionStore) ClearSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = nil
	m.cleared++
	return nil
}

// Mock CatalogAPI
type mockCatalogAPI struct {
	products  []domain.Product
	err       error
	listCalls int
}

func (m *mockCatalogAPI) Products(ctx context.Context) ([]domain.Product, error) {
	m.listCalls++
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.Product(nil), m.products...), nil
}

func (m *mockCatalogAPI) Product(ctx context.Context, id string) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.products {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, errNotFound
}

// Mock ProductCache
type mockProductCache struct {
	products []domain.Product
	err      error
	sets     int
}

func (m *mockProductCache) GetProducts(ctx context.Context) ([]domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.products, nil
}

func (m *mockProductCache) SetProducts(ctx context.Context, products []domain.Product, ttl time.Duration) error {
	m.sets++
	m.products = append([]domain.Product(nil), products...)
	return nil
}

// Mock OrderAPI
type mockOrderAPI struct {
	placed      []domain.Cart
	lastAddress domain.ShippingAddress
	lastNotes   string
	orders      []domain.Order
	updated     map[string]domain.OrderStatus
	err         error
}

func (m *mockOrderAPI) PlaceOrder(ctx context.Context, user *domain.User, items domain.Cart, address domain.ShippingAddress, notes string) (*domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.placed = append(m.placed, items.Clone())
	m.lastAddress = address
	m.lastNotes = notes
	return &domain.Order{ID: "order-1", Customer: domain.OrderCustomer{ID: user.ID}, Status: domain.OrderStatusPending}, nil
}

func (m *mockOrderAPI) OrderHistory(ctx context.Context, user *domain.User) ([]domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.orders, nil
}

func (m *mockOrderAPI) AllOrders(ctx context.Context, user *domain.User) ([]domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.orders, nil
}

func (m *mockOrderAPI) UpdateOrderStatus(ctx context.Context, user *domain.User, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.updated == nil {
		m.updated = make(map[string]domain.OrderStatus)
	}
	m.updated[orderID] = status
	return &domain.Order{ID: orderID, Status: status}, nil
}

type staticUser struct {
	user *domain.User
}

func (s staticUser) CurrentUser() *domain.User {
	return s.user
}
