package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rl1809/bakery-storefront/internal/core/domain"
	"github.com/rl1809/bakery-storefront/internal/port"
)

var ErrForbidden = errors.New("admin access required")

// StatusFilterAll disables status filtering in AllOrders.
const StatusFilterAll = "All"

type OrderService struct {
	api     port.OrderAPI
	session CurrentUserProvider
	logger  *zap.Logger
}

func NewOrderService(api port.OrderAPI, session CurrentUserProvider, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		api:     api,
		session: session,
		logger:  logger.Named("orders"),
	}
}

// History returns the signed-in user's orders as the backend orders them.
func (s *OrderService) History(ctx context.Context) ([]domain.Order, error) {
	user := s.session.CurrentUser()
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	orders, err := s.api.OrderHistory(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("fetch order history: %w", err)
	}
	return orders, nil
}

// AllOrders lists every order for an admin, optionally narrowed to one status.
// An empty filter or "All" returns everything.
func (s *OrderService) AllOrders(ctx context.Context, filter string) ([]domain.Order, error) {
	user, err := s.admin()
	if err != nil {
		return nil, err
	}

	var status domain.OrderStatus
	if filter != "" && !strings.EqualFold(filter, StatusFilterAll) {
		status, err = domain.ParseOrderStatus(filter)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	orders, err := s.api.AllOrders(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("fetch all orders: %w", err)
	}
	if status == "" {
		return orders, nil
	}
	return FilterOrders(orders, status), nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, orderID, status string) (*domain.Order, error) {
	user, err := s.admin()
	if err != nil {
		return nil, err
	}
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	st, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	order, err := s.api.UpdateOrderStatus(ctx, user, orderID, st)
	if err != nil {
		return nil, fmt.Errorf("update order %s: %w", orderID, err)
	}
	s.logger.Info("order status updated", zap.String("order_id", orderID), zap.String("status", string(st)))
	return order, nil
}

func (s *OrderService) admin() (*domain.User, error) {
	user := s.session.CurrentUser()
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	if !user.IsAdmin {
		return nil, ErrForbidden
	}
	return user, nil
}

func FilterOrders(orders []domain.Order, status domain.OrderStatus) []domain.Order {
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}
