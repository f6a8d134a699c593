package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/bakery-storefront/internal/core/domain"
	"github.com/rl1809/bakery-storefront/internal/port"
)

var (
	ErrNotAuthenticated = errors.New("not signed in")
	ErrInvalidInput     = errors.New("invalid input")
)

// IdentityListener is called after every identity transition with the new
// user, or nil on logout.
type IdentityListener func(user *domain.User)

// CurrentUserProvider is the read side of the session used by other services.
type CurrentUserProvider interface {
	CurrentUser() *domain.User
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Registration struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type SessionService struct {
	auth      port.AuthAPI
	addresses port.AddressAPI
	store     port.SessionStore
	validate  *validator.Validate
	logger    *zap.Logger
	now       func() time.Time

	mu        sync.RWMutex
	user      *domain.User
	listeners []IdentityListener
}

func NewSessionService(auth port.AuthAPI, addresses port.AddressAPI, store port.SessionStore, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		auth:      auth,
		addresses: addresses,
		store:     store,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger.Named("session"),
		now:       time.Now,
	}
}

func (s *SessionService) OnIdentityChange(l IdentityListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *SessionService) Login(ctx context.Context, in Credentials) (*domain.User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	user, err := s.auth.Login(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	s.signIn(ctx, user)
	return cloneUser(user), nil
}

func (s *SessionService) Signup(ctx context.Context, in Registration) (*domain.User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	user, err := s.auth.Signup(ctx, in.Name, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	s.signIn(ctx, user)
	return cloneUser(user), nil
}

// Restore signs the persisted user back in. Sessions whose token has expired
// are dropped instead.
func (s *SessionService) Restore(ctx context.Context) (*domain.User, error) {
	user, err := s.store.LoadSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	if exp, ok := tokenExpiry(user.Token); ok && !s.now().Before(exp) {
		s.logger.Info("stored session expired", zap.String("user_id", user.ID), zap.Time("expired_at", exp))
		if err := s.store.ClearSession(ctx); err != nil {
			s.logger.Warn("failed to clear expired session", zap.Error(err))
		}
		return nil, nil
	}

	s.setUser(user)
	s.notify(user)
	return cloneUser(user), nil
}

func (s *SessionService) Logout(ctx context.Context) {
	s.mu.Lock()
	prev := s.user
	s.user = nil
	s.mu.Unlock()

	if err := s.store.ClearSession(ctx); err != nil {
		s.logger.Warn("failed to clear session", zap.Error(err))
	}
	if prev != nil {
		s.notify(nil)
	}
}

// UpdateAddresses validates and saves the full address book. Draft ids are
// stripped so the backend assigns real ones, and only the first address
// flagged default keeps the flag.
func (s *SessionService) UpdateAddresses(ctx context.Context, addresses []domain.Address) (*domain.User, error) {
	user := s.CurrentUser()
	if user == nil {
		return nil, ErrNotAuthenticated
	}

	outgoing := make([]domain.Address, 0, len(addresses))
	seenDefault := false
	for i, a := range addresses {
		if err := s.validate.Struct(a); err != nil {
			return nil, fmt.Errorf("%w: address %d: %v", ErrInvalidInput, i+1, err)
		}
		if a.IsDraft() {
			a.ID = ""
		}
		if a.Default {
			if seenDefault {
				a.Default = false
			}
			seenDefault = true
		}
		outgoing = append(outgoing, a)
	}

	saved, err := s.addresses.UpdateAddresses(ctx, user, outgoing)
	if err != nil {
		return nil, err
	}

	user.Addresses = saved
	s.mu.Lock()
	if s.user != nil && s.user.ID == user.ID {
		s.user = user
	}
	s.mu.Unlock()
	s.persist(ctx, user)
	return cloneUser(user), nil
}

func (s *SessionService) CurrentUser() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneUser(s.user)
}

func (s *SessionService) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.Token != ""
}

func (s *SessionService) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.IsAdmin
}

// NewDraftAddress returns an empty address with a local placeholder id.
func NewDraftAddress() domain.Address {
	return domain.Address{ID: domain.DraftAddressPrefix + uuid.NewString()}
}

func (s *SessionService) signIn(ctx context.Context, user *domain.User) {
	s.setUser(user)
	s.persist(ctx, user)
	s.notify(user)
}

func (s *SessionService) setUser(user *domain.User) {
	s.mu.Lock()
	s.user = cloneUser(user)
	s.mu.Unlock()
}

func (s *SessionService) persist(ctx context.Context, user *domain.User) {
	var ttl time.Duration
	if exp, ok := tokenExpiry(user.Token); ok {
		ttl = exp.Sub(s.now())
	}
	if err := s.store.SaveSession(ctx, user, ttl); err != nil {
		s.logger.Warn("failed to persist session", zap.String("user_id", user.ID), zap.Error(err))
	}
}

func (s *SessionService) notify(user *domain.User) {
	s.mu.RLock()
	listeners := make([]IdentityListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, l := range listeners {
		l(cloneUser(user))
	}
}

// tokenExpiry reads the exp claim without verifying the signature; the
// backend is the one that verifies tokens.
func tokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.Addresses = append([]domain.Address(nil), u.Addresses...)
	return &cp
}
