package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/bakery-storefront/internal/core/domain"
)

// MemorySessionStore keeps the session for the life of the process.
type MemorySessionStore struct {
	mu      sync.Mutex
	user    *domain.User
	expires time.Time
	now     func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{now: time.Now}
}

func (m *MemorySessionStore) SaveSession(ctx context.Context, user *domain.User, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user == nil {
		m.user = nil
		return nil
	}
	cp := *user
	cp.Addresses = append([]domain.Address(nil), user.Addresses...)
	m.user = &cp
	m.expires = time.Time{}
	if ttl > 0 {
		m.expires = m.now().Add(ttl)
	}
	return nil
}

func (m *MemorySessionStore) LoadSession(ctx context.Context) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.user == nil {
		return nil, nil
	}
	if !m.expires.IsZero() && !m.now().Before(m.expires) {
		m.user = nil
		return nil, nil
	}
	cp := *m.user
	cp.Addresses = append([]domain.Address(nil), m.user.Addresses...)
	return &cp, nil
}

func (m *MemorySessionStore) ClearSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = nil
	return nil
}
