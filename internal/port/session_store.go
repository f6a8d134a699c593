package port

import (
	"context"
	"time"

	"github.com/rl1809/bakery-storefront/internal/core/domain"
)

// SessionStore persists the signed-in user between process runs.
type SessionStore interface {
	// SaveSession stores the user; ttl <= 0 keeps it until cleared
	SaveSession(ctx context.Context, user *domain.User, ttl time.Duration) error

	// LoadSession returns nil, nil when nothing is stored
	LoadSession(ctx context.Context) (*domain.User, error)

	ClearSession(ctx context.Context) error
}
