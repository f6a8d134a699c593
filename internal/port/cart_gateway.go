package port

import (
	"context"

	"github.com/rl1809/bakery-storefront/internal/core/domain"
)

// CartGateway is the authoritative store of a user's cart between sessions.
type CartGateway interface {
	// FetchCart returns the user's stored cart with product references expanded
	FetchCart(ctx context.Context, user *domain.User) ([]domain.RemoteCartItem, error)

	// PersistCart replaces the stored cart with the complete snapshot, never a diff
	PersistCart(ctx context.Context, user *domain.User, items domain.Cart) error
}
