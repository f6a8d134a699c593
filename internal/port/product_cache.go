package port

import (
	"context"
	"time"

	"github.com/rl1809/bakery-storefront/internal/core/domain"
)

type ProductCache interface {
	// GetProducts returns nil, nil on a cache miss
	GetProducts(ctx context.Context) ([]domain.Product, error)

	SetProducts(ctx context.Context, products []domain.Product, ttl time.Duration) error
}
