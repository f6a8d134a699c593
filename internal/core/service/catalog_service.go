package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/bakery-storefront/internal/core/domain"
	"github.com/rl1809/bakery-storefront/internal/port"
)

var ErrProductNotFound = errors.New("product not found")

// CategoryAll disables category filtering in Filter.
const CategoryAll = "All"

// CatalogService holds the product list for the session. The list is read
// once and then served from memory; the optional cache shares it between
// process runs.
type CatalogService struct {
	api      port.CatalogAPI
	cache    port.ProductCache
	cacheTTL time.Duration
	logger   *zap.Logger

	mu       sync.RWMutex
	products []domain.Product
	byID     map[string]domain.Product
	loaded   bool
}

func NewCatalogService(api port.CatalogAPI, cache port.ProductCache, cacheTTL time.Duration, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		api:      api,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger.Named("catalog"),
		byID:     make(map[string]domain.Product),
	}
}

// Load fills the catalog, preferring the cache. Cache failures only cost a
// round trip to the API.
func (s *CatalogService) Load(ctx context.Context) error {
	if s.Loaded() {
		return nil
	}
	if s.cache != nil {
		products, err := s.cache.GetProducts(ctx)
		if err != nil {
			s.logger.Warn("product cache read failed", zap.Error(err))
		} else if products != nil {
			s.set(products)
			s.logger.Debug("catalog loaded from cache", zap.Int("products", len(products)))
			return nil
		}
	}
	return s.Refresh(ctx)
}

// Refresh reloads the catalog from the API and rewrites the cache.
func (s *CatalogService) Refresh(ctx context.Context) error {
	products, err := s.api.Products(ctx)
	if err != nil {
		return fmt.Errorf("fetch products: %w", err)
	}
	s.set(products)

	if s.cache != nil {
		if err := s.cache.SetProducts(ctx, products, s.cacheTTL); err != nil {
			s.logger.Warn("product cache write failed", zap.Error(err))
		}
	}
	s.logger.Debug("catalog loaded from api", zap.Int("products", len(products)))
	return nil
}

func (s *CatalogService) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *CatalogService) Products() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Product(nil), s.products...)
}

// Product returns a loaded product or asks the API for it.
func (s *CatalogService) Product(ctx context.Context, id string) (*domain.Product, error) {
	if p, ok := s.Lookup(id); ok {
		return &p, nil
	}
	p, err := s.api.Product(ctx, id)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
		return nil, fmt.Errorf("fetch product %s: %w", id, err)
	}
	return p, nil
}

// Lookup only consults the loaded catalog.
func (s *CatalogService) Lookup(id string) (domain.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	return p, ok
}

// Categories returns the distinct categories in first-seen order, led by
// "All".
func (s *CatalogService) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var cats []string
	for _, p := range s.products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		cats = append(cats, p.Category)
	}
	return append([]string{CategoryAll}, cats...)
}

// Filter narrows the catalog by category and a case-insensitive search over
// name and description.
func (s *CatalogService) Filter(category, search string) []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FilterProducts(s.products, category, search)
}

func FilterProducts(products []domain.Product, category, search string) []domain.Product {
	search = strings.ToLower(strings.TrimSpace(search))
	all := category == "" || category == CategoryAll

	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if !all && p.Category != category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (s *CatalogService) set(products []domain.Product) {
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	s.mu.Lock()
	s.products = append([]domain.Product(nil), products...)
	s.byID = byID
	s.loaded = true
	s.mu.Unlock()
}
