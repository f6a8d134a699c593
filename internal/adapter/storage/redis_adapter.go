package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/bakery-storefront/internal/core/domain"
)

const (
	DefaultKeyPrefix = "storefront:"
	DefaultProfile   = "default"

	sessionKeySegment = "session:"
	productsKey       = "catalog:products"
)

// RedisAdapter keeps the signed-in session and the product list cache.
type RedisAdapter struct {
	client  *redis.Client
	prefix  string
	profile string
}

func NewRedisAdapter(client *redis.Client, prefix, profile string) *RedisAdapter {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if profile == "" {
		profile = DefaultProfile
	}
	return &RedisAdapter{client: client, prefix: prefix, profile: profile}
}

func (r *RedisAdapter) sessionKey() string {
	return r.prefix + sessionKeySegment + r.profile
}

func (r *RedisAdapter) productsKey() string {
	return r.prefix + productsKey
}

func (r *RedisAdapter) SaveSession(ctx context.Context, user *domain.User, ttl time.Duration) error {
	if user == nil {
		return r.ClearSession(ctx)
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, r.sessionKey(), data, ttl).Err()
}

func (r *RedisAdapter) LoadSession(ctx context.Context) (*domain.User, error) {
	data, err := r.client.Get(ctx, r.sessionKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &user, nil
}

func (r *RedisAdapter) ClearSession(ctx context.Context) error {
	return r.client.Del(ctx, r.sessionKey()).Err()
}

func (r *RedisAdapter) GetProducts(ctx context.Context) ([]domain.Product, error) {
	data, err := r.client.Get(ctx, r.productsKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

func (r *RedisAdapter) SetProducts(ctx context.Context, products []domain.Product, ttl time.Duration) error {
	if products == nil {
		products = []domain.Product{}
	}
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("encode products: %w", err)
	}
	return r.client.Set(ctx, r.productsKey(), data, ttl).Err()
}

func (r *RedisAdapter) InvalidateProducts(ctx context.Context) error {
	return r.client.Del(ctx, r.productsKey()).Err()
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
