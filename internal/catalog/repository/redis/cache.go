package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/catalog/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const (
	productKeyPrefix = "catalog:product:"
	productSlugKey   = "catalog:product:slug:"
	treeKey          = "catalog:categories:tree"
)

// CatalogCache caches hot catalog reads in Redis. All methods degrade
// gracefully: callers treat any error like a miss.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCatalogCache creates a new Redis-backed catalog cache.
func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		client: client,
		ttl:    ttl,
	}
}

// GetProduct retrieves a cached product by ID.
func (c *CatalogCache) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return c.getProduct(ctx, productKeyPrefix+id.String())
}

// GetProductBySlug retrieves a cached product via its slug pointer key.
func (c *CatalogCache) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	id, err := c.client.Get(ctx, productSlugKey+slug).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("redis get product slug: %w", err)
	}
	return c.getProduct(ctx, productKeyPrefix+id)
}

func (c *CatalogCache) getProduct(ctx context.Context, key string) (*domain.Product, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("redis get product: %w", err)
	}

	var p domain.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal cached product: %w", err)
	}

	return &p, nil
}

// SetProduct caches a product under its ID with a slug pointer key.
func (c *CatalogCache) SetProduct(ctx context.Context, p *domain.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal product for cache: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, productKeyPrefix+p.ID.String(), data, c.ttl)
	pipe.Set(ctx, productSlugKey+p.Slug, p.ID.String(), c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set product: %w", err)
	}

	return nil
}

// InvalidateProduct drops a product's cache entries.
func (c *CatalogCache) InvalidateProduct(ctx context.Context, id uuid.UUID, slug string) error {
	if err := c.client.Del(ctx, productKeyPrefix+id.String(), productSlugKey+slug).Err(); err != nil {
		return fmt.Errorf("redis del product: %w", err)
	}
	return nil
}

// GetTree retrieves the cached category tree.
func (c *CatalogCache) GetTree(ctx context.Context) ([]*domain.Category, error) {
	data, err := c.client.Get(ctx, treeKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("redis get category tree: %w", err)
	}

	var tree []*domain.Category
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("unmarshal cached category tree: %w", err)
	}

	return tree, nil
}

// SetTree caches the category tree.
func (c *CatalogCache) SetTree(ctx context.Context, tree []*domain.Category) error {
	data, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("marshal category tree for cache: %w", err)
	}

	if err := c.client.Set(ctx, treeKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set category tree: %w", err)
	}

	return nil
}

// InvalidateTree drops the cached category tree.
func (c *CatalogCache) InvalidateTree(ctx context.Context) error {
	if err := c.client.Del(ctx, treeKey).Err(); err != nil {
		return fmt.Errorf("redis del category tree: %w", err)
	}
	return nil
}
