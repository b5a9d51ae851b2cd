package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/rentalkit-backend/pkg/logger"
	"github.com/angelmondragon/rentalkit-backend/pkg/metrics"
	"github.com/angelmondragon/rentalkit-backend/pkg/redis"
	"golang.org/x/sync/singleflight"
)

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CatalogKey(kind string, parts ...string) string
}

// CachedAccessor is a cache-aside decorator over another Accessor. Concurrent
// misses for the same key share one upstream call. Errors are never cached;
// "no kit template" is.
type CachedAccessor struct {
	inner   Accessor
	cache   cacheStore
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.CartMetrics
	logg    *logger.Logger
}

// NewCachedAccessor wraps inner with a redis-backed cache.
func NewCachedAccessor(inner Accessor, cache cacheStore, ttl time.Duration, m *metrics.CartMetrics, logg *logger.Logger) (*CachedAccessor, error) {
	if inner == nil {
		return nil, fmt.Errorf("inner accessor required")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache store required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &CachedAccessor{inner: inner, cache: cache, ttl: ttl, metrics: m, logg: logg}, nil
}

func (c *CachedAccessor) GetProduct(ctx context.Context, id string) (*Product, error) {
	return cached(ctx, c, "product", c.cache.CatalogKey("product", id), func(ctx context.Context) (*Product, error) {
		return c.inner.GetProduct(ctx, id)
	})
}

func (c *CachedAccessor) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	return cached(ctx, c, "product_slug", c.cache.CatalogKey("product", "slug", slug), func(ctx context.Context) (*Product, error) {
		return c.inner.GetProductBySlug(ctx, slug)
	})
}

func (c *CachedAccessor) ListProductsByCategory(ctx context.Context, categoryID string) ([]Product, error) {
	return cached(ctx, c, "category_products", c.cache.CatalogKey("category", categoryID, "products"), func(ctx context.Context) ([]Product, error) {
		return c.inner.ListProductsByCategory(ctx, categoryID)
	})
}

func (c *CachedAccessor) FindKitTemplateByMainProduct(ctx context.Context, productID string) (*KitTemplate, error) {
	return cached(ctx, c, "kit_template", c.cache.CatalogKey("kit_template", productID), func(ctx context.Context) (*KitTemplate, error) {
		return c.inner.FindKitTemplateByMainProduct(ctx, productID)
	})
}

func (c *CachedAccessor) ListKitItems(ctx context.Context, templateID string) ([]KitItem, error) {
	return cached(ctx, c, "kit_items", c.cache.CatalogKey("kit_items", templateID), func(ctx context.Context) ([]KitItem, error) {
		return c.inner.ListKitItems(ctx, templateID)
	})
}

func cached[T any](ctx context.Context, c *CachedAccessor, kind, key string, load func(context.Context) (T, error)) (T, error) {
	if raw, err := c.cache.Get(ctx, key); err == nil {
		var value T
		if jsonErr := json.Unmarshal([]byte(raw), &value); jsonErr == nil {
			c.metrics.IncCacheLookup(kind, true)
			return value, nil
		}
		c.logg.Warn(c.logg.WithField(ctx, "cache_key", key), "discarding undecodable catalog cache entry")
	} else if !redis.IsNil(err) {
		c.logg.Warn(c.logg.WithFields(ctx, map[string]any{"cache_key": key, "error": err.Error()}), "catalog cache read failed")
	}
	c.metrics.IncCacheLookup(kind, false)

	v, err, _ := c.group.Do(key, func() (any, error) {
		value, err := load(ctx)
		if err != nil {
			return value, err
		}
		if payload, jsonErr := json.Marshal(value); jsonErr == nil {
			if setErr := c.cache.Set(ctx, key, payload, c.ttl); setErr != nil {
				c.logg.Warn(c.logg.WithFields(ctx, map[string]any{"cache_key": key, "error": setErr.Error()}), "catalog cache write failed")
			}
		}
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
