package clients

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront-support/pkg/logger"

	"go.uber.org/zap"
)

// Cache is a JSON value store with expiry. Found is false on a miss.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) (found bool, err error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// CachedOrderLookup memoizes successful order lookups for a short TTL.
type CachedOrderLookup struct {
	next  OrderLookup
	cache Cache
	ttl   time.Duration
}

func NewCachedOrderLookup(next OrderLookup, cache Cache, ttl time.Duration) *CachedOrderLookup {
	return &CachedOrderLookup{next: next, cache: cache, ttl: ttl}
}

func (c *CachedOrderLookup) GetOrder(ctx context.Context, customerID, orderNumber string) (Order, error) {
	key := fmt.Sprintf("lookup:order:%s:%s", customerID, orderNumber)
	var cached Order
	if found, err := c.cache.GetJSON(ctx, key, &cached); err == nil && found {
		return cached, nil
	} else if err != nil {
		logger.GetGlobalLogger().WarnCtx(ctx, "order cache read failed", zap.Error(err))
	}

	order, err := c.next.GetOrder(ctx, customerID, orderNumber)
	if err != nil {
		return Order{}, err
	}
	if err := c.cache.SetJSON(ctx, key, order, c.ttl); err != nil {
		logger.GetGlobalLogger().WarnCtx(ctx, "order cache write failed", zap.Error(err))
	}
	return order, nil
}

// CachedCatalog memoizes non-empty search results keyed by the normalized query.
type CachedCatalog struct {
	next  CatalogSearch
	cache Cache
	ttl   time.Duration
}

func NewCachedCatalog(next CatalogSearch, cache Cache, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{next: next, cache: cache, ttl: ttl}
}

func (c *CachedCatalog) Search(ctx context.Context, query string, limit int) ([]Product, error) {
	key := fmt.Sprintf("lookup:catalog:%d:%s", limit, strings.ToLower(strings.TrimSpace(query)))
	var cached []Product
	if found, err := c.cache.GetJSON(ctx, key, &cached); err == nil && found {
		return cached, nil
	} else if err != nil {
		logger.GetGlobalLogger().WarnCtx(ctx, "catalog cache read failed", zap.Error(err))
	}

	products, err := c.next.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if len(products) > 0 {
		if err := c.cache.SetJSON(ctx, key, products, c.ttl); err != nil {
			logger.GetGlobalLogger().WarnCtx(ctx, "catalog cache write failed", zap.Error(err))
		}
	}
	return products, nil
}
