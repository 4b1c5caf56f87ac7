package cache

import (
	"time"

	"github.com/ReneKroon/ttlcache"
	"go.uber.org/zap"

	"github.com/bivex/storekit-manager/internal/domain/entity"
)

const lastQueryKey = "catalog:last"

// CatalogCache keeps products returned by the platform for a bounded time so
// payments can be requested by identifier. Safe for concurrent use.
type CatalogCache struct {
	cache  *ttlcache.Cache
	logger *zap.Logger
}

// NewCatalogCache creates a catalog cache whose entries expire after ttl
func NewCatalogCache(ttl time.Duration, logger *zap.Logger) *CatalogCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := ttlcache.NewCache()
	c.SetTTL(ttl)
	return &CatalogCache{
		cache:  c,
		logger: logger,
	}
}

// Store caches the products and remembers them as the latest query result
func (c *CatalogCache) Store(products []*entity.Product) {
	list := make([]*entity.Product, 0, len(products))
	for _, p := range products {
		if p == nil {
			continue
		}
		c.cache.Set(productKey(p.Identifier), p)
		list = append(list, p)
	}
	c.cache.Set(lastQueryKey, list)

	c.logger.Debug("Cached products", zap.Int("count", len(list)))
}

// Products returns the products of the latest query, or nil once expired
func (c *CatalogCache) Products() []*entity.Product {
	cached, ok := c.cache.Get(lastQueryKey)
	if !ok {
		return nil
	}
	list := cached.([]*entity.Product)
	copied := make([]*entity.Product, len(list))
	copy(copied, list)
	return copied
}

// Product returns a cached product by identifier
func (c *CatalogCache) Product(identifier string) (*entity.Product, bool) {
	cached, ok := c.cache.Get(productKey(identifier))
	if !ok {
		return nil, false
	}
	return cached.(*entity.Product), true
}

// Invalidate drops a cached product
func (c *CatalogCache) Invalidate(identifier string) {
	c.cache.Remove(productKey(identifier))
}

func productKey(identifier string) string {
	return "product:" + identifier
}
