package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/streamgate/streamgate/internal/cache"
	"github.com/streamgate/streamgate/internal/models"
)

// Cache TTLs per document. Short on purpose: TTL expiry is only a backstop
// for out-of-band edits, writes through this store invalidate explicitly.
const (
	ttlCustomers = 30 * time.Second
	ttlCatalog   = 2 * time.Minute
)

const (
	keyCustomers = "streamgate:customers"
	keyCatalog   = "streamgate:catalog"

	// appendLockKey serializes registry appends across processes sharing the
	// same backing documents.
	appendLockKey = "streamgate:lock:customers"
	appendLockTTL = 10 * time.Second
)

// CachedStore wraps a Store with a Redis caching layer. Reads are served from
// cache when possible; every admin write invalidates the affected document so
// consistency-after-write holds for the process that performed the write.
type CachedStore struct {
	inner Store
	cache *cache.Redis
}

// NewCachedStore creates a CachedStore that wraps inner with Redis caching.
func NewCachedStore(inner Store, c *cache.Redis) *CachedStore {
	return &CachedStore{inner: inner, cache: c}
}

// --- cached read operations ---

func (c *CachedStore) LoadCustomers(ctx context.Context) (*models.Registry, error) {
	if v, err := cache.Get[models.Registry](ctx, c.cache, keyCustomers); err == nil {
		return &v, nil
	}
	reg, err := c.inner.LoadCustomers(ctx)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, c.cache, keyCustomers, reg, ttlCustomers); err != nil {
		log.Printf("cache: set %s: %v", keyCustomers, err)
	}
	return reg, nil
}

func (c *CachedStore) LoadCatalog(ctx context.Context) (*models.Catalog, error) {
	if v, err := cache.Get[models.Catalog](ctx, c.cache, keyCatalog); err == nil {
		return &v, nil
	}
	cat, err := c.inner.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, c.cache, keyCatalog, cat, ttlCatalog); err != nil {
		log.Printf("cache: set %s: %v", keyCatalog, err)
	}
	return cat, nil
}

// --- write operations with cache invalidation ---

func (c *CachedStore) AppendCustomer(ctx context.Context, cust models.Customer) (*models.Customer, error) {
	// The inner store's mutex only covers this process; the Redis lock
	// extends write serialization to every process sharing the documents.
	unlock, err := cache.TryLock(ctx, c.cache, appendLockKey, appendLockTTL)
	if err != nil {
		if errors.Is(err, cache.ErrLocked) {
			return nil, ErrWriteContended
		}
		return nil, fmt.Errorf("acquire append lock: %w", err)
	}
	defer unlock()

	stored, err := c.inner.AppendCustomer(ctx, cust)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, keyCustomers)
	return stored, nil
}

func (c *CachedStore) ReplaceCatalog(ctx context.Context, catalog *models.Catalog) error {
	if err := c.inner.ReplaceCatalog(ctx, catalog); err != nil {
		return err
	}
	c.invalidate(ctx, keyCatalog)
	return nil
}

// invalidate deletes exact cache keys, logging any errors.
func (c *CachedStore) invalidate(ctx context.Context, keys ...string) {
	if err := cache.Del(ctx, c.cache, keys...); err != nil && err != redis.Nil {
		log.Printf("cache: del %v: %v", keys, err)
	}
}
