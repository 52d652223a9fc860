package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedDirectory wraps a Directory with an in-process expirable LRU so
// repeated queries do not hammer the user pool's rate limits. Only successful
// lookups are cached; failures always retry the inner directory.
type CachedDirectory struct {
	inner Directory
	cache *expirable.LRU[string, Identity]

	// OnHit and OnMiss, when set, are invoked per lookup for metrics.
	OnHit  func()
	OnMiss func()
}

// NewCachedDirectory wraps inner with an LRU of the given size and TTL.
func NewCachedDirectory(inner Directory, size int, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{
		inner: inner,
		cache: expirable.NewLRU[string, Identity](size, nil, ttl),
	}
}

// Lookup implements Directory.
func (c *CachedDirectory) Lookup(ctx context.Context, ownerID string) (*Identity, error) {
	if identity, ok := c.cache.Get(ownerID); ok {
		if c.OnHit != nil {
			c.OnHit()
		}
		return &identity, nil
	}
	if c.OnMiss != nil {
		c.OnMiss()
	}

	identity, err := c.inner.Lookup(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	c.cache.Add(ownerID, *identity)
	return identity, nil
}

// ListAll implements Directory. Enumeration bypasses the cache; it is used by
// signup trends, which want fresh createdAt data.
func (c *CachedDirectory) ListAll(ctx context.Context) ([]Identity, error) {
	return c.inner.ListAll(ctx)
}

// RedisCachedDirectory wraps a Directory with a shared Redis cache, for
// deployments running several replicas against one user pool.
type RedisCachedDirectory struct {
	inner  Directory
	client *redis.Client
	ttl    time.Duration

	OnHit  func()
	OnMiss func()
}

// NewRedisCachedDirectory wraps inner with a Redis-backed cache.
func NewRedisCachedDirectory(inner Directory, client *redis.Client, ttl time.Duration) *RedisCachedDirectory {
	return &RedisCachedDirectory{
		inner:  inner,
		client: client,
		ttl:    ttl,
	}
}

func identityCacheKey(ownerID string) string {
	return fmt.Sprintf("tally:identity:%s", ownerID)
}

// Lookup implements Directory. Redis failures are treated as cache misses;
// the inner directory remains the source of truth.
func (c *RedisCachedDirectory) Lookup(ctx context.Context, ownerID string) (*Identity, error) {
	key := identityCacheKey(ownerID)

	data, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var identity Identity
		if unmarshalErr := json.Unmarshal([]byte(data), &identity); unmarshalErr == nil {
			if c.OnHit != nil {
				c.OnHit()
			}
			return &identity, nil
		}
		// Corrupt entry; drop it and fall through to the inner lookup.
		c.client.Del(ctx, key)
	}
	if c.OnMiss != nil {
		c.OnMiss()
	}

	identity, lookupErr := c.inner.Lookup(ctx, ownerID)
	if lookupErr != nil {
		return nil, lookupErr
	}

	if data, marshalErr := json.Marshal(identity); marshalErr == nil {
		c.client.Set(ctx, key, data, c.ttl)
	}
	return identity, nil
}

// ListAll implements Directory, bypassing the cache.
func (c *RedisCachedDirectory) ListAll(ctx context.Context) ([]Identity, error) {
	return c.inner.ListAll(ctx)
}
