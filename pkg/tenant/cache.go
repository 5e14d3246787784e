package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/pillar/pkg/logger"
)

const (
	DefaultCacheTTL        = 5 * time.Minute
	DefaultCacheMaxEntries = 10_000

	cacheKeyPrefix = "pillar:tenant:"
	loadTimeout    = 5 * time.Second
)

// CachedStore is a read-through Store with an in-process L1 (ristretto) and
// an optional shared L2 (redis). Concurrent misses for the same key share a
// single lookup. Misses are not cached.
//
// Redis failures are logged and treated as misses.
type CachedStore struct {
	next  Store
	l1    *ristretto.Cache[string, *Tenant]
	l2    redis.UniversalClient
	ttl   time.Duration
	log   *slog.Logger
	group singleflight.Group
}

// CacheOption configures a CachedStore.
type CacheOption func(*cacheConfig)

type cacheConfig struct {
	redis      redis.UniversalClient
	ttl        time.Duration
	maxEntries int64
	log        *slog.Logger
}

// WithRedis enables the shared L2 layer.
func WithRedis(client redis.UniversalClient) CacheOption {
	return func(c *cacheConfig) { c.redis = client }
}

// WithCacheTTL sets how long entries live in both layers.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *cacheConfig) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCacheMaxEntries bounds the L1 layer.
func WithCacheMaxEntries(n int64) CacheOption {
	return func(c *cacheConfig) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithCacheLogger sets the logger used for L2 failures.
func WithCacheLogger(log *slog.Logger) CacheOption {
	return func(c *cacheConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// NewCachedStore wraps next with caching.
func NewCachedStore(next Store, opts ...CacheOption) (*CachedStore, error) {
	cfg := cacheConfig{
		ttl:        DefaultCacheTTL,
		maxEntries: DefaultCacheMaxEntries,
		log:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	l1, err := ristretto.NewCache(&ristretto.Config[string, *Tenant]{
		NumCounters: cfg.maxEntries * 10,
		MaxCost:     cfg.maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &CachedStore{
		next: next,
		l1:   l1,
		l2:   cfg.redis,
		ttl:  cfg.ttl,
		log:  cfg.log.With(logger.Component("tenant_cache")),
	}, nil
}

// GetTenantBySlug implements Store.
func (c *CachedStore) GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error) {
	slug = NormalizeSlug(slug)
	return c.load(ctx, slugKey(slug), func(ctx context.Context) (*Tenant, error) {
		return c.next.GetTenantBySlug(ctx, slug)
	})
}

// GetPrimaryTenantForUser implements Store.
func (c *CachedStore) GetPrimaryTenantForUser(ctx context.Context, userID uuid.UUID) (*Tenant, error) {
	return c.load(ctx, userKey(userID), func(ctx context.Context) (*Tenant, error) {
		return c.next.GetPrimaryTenantForUser(ctx, userID)
	})
}

// InvalidateTenant drops every entry keyed by the tenant's slug.
func (c *CachedStore) InvalidateTenant(ctx context.Context, slug string) {
	c.delete(ctx, slugKey(NormalizeSlug(slug)))
}

// InvalidateUser drops the cached primary tenant of a user.
func (c *CachedStore) InvalidateUser(ctx context.Context, userID uuid.UUID) {
	c.delete(ctx, userKey(userID))
}

// Wait blocks until pending L1 writes are visible.
func (c *CachedStore) Wait() {
	c.l1.Wait()
}

// Close releases the L1 cache. The redis client is owned by the caller.
func (c *CachedStore) Close() {
	c.l1.Close()
}

func (c *CachedStore) load(ctx context.Context, key string, fetch func(context.Context) (*Tenant, error)) (*Tenant, error) {
	if t, ok := c.l1.Get(key); ok {
		return t.Clone(), nil
	}

	// The lookup is shared by every caller waiting on key, so it must not
	// inherit one caller's cancellation.
	ch := c.group.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		if t, ok := c.getL2(ctx, key); ok {
			c.l1.SetWithTTL(key, t, 1, c.ttl)
			return t, nil
		}

		t, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.l1.SetWithTTL(key, t, 1, c.ttl)
		c.setL2(ctx, key, t)
		return t, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Tenant).Clone(), nil
	}
}

func (c *CachedStore) getL2(ctx context.Context, key string) (*Tenant, bool) {
	if c.l2 == nil {
		return nil, false
	}
	data, err := c.l2.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WarnContext(ctx, "tenant cache read failed", logger.Error(err))
		}
		return nil, false
	}
	var t cachedTenant
	if err := json.Unmarshal(data, &t); err != nil {
		c.log.WarnContext(ctx, "tenant cache entry is corrupt", logger.Error(err))
		return nil, false
	}
	return t.tenant(), true
}

func (c *CachedStore) setL2(ctx context.Context, key string, t *Tenant) {
	if c.l2 == nil {
		return
	}
	data, err := json.Marshal(newCachedTenant(t))
	if err != nil {
		return
	}
	if err := c.l2.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.WarnContext(ctx, "tenant cache write failed", logger.Error(err))
	}
}

func (c *CachedStore) delete(ctx context.Context, key string) {
	c.l1.Del(key)
	c.group.Forget(key)
	if c.l2 == nil {
		return
	}
	if err := c.l2.Del(ctx, key).Err(); err != nil {
		c.log.WarnContext(ctx, "tenant cache delete failed", logger.Error(err))
	}
}

// cachedTenant keeps the connection string, which Tenant hides from JSON.
type cachedTenant struct {
	Tenant
	ConnectionString string `json:"connection_string,omitempty"`
}

func newCachedTenant(t *Tenant) cachedTenant {
	return cachedTenant{Tenant: *t, ConnectionString: t.ConnectionString}
}

func (c cachedTenant) tenant() *Tenant {
	t := c.Tenant
	t.ConnectionString = c.ConnectionString
	return &t
}

func slugKey(slug string) string {
	return cacheKeyPrefix + "slug:" + slug
}

func userKey(id uuid.UUID) string {
	return cacheKeyPrefix + "user:" + id.String()
}
