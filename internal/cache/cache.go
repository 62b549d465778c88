// Package cache is the process-wide response cache shared by the services.
//
// Entries are keyed by entity kind and id and expire after a per-entry TTL.
// Reads past expiry behave as misses. Expired entries are reclaimed by the
// sweep worker through DeleteExpired. Every method is safe on a nil *Cache,
// which behaves as an always-empty cache.
package cache

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Kind namespaces cache keys.
type Kind string

const (
	KindCustomer        Kind = "customer"
	KindProduct         Kind = "product"
	KindOrder           Kind = "order"
	KindTracking        Kind = "order_tracking"
	KindRecommendations Kind = "recommendations"
)

// Key identifies a cached value.
type Key struct {
	Kind Kind
	ID   string
}

func (k Key) String() string {
	return string(k.Kind) + ":" + k.ID
}

func CustomerKey(id string) Key        { return Key{Kind: KindCustomer, ID: id} }
func ProductKey(id string) Key         { return Key{Kind: KindProduct, ID: id} }
func OrderKey(id string) Key           { return Key{Kind: KindOrder, ID: id} }
func TrackingKey(orderID string) Key   { return Key{Kind: KindTracking, ID: orderID} }
func RecommendationsKey(id string) Key { return Key{Kind: KindRecommendations, ID: id} }

// Cache is a TTL key-value cache.
type Cache struct {
	store *ttlcache.Cache[Key, any]
}

// New creates a cache whose entries default to ttl.
func New(ttl time.Duration) *Cache {
	return &Cache{
		store: ttlcache.New[Key, any](
			ttlcache.WithTTL[Key, any](ttl),
			ttlcache.WithDisableTouchOnHit[Key, any](),
		),
	}
}

// Get returns the value stored under key if it has not expired.
func (c *Cache) Get(key Key) (any, bool) {
	if c == nil {
		return nil, false
	}

	item := c.store.Get(key)
	if item == nil {
		return nil, false
	}
	if item.IsExpired() {
		c.store.Delete(key)

		return nil, false
	}

	return item.Value(), true
}

// Set stores value under key. A zero ttl uses the cache default.
func (c *Cache) Set(key Key, value any, ttl time.Duration) {
	if c == nil {
		return
	}
	if ttl <= 0 {
		ttl = ttlcache.DefaultTTL
	}

	c.store.Set(key, value, ttl)
}

// Invalidate drops keys.
func (c *Cache) Invalidate(keys ...Key) {
	if c == nil {
		return
	}

	for _, k := range keys {
		c.store.Delete(k)
	}
}

// DeleteExpired removes every expired entry and returns how many were removed.
func (c *Cache) DeleteExpired() int {
	if c == nil {
		return 0
	}

	before := c.store.Len()
	c.store.DeleteExpired()

	return before - c.store.Len()
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}

	return c.store.Len()
}

// Lookup is a typed Get. A value of a different type is treated as a miss.
func Lookup[T any](c *Cache, key Key) (T, bool) {
	v, ok := c.Get(key)
	if !ok {
		var zero T

		return zero, false
	}

	t, ok := v.(T)

	return t, ok
}
