package store

import (
	"context"
	"encoding/json"
	"time"
)

const cachePrefix = "caseflow:cache:"

// Cache read-through cache keyed (entity, scope) with a TTL. Writes that
// touch an entity call Invalidate explicitly; the TTL only bounds staleness
// when an invalidation is missed (e.g. a write from another process).
type Cache struct {
	kv  KV
	ttl time.Duration
}

func NewCache(kv KV, ttl time.Duration) *Cache {
	return &Cache{kv: kv, ttl: ttl}
}

func cacheKey(entity, scope string) string {
	return cachePrefix + entity + ":" + scope
}

// Get unmarshals the cached value into out. Returns false on miss; cache
// errors are reported as misses so a broken Redis never breaks reads.
func (c *Cache) Get(ctx context.Context, entity, scope string, out any) bool {
	raw, err := c.kv.Get(ctx, cacheKey(entity, scope))
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false
	}
	return true
}

func (c *Cache) Set(ctx context.Context, entity, scope string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.kv.Set(ctx, cacheKey(entity, scope), string(raw), c.ttl)
}

// Invalidate drops every scope cached under the entity.
func (c *Cache) Invalidate(ctx context.Context, entity string) error {
	keys, err := c.kv.ScanKeys(ctx, cachePrefix+entity+":*")
	if err != nil {
		return err
	}
	return c.kv.Del(ctx, keys...)
}
