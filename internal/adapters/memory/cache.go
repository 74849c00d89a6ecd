package memory

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"hotel_finder/internal/adapters/observability"
	"hotel_finder/internal/domain"
)

// Cache is the in-process counterpart of the redis cache. Values are stored as JSON so
// readers get their own copy.
type Cache struct{ c *gocache.Cache }

var _ domain.Cache = (*Cache)(nil)

func NewCache(defaultTTL time.Duration) *Cache {
	return &Cache{c: gocache.New(defaultTTL, 2*defaultTTL)}
}

func (m *Cache) Get(_ context.Context, key string, dst any) (bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		observability.ObserveCache("memory", "miss")
		return false, nil
	}
	observability.ObserveCache("memory", "hit")
	return true, json.Unmarshal(v.([]byte), dst)
}

func (m *Cache) Set(_ context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	observability.ObserveCache("memory", "set")
	ttl := gocache.DefaultExpiration
	if ttlSec > 0 {
		ttl = time.Duration(ttlSec) * time.Second
	}
	m.c.Set(key, b, ttl)
	return nil
}

func (m *Cache) Del(_ context.Context, key string) error {
	observability.ObserveCache("memory", "del")
	m.c.Delete(key)
	return nil
}
