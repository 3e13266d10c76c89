package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

type memcacheCache struct {
	jsonCodec
	client *memcache.Client
}

// NewMemcache returns a cache backed by the given memcached servers.
// memcached calls do not observe ctx.
func NewMemcache(servers ...string) Cache {
	c := &memcacheCache{client: memcache.New(servers...)}
	c.jsonCodec = jsonCodec{get: c.Get, set: c.Set}
	return c
}

func (m *memcacheCache) Get(_ context.Context, key string) (string, error) {
	item, err := m.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return "", ErrMiss
	}
	if err != nil {
		return "", err
	}
	return string(item.Value), nil
}

func (m *memcacheCache) Set(_ context.Context, key string, value string, expiration time.Duration) error {
	return m.client.Set(&memcache.Item{
		Key:        key,
		Value:      []byte(value),
		Expiration: memcacheExpiration(expiration, time.Now()),
	})
}

// memcached reads expirations above 30 days as a Unix timestamp.
const maxRelativeExpiration = 30 * 24 * time.Hour

// memcacheExpiration converts a TTL to memcached's expiration field.
// Zero means no expiry, so a positive sub-second TTL rounds up to a second.
func memcacheExpiration(ttl time.Duration, now time.Time) int32 {
	switch {
	case ttl <= 0:
		return 0
	case ttl > maxRelativeExpiration:
		return int32(now.Add(ttl).Unix())
	case ttl < time.Second:
		return 1
	}
	return int32(ttl / time.Second)
}

// Close is a no-op; the client keeps only idle connections.
func (m *memcacheCache) Close() error {
	return nil
}

func (m *memcacheCache) Delete(_ context.Context, key string) error {
	err := m.client.Delete(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}
