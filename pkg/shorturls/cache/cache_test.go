package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func exerciseCache(t *testing.T, c Cache) {
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	require.NoError(t, c.SetJSON(ctx, "j", payload{Name: "a", Count: 2}, time.Minute))
	var p payload
	require.NoError(t, c.GetJSON(ctx, "j", &p))
	assert.Equal(t, payload{Name: "a", Count: 2}, p)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	// Deleting an absent key is not an error
	assert.NoError(t, c.Delete(ctx, "never-set"))
}

func TestMemoryCache(t *testing.T) {
	exerciseCache(t, NewMemory())
}

func TestMemoryCache_Expires(t *testing.T) {
	c := NewMemory().(*memoryCache)
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Second))
	_, err := c.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisCache(t *testing.T) {
	url := os.Getenv("SHORTURLS_TEST_REDIS_URL")
	if url == "" {
		t.Skip("SHORTURLS_TEST_REDIS_URL not set")
	}

	c, err := NewRedisCache(context.Background(), url)
	require.NoError(t, err)
	exerciseCache(t, c)
}

func TestMemcache(t *testing.T) {
	servers := os.Getenv("SHORTURLS_TEST_MEMCACHE_SERVERS")
	if servers == "" {
		t.Skip("SHORTURLS_TEST_MEMCACHE_SERVERS not set")
	}

	exerciseCache(t, NewMemcache(servers))
}

func TestMemcacheExpiration(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ttl  time.Duration
		want int32
	}{
		{"no expiry", 0, 0},
		{"sub-second rounds up", 500 * time.Millisecond, 1},
		{"minutes", 5 * time.Minute, 300},
		{"exactly thirty days", 30 * 24 * time.Hour, 2592000},
		{"beyond thirty days is absolute", 31 * 24 * time.Hour, int32(now.Add(31 * 24 * time.Hour).Unix())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, memcacheExpiration(tt.ttl, now))
		})
	}
}
