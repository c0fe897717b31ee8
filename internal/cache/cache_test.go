package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCacheFromClient(client, "test"), mr
}

// exerciseCache runs the behaviour every Cache must share.
func exerciseCache(t *testing.T, c Cache) {
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v1"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))

	ok, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Set(ctx, "forever", []byte("x"), 0))
	got, err = c.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))

	calls := 0
	compute := func() ([]byte, error) {
		calls++
		return []byte("computed"), nil
	}
	v, err := c.GetOrSet(ctx, "lazy", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, "computed", string(v))
	_, err = c.GetOrSet(ctx, "lazy", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	_, err = c.GetOrSet(ctx, "fails", time.Minute, func() ([]byte, error) { return nil, errors.New("boom") })
	assert.EqualError(t, err, "boom")

	require.NoError(t, c.Delete(ctx, "k"))
	ok, err = c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Clear(ctx))
	_, err = c.Get(ctx, "forever")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	exerciseCache(t, c)
}

func TestRedisCache(t *testing.T) {
	c, _ := newTestRedisCache(t)
	exerciseCache(t, c)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCacheWithInterval(10 * time.Millisecond)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("v"), 20*time.Millisecond))
	require.NoError(t, c.Set(ctx, "forever", []byte("v"), 0))

	assert.Eventually(t, func() bool {
		_, err := c.Get(ctx, "short")
		return errors.Is(err, ErrCacheMiss)
	}, time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, 10*time.Millisecond)
	_, err := c.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestMemoryCache_ReturnsCopies(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	buf := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", buf, 0))
	buf[0] = 'z'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'z'
	again, _ := c.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestRedisCache_PrefixAndTTL(t *testing.T) {
	c, mr := newTestRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "slot", []byte("v"), time.Minute))
	assert.True(t, mr.Exists("test:slot"))
	assert.Equal(t, time.Minute, mr.TTL("test:slot"))

	mr.FastForward(2 * time.Minute)
	_, err := c.Get(ctx, "slot")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, mr.Set("other:key", "keep"))
	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Clear(ctx))
	assert.True(t, mr.Exists("other:key"))
	assert.False(t, mr.Exists("test:a"))
}
