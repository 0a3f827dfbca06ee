package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedPerson struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func exerciseCache(t *testing.T, c domain.Cache) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "Person:1", cachedPerson{ID: 1, Name: "Ann"}))
	var got cachedPerson
	ok, err := c.Get(ctx, "Person:1", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cachedPerson{ID: 1, Name: "Ann"}, got)

	ok, err = c.Get(ctx, "Person:2", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.AddToTopOfList(ctx, "FollowersByPerson:1", 9))
	_, ok, err = c.GetList(ctx, "FollowersByPerson:1")
	require.NoError(t, err)
	assert.False(t, ok, "adding to a missing list must not create it")

	require.NoError(t, c.SetList(ctx, "FollowersByPerson:1", []int64{3, 2, 1}))
	require.NoError(t, c.AddToTopOfList(ctx, "FollowersByPerson:1", 5, 4))
	ids, ok, err := c.GetList(ctx, "FollowersByPerson:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int64{5, 4, 3, 2}, ids, "list is capped at the max size")

	require.NoError(t, c.RemoveFromList(ctx, "FollowersByPerson:1", 4, 3))
	ids, _, err = c.GetList(ctx, "FollowersByPerson:1")
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 2}, ids)

	require.NoError(t, c.RemoveFromList(ctx, "FollowersByPerson:7", 1))
	_, ok, err = c.GetList(ctx, "FollowersByPerson:7")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Delete(ctx, "Person:1", "FollowersByPerson:1"))
	ok, err = c.Get(ctx, "Person:1", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = c.GetList(ctx, "FollowersByPerson:1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "SystemSettings", map[string]string{"siteLabel": "x"}))
	require.NoError(t, c.Clear(ctx))
	ok, err = c.Get(ctx, "SystemSettings", &map[string]string{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache(t *testing.T) {
	c, err := NewMemory(100, 4)
	require.NoError(t, err)
	exerciseCache(t, c)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemory(2, 10)
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "a", 1))
	require.NoError(t, c.Set(ctx, "b", 2))
	var v int
	ok, _ := c.Get(ctx, "a", &v)
	require.True(t, ok)
	require.NoError(t, c.Set(ctx, "c", 3))

	ok, _ = c.Get(ctx, "b", &v)
	assert.False(t, ok)
	ok, _ = c.Get(ctx, "a", &v)
	assert.True(t, ok)
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, mr.Set("unrelated", "keep"))
	exerciseCache(t, NewRedis(client, "eureka:", 4))
	assert.True(t, mr.Exists("unrelated"), "clear only touches prefixed keys")
}

func TestDialRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := DialRedis(context.Background(), mr.Addr(), 0, "")
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "ping", "pong", 0).Err())
	got, err := mr.Get("ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", got)
}
