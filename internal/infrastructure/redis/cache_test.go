package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unibazzar/marketplace-api/configs"
	"github.com/unibazzar/marketplace-api/internal/infrastructure/redis"
)

func TestCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()
	cache := redis.NewCache(client, "appcache")
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "user:id:1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "user:id:1", []byte(`{"id":1}`), time.Minute))
	assert.True(t, mr.Exists("appcache:user:id:1"))
	assert.Equal(t, time.Minute, mr.TTL("appcache:user:id:1"))

	got, ok, err := cache.Get(ctx, "user:id:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"id":1}`, string(got))

	require.NoError(t, cache.Delete(ctx, "user:id:1"))
	_, ok, err = cache.Get(ctx, "user:id:1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "short", []byte("x"), time.Second))
	mr.FastForward(2 * time.Second)
	_, ok, err = cache.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port := mr.Host(), mr.Port()
	client, err := redis.NewRedisClient(&configs.RedisConfig{Host: host, Port: port})
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Ping(context.Background()).Err())

	mr.Close()
	_, err = redis.NewRedisClient(&configs.RedisConfig{Host: host, Port: port, DialTimeout: 100 * time.Millisecond})
	assert.Error(t, err)
}

func TestNewRedisClient_URL(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("probe", "1"))

	client, err := redis.NewRedisClient(&configs.RedisConfig{URL: "redis://" + mr.Addr() + "/0"})
	require.NoError(t, err)
	defer client.Close()
	val, err := client.Get(context.Background(), "probe").Result()
	require.NoError(t, err)
	assert.Equal(t, "1", val)

	_, err = redis.NewRedisClient(&configs.RedisConfig{URL: "http://not-redis"})
	assert.Error(t, err)
}
