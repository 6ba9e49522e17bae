package redis_test

import (
	"context"
	"net"
	"os"
	"strconv"
	"testing"

	"github.com/Rrens/zara-ai/internal/config"
	"github.com/Rrens/zara-ai/internal/persistence"
	"github.com/Rrens/zara-ai/internal/repository/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	if os.Getenv("ZARA_TEST_REDIS_ADDR") == "" {
		t.Skip("Requires Redis - set ZARA_TEST_REDIS_ADDR (host:port) to run as integration test")
	}

	host, port := splitAddr(t, os.Getenv("ZARA_TEST_REDIS_ADDR"))
	client, err := redis.NewClient(context.Background(), config.RedisConfig{Host: host, Port: port, DB: 15})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func splitAddr(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestKV_RoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := redis.NewKV(newTestClient(t))
	key := "test:" + t.Name()

	require.NoError(t, kv.Set(ctx, key, []byte(`[1]`)))
	got, err := kv.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(got))

	require.NoError(t, kv.Remove(ctx, key))
	_, err = kv.Get(ctx, key)
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	limiter := redis.NewRateLimiter(newTestClient(t), 1, 1)
	key := "test:" + t.Name()
	require.NoError(t, limiter.Reset(ctx, key))
	defer limiter.Reset(ctx, key)

	for i := 0; i < 2; i++ {
		allowed, _, _, err := limiter.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, remaining, _, err := limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
}
