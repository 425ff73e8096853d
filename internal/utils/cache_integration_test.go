package utils

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedisContainer(t *testing.T, ctx context.Context) *redis.Client {
	t.Helper()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestAccountListCacheIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	rdb := startRedisContainer(t, ctx)

	type list struct {
		Balances []int64 `json:"balances"`
	}

	t.Run("fill and invalidate", func(t *testing.T) {
		key, versionKey := AccountListCacheKey(1), AccountListVersionKey(1)
		version, err := CacheVersion(ctx, rdb, versionKey)
		require.NoError(t, err)
		assert.Zero(t, version)

		stored, err := SetCacheIfVersion(ctx, rdb, key, versionKey, version, list{Balances: []int64{100}}, time.Minute)
		require.NoError(t, err)
		assert.True(t, stored)

		var got list
		found, err := GetCache(ctx, rdb, key, &got)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, []int64{100}, got.Balances)

		require.NoError(t, InvalidateCache(ctx, rdb, versionKey, key))
		found, err = GetCache(ctx, rdb, key, &got)
		require.NoError(t, err)
		assert.False(t, found)
		version, err = CacheVersion(ctx, rdb, versionKey)
		require.NoError(t, err)
		assert.Equal(t, int64(1), version)
	})

	t.Run("read that raced an invalidation is not cached", func(t *testing.T) {
		key, versionKey := AccountListCacheKey(2), AccountListVersionKey(2)
		before, err := CacheVersion(ctx, rdb, versionKey)
		require.NoError(t, err)

		// A write commits and invalidates while the old list is in flight
		require.NoError(t, InvalidateCache(ctx, rdb, versionKey, key))

		stored, err := SetCacheIfVersion(ctx, rdb, key, versionKey, before, list{Balances: []int64{100}}, time.Minute)
		require.NoError(t, err)
		assert.False(t, stored)

		var got list
		found, err := GetCache(ctx, rdb, key, &got)
		require.NoError(t, err)
		assert.False(t, found)
	})
}
