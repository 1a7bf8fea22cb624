package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a connected client.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	require.NoError(t, client.Ping(ctx).Err())

	cleanup := func() {
		_ = client.Close()
		_ = container.Terminate(ctx)
	}

	return client, cleanup
}

func TestRedisStore_ResumableKeys(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRedisStore(client, "checkout:")
	manager := NewResumeManager(store, zerolog.Nop())

	first, err := manager.Resumable(ctx, "AB12CD34")
	require.NoError(t, err)
	second, err := manager.Resumable(ctx, "AB12CD34")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	ttl, err := client.TTL(ctx, "checkout:resume_AB12CD34").Result()
	require.NoError(t, err)
	assert.InDelta(t, ResumeTTL.Seconds(), ttl.Seconds(), 5)

	require.NoError(t, manager.Discard(ctx, "AB12CD34"))
	exists, err := client.Exists(ctx, "checkout:resume_AB12CD34").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)

	third, err := manager.Resumable(ctx, "AB12CD34")
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestRedisStore_SetIfAbsentKeepsFirstValue(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRedisStore(client, "")

	v, err := store.SetIfAbsent(ctx, "k", "first", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	v, err = store.SetIfAbsent(ctx, "k", "second", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "first", v)
}
