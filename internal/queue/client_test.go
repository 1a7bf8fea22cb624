package queue

import (
	"context"
	"testing"
	"time"

	"storefront-orders/internal/config"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) config.RedisConfig {
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
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	return config.RedisConfig{Addr: endpoint}
}

func TestScheduler_ScheduleExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	redisCfg := setupRedis(t)
	ctx := context.Background()

	scheduler := NewScheduler(redisCfg, zerolog.Nop())
	defer scheduler.Close()

	at := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	require.NoError(t, scheduler.ScheduleExpiry(ctx, "R1", at))

	inspector := asynq.NewInspector(redisOpt(redisCfg))
	defer inspector.Close()

	info, err := inspector.GetTaskInfo(DefaultQueue, expiryTaskID("R1"))
	require.NoError(t, err)
	assert.Equal(t, TaskReservationExpire, info.Type)
	assert.Equal(t, asynq.TaskStateScheduled, info.State)
	assert.WithinDuration(t, at, info.NextProcessAt, time.Second)

	t.Run("Scheduling twice is a no-op", func(t *testing.T) {
		require.NoError(t, scheduler.ScheduleExpiry(ctx, "R1", at.Add(time.Hour)))

		tasks, err := inspector.ListScheduledTasks(DefaultQueue)
		require.NoError(t, err)
		assert.Len(t, tasks, 1)
	})
}
