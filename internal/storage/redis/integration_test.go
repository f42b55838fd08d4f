package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a connected client.
func setupRedis(t *testing.T) *goredis.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := goredis.NewClient(&goredis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestDedupStore_Integration(t *testing.T) {
	client := setupRedis(t)
	store := NewDedupStore(client, "it:", time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	delivered, err := store.IsDelivered(ctx, 1, "sig")
	require.NoError(t, err)
	assert.False(t, delivered)

	require.NoError(t, store.MarkDelivered(ctx, 1, "sig"))
	require.NoError(t, store.MarkDelivered(ctx, 1, "sig"), "second mark is a no-op")

	delivered, err = store.IsDelivered(ctx, 1, "sig")
	require.NoError(t, err)
	assert.True(t, delivered)

	delivered, err = store.IsDelivered(ctx, 2, "sig")
	require.NoError(t, err)
	assert.False(t, delivered, "markers are per subscriber")

	ttl, err := client.TTL(ctx, "it:1:sig").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}
