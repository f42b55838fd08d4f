package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupStore_MarkAndCheck(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDedupStore(pool)

	delivered, err := store.IsDelivered(ctx, 1, "sig")
	require.NoError(t, err)
	assert.False(t, delivered)

	require.NoError(t, store.MarkDelivered(ctx, 1, "sig"))
	require.NoError(t, store.MarkDelivered(ctx, 1, "sig"), "second write is a no-op")

	delivered, err = store.IsDelivered(ctx, 1, "sig")
	require.NoError(t, err)
	assert.True(t, delivered)

	delivered, err = store.IsDelivered(ctx, 2, "sig")
	require.NoError(t, err)
	assert.False(t, delivered)
}

func TestDedupStore_PruneBefore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDedupStore(pool)

	require.NoError(t, store.MarkDelivered(ctx, 1, "old"))
	require.NoError(t, store.MarkDelivered(ctx, 1, "new"))
	_, err := pool.Exec(ctx, `UPDATE delivered_alerts SET delivered_at = NOW() - INTERVAL '8 days' WHERE signature = 'old'`)
	require.NoError(t, err)

	n, err := store.PruneBefore(ctx, time.Now().Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	delivered, err := store.IsDelivered(ctx, 1, "old")
	require.NoError(t, err)
	assert.False(t, delivered)
	delivered, err = store.IsDelivered(ctx, 1, "new")
	require.NoError(t, err)
	assert.True(t, delivered)
}
