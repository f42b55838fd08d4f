package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whale-alerts/internal/storage"
)

func TestDedupStore_MarkIsIdempotent(t *testing.T) {
	store := NewDedupStore()
	ctx := context.Background()

	delivered, err := store.IsDelivered(ctx, 1, "sig")
	require.NoError(t, err)
	assert.False(t, delivered)

	require.NoError(t, store.MarkDelivered(ctx, 1, "sig"))
	require.NoError(t, store.MarkDelivered(ctx, 1, "sig"))
	assert.Equal(t, 1, store.Len())

	delivered, err = store.IsDelivered(ctx, 1, "sig")
	require.NoError(t, err)
	assert.True(t, delivered)

	delivered, err = store.IsDelivered(ctx, 2, "sig")
	require.NoError(t, err)
	assert.False(t, delivered, "markers are per subscriber")

	assert.ErrorIs(t, store.MarkDelivered(ctx, 1, ""), storage.ErrInvalidInput)
}

func TestDedupStore_PruneBefore(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	store := NewDedupStoreWithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, store.MarkDelivered(ctx, 1, "old"))
	now = now.Add(48 * time.Hour)
	require.NoError(t, store.MarkDelivered(ctx, 1, "new"))

	n, err := store.PruneBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	delivered, _ := store.IsDelivered(ctx, 1, "old")
	assert.False(t, delivered)
	delivered, _ = store.IsDelivered(ctx, 1, "new")
	assert.True(t, delivered)
}
