package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whale-alerts/internal/domain"
	"whale-alerts/internal/storage"
)

func TestSubscriberRegistry_AddAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	reg := NewSubscriberRegistry(pool)

	require.NoError(t, reg.AddBinding(ctx, &domain.SubscriberBinding{SubscriberID: 10, Address: "whale", Label: "fund", Active: true, AddedAt: 1000}))
	require.NoError(t, reg.AddBinding(ctx, &domain.SubscriberBinding{SubscriberID: -20, Address: "whale", Active: false, AddedAt: 2000}))
	require.NoError(t, reg.AddBinding(ctx, &domain.SubscriberBinding{SubscriberID: 10, Address: "idle", Active: false}))

	bindings, err := reg.ListBindings(ctx, "whale")
	require.NoError(t, err)
	require.Len(t, bindings, 2)
	assert.Equal(t, int64(10), bindings[0].SubscriberID)
	assert.Equal(t, "fund", bindings[0].Label)
	assert.True(t, bindings[0].Active)
	assert.Equal(t, int64(-20), bindings[1].SubscriberID)
	assert.False(t, bindings[1].Active)

	idle, err := reg.ListBindings(ctx, "idle")
	require.NoError(t, err)
	require.Len(t, idle, 1)
	assert.NotZero(t, idle[0].AddedAt, "added_at defaults to now")

	addresses, err := reg.ListTrackedAddresses(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"whale"}, addresses)
}

func TestSubscriberRegistry_DuplicateBinding(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	reg := NewSubscriberRegistry(pool)

	b := &domain.SubscriberBinding{SubscriberID: 1, Address: "whale", Active: true}
	require.NoError(t, reg.AddBinding(ctx, b))
	assert.ErrorIs(t, reg.AddBinding(ctx, b), storage.ErrDuplicateKey)
}

func TestSubscriberRegistry_SettingsAndActive(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	reg := NewSubscriberRegistry(pool)

	_, err := reg.GetSettings(ctx, 5)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, reg.AddBinding(ctx, &domain.SubscriberBinding{SubscriberID: 5, Address: "whale", Active: true}))

	settings, err := reg.GetSettings(ctx, 5)
	require.NoError(t, err)
	assert.True(t, settings.AlertsEnabled)

	require.NoError(t, reg.SetAlertsEnabled(ctx, 5, false))
	settings, err = reg.GetSettings(ctx, 5)
	require.NoError(t, err)
	assert.False(t, settings.AlertsEnabled)

	require.NoError(t, reg.SetActive(ctx, 5, "whale", false))
	addresses, err := reg.ListTrackedAddresses(ctx)
	require.NoError(t, err)
	assert.Empty(t, addresses)

	assert.ErrorIs(t, reg.SetActive(ctx, 5, "missing", true), storage.ErrNotFound)
	assert.ErrorIs(t, reg.SetAlertsEnabled(ctx, 99, true), storage.ErrNotFound)
}
