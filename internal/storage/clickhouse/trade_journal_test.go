package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whale-alerts/internal/domain"
	"whale-alerts/internal/storage"
)

func journalEntry(id, address string, ts int64) *domain.JournalEntry {
	return &domain.JournalEntry{
		ID: id,
		Trade: domain.ClassifiedTrade{
			Direction:      domain.DirectionBuy,
			TrackedAddress: address,
			Mint:           "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
			Symbol:         "BONK",
			Name:           "Bonk",
			TokenAmount:    decimal.RequireFromString("1500000.5"),
			InputAsset:     domain.InputNative,
			InputAmount:    decimal.RequireFromString("12.5"),
			ValueUSD:       decimal.RequireFromString("1875"),
			PriceUSD:       decimal.RequireFromString("150"),
			MarketCapUSD:   ptr(decimal.RequireFromString("1500000000")),
			TokenAge:       ptr(36 * time.Hour),
			Signature:      "sig-" + id,
			Timestamp:      ts,
		},
		Delivered:  2,
		Duplicate:  1,
		Skipped:    1,
		RecordedAt: time.UnixMilli(ts * 1000).UTC(),
	}
}

func TestTradeJournal_AppendAndRead(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	j := NewTradeJournal(conn)

	require.NoError(t, j.Append(ctx, []*domain.JournalEntry{
		journalEntry("a", "whale", 1_760_000_000),
		journalEntry("b", "whale", 1_760_000_100),
		journalEntry("c", "other", 1_760_000_050),
	}))

	got, err := j.RecentByAddress(ctx, "whale", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "b", first.ID)
	assert.Equal(t, domain.DirectionBuy, first.Trade.Direction)
	assert.Equal(t, domain.InputNative, first.Trade.InputAsset)
	assert.True(t, first.Trade.TokenAmount.Equal(decimal.RequireFromString("1500000.5")))
	assert.True(t, first.Trade.ValueUSD.Equal(decimal.NewFromInt(1875)))
	require.NotNil(t, first.Trade.MarketCapUSD)
	assert.True(t, first.Trade.MarketCapUSD.Equal(decimal.NewFromInt(1_500_000_000)))
	require.NotNil(t, first.Trade.TokenAge)
	assert.Equal(t, 36*time.Hour, *first.Trade.TokenAge)
	assert.Equal(t, int64(1_760_000_100), first.Trade.Timestamp)
	assert.Equal(t, 2, first.Delivered)
	assert.Equal(t, 1, first.Duplicate)
	assert.Equal(t, 1, first.Skipped)
	assert.Equal(t, "a", got[1].ID)
}

func TestTradeJournal_ReappendCollapses(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	j := NewTradeJournal(conn)

	entry := journalEntry("a", "whale", 1_760_000_000)
	entry.Trade.MarketCapUSD = nil
	entry.Trade.TokenAge = nil
	require.NoError(t, j.Append(ctx, []*domain.JournalEntry{entry}))
	require.NoError(t, j.Append(ctx, []*domain.JournalEntry{entry}))

	got, err := j.RecentByAddress(ctx, "whale", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Trade.MarketCapUSD)
	assert.Nil(t, got[0].Trade.TokenAge)
}

func TestTradeJournal_InvalidInput(t *testing.T) {
	j := NewTradeJournal(nil)
	err := j.Append(context.Background(), []*domain.JournalEntry{{}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
	assert.NoError(t, j.Append(context.Background(), nil))
}

func TestParseDSN(t *testing.T) {
	opts, err := parseDSN("clickhouse://user:pw@ch.local/whales")
	require.NoError(t, err)
	assert.Equal(t, []string{"ch.local:9000"}, opts.Addr)
	assert.Equal(t, "user", opts.Auth.Username)
	assert.Equal(t, "pw", opts.Auth.Password)
	assert.Equal(t, "whales", opts.Auth.Database)

	_, err = parseDSN("http://ch.local:8123/whales")
	assert.Error(t, err)
}
