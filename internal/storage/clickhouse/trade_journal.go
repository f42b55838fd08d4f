package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"whale-alerts/internal/domain"
	"whale-alerts/internal/storage"
)

// TradeJournal implements storage.TradeJournal using ClickHouse.
type TradeJournal struct {
	conn *Conn
}

// NewTradeJournal creates a new TradeJournal.
func NewTradeJournal(conn *Conn) *TradeJournal {
	return &TradeJournal{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeJournal = (*TradeJournal)(nil)

const journalColumns = `
	id, signature, tracked_address, direction, mint, symbol, name,
	token_amount, input_asset, input_amount, value_usd, price_usd,
	market_cap_usd, token_age_seconds, trade_timestamp,
	delivered, duplicate, skipped, failed, recorded_at
`

// Append adds entries in one batch. Rows sharing an id collapse on merge and
// are read back with FINAL, so re-appending an entry is harmless.
func (j *TradeJournal) Append(ctx context.Context, entries []*domain.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if e == nil || e.ID == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := j.conn.PrepareBatch(ctx, "INSERT INTO trade_journal ("+journalColumns+")")
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range entries {
		t := e.Trade
		var ageSeconds *int64
		if t.TokenAge != nil {
			s := int64(t.TokenAge.Seconds())
			ageSeconds = &s
		}
		err = batch.Append(
			e.ID, t.Signature, t.TrackedAddress, string(t.Direction), t.Mint, t.Symbol, t.Name,
			t.TokenAmount, string(t.InputAsset), t.InputAmount, t.ValueUSD, t.PriceUSD,
			t.MarketCapUSD, ageSeconds, time.Unix(t.Timestamp, 0).UTC(),
			uint32(e.Delivered), uint32(e.Duplicate), uint32(e.Skipped), uint32(e.Failed), e.RecordedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// RecentByAddress returns up to limit entries for address, newest trade first.
func (j *TradeJournal) RecentByAddress(ctx context.Context, address string, limit int) ([]*domain.JournalEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + journalColumns + `
		FROM trade_journal FINAL
		WHERE tracked_address = ?
		ORDER BY trade_timestamp DESC, id
		LIMIT ?`

	rows, err := j.conn.Query(ctx, query, address, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query trade journal: %w", err)
	}
	defer rows.Close()

	return scanJournal(rows)
}

func scanJournal(rows chRows) ([]*domain.JournalEntry, error) {
	var entries []*domain.JournalEntry

	for rows.Next() {
		var (
			e                                     domain.JournalEntry
			direction, inputAsset                 string
			mcap                                  *decimal.Decimal
			ageSeconds                            *int64
			tradeTime                             time.Time
			delivered, duplicate, skipped, failed uint32
		)
		err := rows.Scan(
			&e.ID, &e.Trade.Signature, &e.Trade.TrackedAddress, &direction, &e.Trade.Mint, &e.Trade.Symbol, &e.Trade.Name,
			&e.Trade.TokenAmount, &inputAsset, &e.Trade.InputAmount, &e.Trade.ValueUSD, &e.Trade.PriceUSD,
			&mcap, &ageSeconds, &tradeTime,
			&delivered, &duplicate, &skipped, &failed, &e.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade journal row: %w", err)
		}

		e.Trade.Direction = domain.Direction(direction)
		e.Trade.InputAsset = domain.InputAsset(inputAsset)
		e.Trade.MarketCapUSD = mcap
		if ageSeconds != nil {
			age := time.Duration(*ageSeconds) * time.Second
			e.Trade.TokenAge = &age
		}
		e.Trade.Timestamp = tradeTime.Unix()
		e.Delivered = int(delivered)
		e.Duplicate = int(duplicate)
		e.Skipped = int(skipped)
		e.Failed = int(failed)
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade journal rows: %w", err)
	}
	return entries, nil
}
