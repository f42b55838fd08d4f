package postgres

import (
	"context"
	"fmt"
	"time"

	"whale-alerts/internal/storage"
)

// DedupStore implements storage.DedupStore using PostgreSQL.
type DedupStore struct {
	pool *Pool
}

// NewDedupStore creates a new DedupStore.
func NewDedupStore(pool *Pool) *DedupStore {
	return &DedupStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DedupStore = (*DedupStore)(nil)

// IsDelivered reports whether a marker exists.
func (s *DedupStore) IsDelivered(ctx context.Context, subscriberID int64, signature string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM delivered_alerts WHERE subscriber_id = $1 AND signature = $2
		)
	`, subscriberID, signature).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check delivered: %w", err)
	}
	return exists, nil
}

// MarkDelivered writes a marker. A concurrent or repeated write is a no-op.
func (s *DedupStore) MarkDelivered(ctx context.Context, subscriberID int64, signature string) error {
	if signature == "" {
		return storage.ErrInvalidInput
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO delivered_alerts (subscriber_id, signature)
		VALUES ($1, $2)
		ON CONFLICT (subscriber_id, signature) DO NOTHING
	`, subscriberID, signature)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	return nil
}

// PruneBefore removes markers delivered before t.
func (s *DedupStore) PruneBefore(ctx context.Context, t time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM delivered_alerts WHERE delivered_at < $1`, t)
	if err != nil {
		return 0, fmt.Errorf("prune delivered alerts: %w", err)
	}
	return tag.RowsAffected(), nil
}
