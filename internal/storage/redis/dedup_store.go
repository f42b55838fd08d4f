// Package redis implements dedup markers on Redis keys with a TTL.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"whale-alerts/internal/storage"
)

// DefaultKeyPrefix namespaces marker keys.
const DefaultKeyPrefix = "whale-alerts:delivered:"

// DedupStore implements storage.DedupStore. Each marker is a key written with
// SETNX and expired by Redis after the retention window.
type DedupStore struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
}

// NewDedupStore creates a DedupStore whose markers live for retention.
func NewDedupStore(client *redis.Client, prefix string, retention time.Duration) *DedupStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &DedupStore{client: client, prefix: prefix, retention: retention}
}

var _ storage.DedupStore = (*DedupStore)(nil)

func (s *DedupStore) key(subscriberID int64, signature string) string {
	return s.prefix + strconv.FormatInt(subscriberID, 10) + ":" + signature
}

// IsDelivered reports whether a marker exists.
func (s *DedupStore) IsDelivered(ctx context.Context, subscriberID int64, signature string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(subscriberID, signature)).Result()
	if err != nil {
		return false, fmt.Errorf("check delivered: %w", err)
	}
	return n > 0, nil
}

// MarkDelivered writes a marker unless one exists. An existing marker keeps its TTL.
func (s *DedupStore) MarkDelivered(ctx context.Context, subscriberID int64, signature string) error {
	if signature == "" {
		return storage.ErrInvalidInput
	}
	if err := s.client.SetNX(ctx, s.key(subscriberID, signature), 1, s.retention).Err(); err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	return nil
}

// PruneBefore is a no-op: markers expire on their own TTL.
func (s *DedupStore) PruneBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// Ping verifies the connection.
func (s *DedupStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}
