package memory

import (
	"context"
	"sync"
	"time"

	"whale-alerts/internal/storage"
)

type dedupKey struct {
	subscriberID int64
	signature    string
}

// DedupStore is an in-memory implementation of storage.DedupStore.
type DedupStore struct {
	mu      sync.RWMutex
	markers map[dedupKey]time.Time // write time
	now     func() time.Time
}

// NewDedupStore creates a new in-memory dedup store.
func NewDedupStore() *DedupStore {
	return NewDedupStoreWithClock(time.Now)
}

// NewDedupStoreWithClock creates a dedup store stamping markers with now.
func NewDedupStoreWithClock(now func() time.Time) *DedupStore {
	return &DedupStore{markers: make(map[dedupKey]time.Time), now: now}
}

var _ storage.DedupStore = (*DedupStore)(nil)

// IsDelivered reports whether a marker exists.
func (s *DedupStore) IsDelivered(_ context.Context, subscriberID int64, signature string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.markers[dedupKey{subscriberID, signature}]
	return ok, nil
}

// MarkDelivered writes a marker. An existing marker keeps its original time.
func (s *DedupStore) MarkDelivered(_ context.Context, subscriberID int64, signature string) error {
	if signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := dedupKey{subscriberID, signature}
	if _, ok := s.markers[key]; !ok {
		s.markers[key] = s.now()
	}
	return nil
}

// PruneBefore removes markers written before t.
func (s *DedupStore) PruneBefore(_ context.Context, t time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k, at := range s.markers {
		if at.Before(t) {
			delete(s.markers, k)
			n++
		}
	}
	return n, nil
}

// Len returns the number of markers.
func (s *DedupStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.markers)
}
