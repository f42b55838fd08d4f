package memory

import (
	"context"
	"sync"

	"whale-alerts/internal/domain"
	"whale-alerts/internal/storage"
)

// TradeJournal is an in-memory implementation of storage.TradeJournal.
type TradeJournal struct {
	mu      sync.RWMutex
	entries []*domain.JournalEntry // append order
	ids     map[string]struct{}
}

// NewTradeJournal creates a new in-memory trade journal.
func NewTradeJournal() *TradeJournal {
	return &TradeJournal{ids: make(map[string]struct{})}
}

var _ storage.TradeJournal = (*TradeJournal)(nil)

// Append adds entries, ignoring IDs already present.
func (j *TradeJournal) Append(_ context.Context, entries []*domain.JournalEntry) error {
	for _, e := range entries {
		if e == nil || e.ID == "" {
			return storage.ErrInvalidInput
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	for _, e := range entries {
		if _, exists := j.ids[e.ID]; exists {
			continue
		}
		copy := *e
		j.entries = append(j.entries, &copy)
		j.ids[e.ID] = struct{}{}
	}
	return nil
}

// RecentByAddress returns up to limit entries for address, newest first.
func (j *TradeJournal) RecentByAddress(_ context.Context, address string, limit int) ([]*domain.JournalEntry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var result []*domain.JournalEntry
	for i := len(j.entries) - 1; i >= 0 && (limit <= 0 || len(result) < limit); i-- {
		if j.entries[i].Trade.TrackedAddress == address {
			copy := *j.entries[i]
			result = append(result, &copy)
		}
	}
	return result, nil
}

// Len returns the number of entries.
func (j *TradeJournal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries)
}
