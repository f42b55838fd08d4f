package storage

import (
	"context"
	"time"

	"whale-alerts/internal/domain"
)

// SubscriberRegistry provides access to subscriber bindings and settings.
type SubscriberRegistry interface {
	// ListBindings returns every binding of address, active or not.
	ListBindings(ctx context.Context, address string) ([]domain.SubscriberBinding, error)

	// GetSettings returns the settings of a subscriber. Returns ErrNotFound if unknown.
	GetSettings(ctx context.Context, subscriberID int64) (*domain.SubscriberSettings, error)

	// ListTrackedAddresses returns addresses with at least one active binding.
	ListTrackedAddresses(ctx context.Context) ([]string, error)

	// AddBinding inserts a binding, creating default settings for a new subscriber.
	// Returns ErrDuplicateKey if (subscriber, address) exists.
	AddBinding(ctx context.Context, b *domain.SubscriberBinding) error

	// SetAlertsEnabled switches alerts for a subscriber. Returns ErrNotFound if unknown.
	SetAlertsEnabled(ctx context.Context, subscriberID int64, enabled bool) error

	// SetActive switches a single binding. Returns ErrNotFound if it does not exist.
	SetActive(ctx context.Context, subscriberID int64, address string, active bool) error
}

// DedupStore records which (subscriber, signature) pairs were delivered.
type DedupStore interface {
	// IsDelivered reports whether a marker exists.
	IsDelivered(ctx context.Context, subscriberID int64, signature string) (bool, error)

	// MarkDelivered writes a marker. Writing an existing marker is not an error.
	MarkDelivered(ctx context.Context, subscriberID int64, signature string) error

	// PruneBefore removes markers written before t and returns how many were removed.
	PruneBefore(ctx context.Context, t time.Time) (int64, error)
}

// TradeJournal is an append-only log of accepted trades.
type TradeJournal interface {
	// Append adds entries. Entries with an existing ID are ignored.
	Append(ctx context.Context, entries []*domain.JournalEntry) error

	// RecentByAddress returns up to limit entries for address, newest first.
	RecentByAddress(ctx context.Context, address string, limit int) ([]*domain.JournalEntry, error)
}
