package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"whale-alerts/internal/domain"
	"whale-alerts/internal/storage"
)

type bindingKey struct {
	subscriberID int64
	address      string
}

// SubscriberRegistry is an in-memory implementation of storage.SubscriberRegistry.
type SubscriberRegistry struct {
	mu        sync.RWMutex
	bindings  map[bindingKey]*domain.SubscriberBinding
	byAddress map[string][]bindingKey // insertion order
	settings  map[int64]*domain.SubscriberSettings
}

// NewSubscriberRegistry creates a new in-memory registry.
func NewSubscriberRegistry() *SubscriberRegistry {
	return &SubscriberRegistry{
		bindings:  make(map[bindingKey]*domain.SubscriberBinding),
		byAddress: make(map[string][]bindingKey),
		settings:  make(map[int64]*domain.SubscriberSettings),
	}
}

var _ storage.SubscriberRegistry = (*SubscriberRegistry)(nil)

// ListBindings returns every binding of address in insertion order.
func (r *SubscriberRegistry) ListBindings(_ context.Context, address string) ([]domain.SubscriberBinding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := r.byAddress[address]
	result := make([]domain.SubscriberBinding, 0, len(keys))
	for _, k := range keys {
		result = append(result, *r.bindings[k])
	}
	return result, nil
}

// GetSettings returns the settings of a subscriber. Returns ErrNotFound if unknown.
func (r *SubscriberRegistry) GetSettings(_ context.Context, subscriberID int64) (*domain.SubscriberSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.settings[subscriberID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *s
	return &copy, nil
}

// ListTrackedAddresses returns addresses with at least one active binding, sorted.
func (r *SubscriberRegistry) ListTrackedAddresses(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []string
	for address, keys := range r.byAddress {
		for _, k := range keys {
			if r.bindings[k].Active {
				result = append(result, address)
				break
			}
		}
	}
	sort.Strings(result)
	return result, nil
}

// AddBinding inserts a binding. Returns ErrDuplicateKey if (subscriber, address) exists.
func (r *SubscriberRegistry) AddBinding(_ context.Context, b *domain.SubscriberBinding) error {
	if b == nil || b.Address == "" {
		return storage.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := bindingKey{subscriberID: b.SubscriberID, address: b.Address}
	if _, exists := r.bindings[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *b
	if copy.AddedAt == 0 {
		copy.AddedAt = time.Now().UnixMilli()
	}
	r.bindings[key] = &copy
	r.byAddress[b.Address] = append(r.byAddress[b.Address], key)

	if _, ok := r.settings[b.SubscriberID]; !ok {
		r.settings[b.SubscriberID] = &domain.SubscriberSettings{SubscriberID: b.SubscriberID, AlertsEnabled: true}
	}
	return nil
}

// SetAlertsEnabled switches alerts for a subscriber. Returns ErrNotFound if unknown.
func (r *SubscriberRegistry) SetAlertsEnabled(_ context.Context, subscriberID int64, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.settings[subscriberID]
	if !ok {
		return storage.ErrNotFound
	}
	s.AlertsEnabled = enabled
	return nil
}

// SetActive switches a single binding. Returns ErrNotFound if it does not exist.
func (r *SubscriberRegistry) SetActive(_ context.Context, subscriberID int64, address string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bindings[bindingKey{subscriberID: subscriberID, address: address}]
	if !ok {
		return storage.ErrNotFound
	}
	b.Active = active
	return nil
}
