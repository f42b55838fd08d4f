package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"whale-alerts/internal/domain"
	"whale-alerts/internal/storage"
)

// SubscriberRegistry implements storage.SubscriberRegistry using PostgreSQL.
type SubscriberRegistry struct {
	pool *Pool
}

// NewSubscriberRegistry creates a new SubscriberRegistry.
func NewSubscriberRegistry(pool *Pool) *SubscriberRegistry {
	return &SubscriberRegistry{pool: pool}
}

// Compile-time interface check.
var _ storage.SubscriberRegistry = (*SubscriberRegistry)(nil)

// ListBindings returns every binding of address, oldest first.
func (r *SubscriberRegistry) ListBindings(ctx context.Context, address string) ([]domain.SubscriberBinding, error) {
	query := `
		SELECT subscriber_id, address, label, active, added_at
		FROM subscriber_bindings
		WHERE address = $1
		ORDER BY added_at ASC, subscriber_id ASC
	`

	rows, err := r.pool.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("list bindings: %w", err)
	}
	defer rows.Close()

	var result []domain.SubscriberBinding
	for rows.Next() {
		var b domain.SubscriberBinding
		if err := rows.Scan(&b.SubscriberID, &b.Address, &b.Label, &b.Active, &b.AddedAt); err != nil {
			return nil, fmt.Errorf("scan binding: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bindings: %w", err)
	}
	return result, nil
}

// GetSettings returns the settings of a subscriber. Returns ErrNotFound if unknown.
func (r *SubscriberRegistry) GetSettings(ctx context.Context, subscriberID int64) (*domain.SubscriberSettings, error) {
	query := `
		SELECT subscriber_id, name, alerts_enabled
		FROM subscribers
		WHERE subscriber_id = $1
	`

	var s domain.SubscriberSettings
	err := r.pool.QueryRow(ctx, query, subscriberID).Scan(&s.SubscriberID, &s.Name, &s.AlertsEnabled)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &s, nil
}

// ListTrackedAddresses returns addresses with at least one active binding.
func (r *SubscriberRegistry) ListTrackedAddresses(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT address
		FROM subscriber_bindings
		WHERE active
		ORDER BY address
	`)
	if err != nil {
		return nil, fmt.Errorf("list tracked addresses: %w", err)
	}

	addresses, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect tracked addresses: %w", err)
	}
	return addresses, nil
}

// AddBinding inserts a binding and, for a new subscriber, its default settings.
// Returns ErrDuplicateKey if (subscriber, address) exists.
func (r *SubscriberRegistry) AddBinding(ctx context.Context, b *domain.SubscriberBinding) error {
	if b == nil || b.Address == "" {
		return storage.ErrInvalidInput
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO subscribers (subscriber_id) VALUES ($1)
			ON CONFLICT (subscriber_id) DO NOTHING
		`, b.SubscriberID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO subscriber_bindings (subscriber_id, address, label, active, added_at)
			VALUES ($1, $2, $3, $4, COALESCE(NULLIF($5, 0), (EXTRACT(EPOCH FROM NOW()) * 1000)::BIGINT))
		`, b.SubscriberID, b.Address, b.Label, b.Active, b.AddedAt)
		return err
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("add binding: %w", err)
	}
	return nil
}

// SetAlertsEnabled switches alerts for a subscriber. Returns ErrNotFound if unknown.
func (r *SubscriberRegistry) SetAlertsEnabled(ctx context.Context, subscriberID int64, enabled bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE subscribers SET alerts_enabled = $2 WHERE subscriber_id = $1
	`, subscriberID, enabled)
	if err != nil {
		return fmt.Errorf("set alerts enabled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetActive switches a single binding. Returns ErrNotFound if it does not exist.
func (r *SubscriberRegistry) SetActive(ctx context.Context, subscriberID int64, address string, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE subscriber_bindings SET active = $3 WHERE subscriber_id = $1 AND address = $2
	`, subscriberID, address, active)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
