package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenMetadata is display metadata for a mint.
type TokenMetadata struct {
	Mint         string
	Symbol       string
	Name         string
	MarketCapUSD *decimal.Decimal // nullable
	CreatedAt    *time.Time       // pool or coin creation time (nullable)
	Source       string           // which source answered; "fallback" when none did
	FetchedAt    time.Time
}

// Age returns time since creation, or nil when unknown.
func (m *TokenMetadata) Age(now time.Time) *time.Duration {
	if m.CreatedAt == nil || m.CreatedAt.IsZero() {
		return nil
	}
	age := now.Sub(*m.CreatedAt)
	if age < 0 {
		age = 0
	}
	return &age
}
