package domain

import "github.com/shopspring/decimal"

// TokenDelta is the net movement of one generic token mint for a tracked address.
type TokenDelta struct {
	Mint     string
	Amount   decimal.Decimal // signed: positive = received
	Decimals int
}

// DeltaSet is the reconciled per-asset-class view of one transaction for one address.
// Tokens keeps first-seen order; classification tie-breaks depend on it.
type DeltaSet struct {
	Signature      string
	Timestamp      int64
	TrackedAddress string
	Native         decimal.Decimal
	NativeSource   string // which strategy produced Native
	Stable         decimal.Decimal
	Tokens         []TokenDelta
}

// Received returns token deltas with a positive amount, in order.
func (d *DeltaSet) Received() []TokenDelta {
	var out []TokenDelta
	for _, t := range d.Tokens {
		if t.Amount.IsPositive() {
			out = append(out, t)
		}
	}
	return out
}

// Sent returns token deltas with a negative amount, in order.
func (d *DeltaSet) Sent() []TokenDelta {
	var out []TokenDelta
	for _, t := range d.Tokens {
		if t.Amount.IsNegative() {
			out = append(out, t)
		}
	}
	return out
}
