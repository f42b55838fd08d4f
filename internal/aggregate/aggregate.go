// Package aggregate reconciles the overlapping balance signals of an enhanced
// transaction into one net delta per asset class for a tracked address.
package aggregate

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"whale-alerts/internal/domain"
	"whale-alerts/internal/fallback"
)

// Native strategy names, reported in DeltaSet.NativeSource.
const (
	NativeFromTransfers   = "transfers"
	NativeFromAccountData = "account_data"
)

var errNoAccountData = errors.New("no account data for address")

// Aggregate builds the DeltaSet of ev as seen by address. It never fails;
// missing lists contribute nothing.
func Aggregate(ev *domain.RawTransactionEvent, address string) domain.DeltaSet {
	set := domain.DeltaSet{
		TrackedAddress: address,
		Native:         decimal.Zero,
		Stable:         decimal.Zero,
		NativeSource:   fallback.DefaultName,
	}
	if ev == nil || address == "" {
		return set
	}
	set.Signature = ev.Signature
	set.Timestamp = ev.Timestamp

	explicitNative := decimal.Zero
	index := make(map[string]int)

	for _, tr := range ev.TokenTransfers {
		delta, ok := signedDelta(tr.FromUserAccount, tr.ToUserAccount, address, tr.TokenAmount)
		if !ok {
			continue
		}
		switch domain.ClassifyMint(tr.Mint) {
		case domain.AssetNative:
			explicitNative = explicitNative.Add(delta)
		case domain.AssetStable:
			set.Stable = set.Stable.Add(delta)
		default:
			if i, seen := index[tr.Mint]; seen {
				set.Tokens[i].Amount = set.Tokens[i].Amount.Add(delta)
				continue
			}
			index[tr.Mint] = len(set.Tokens)
			set.Tokens = append(set.Tokens, domain.TokenDelta{
				Mint:     tr.Mint,
				Amount:   delta,
				Decimals: tr.Decimals,
			})
		}
	}

	for _, nt := range ev.NativeTransfers {
		delta, ok := signedDelta(nt.FromUserAccount, nt.ToUserAccount, address, domain.LamportsToSOL(nt.Amount))
		if ok {
			explicitNative = explicitNative.Add(delta)
		}
	}

	set.Native, set.NativeSource = nativeChain(ev, address, explicitNative).Resolve(context.Background())
	return set
}

// nativeChain orders the native-delta strategies. Explicit transfers win when
// they clear dust; otherwise the account aggregate is consulted, and fee-only
// noise on both sides nets to zero.
func nativeChain(ev *domain.RawTransactionEvent, address string, explicit decimal.Decimal) fallback.Chain[decimal.Decimal] {
	return fallback.Chain[decimal.Decimal]{
		Steps: []fallback.Step[decimal.Decimal]{
			fallback.Value(NativeFromTransfers, explicit),
			{
				Name: NativeFromAccountData,
				Run: func(context.Context) (decimal.Decimal, error) {
					ad, ok := ev.AccountDataFor(address)
					if !ok {
						return decimal.Zero, errNoAccountData
					}
					return domain.LamportsToSOL(ad.NativeBalanceChange), nil
				},
			},
		},
		Valid:   ClearsDust,
		Default: decimal.Zero,
	}
}

// ClearsDust reports whether |v| reaches the dust threshold.
func ClearsDust(v decimal.Decimal) bool {
	return v.Abs().GreaterThanOrEqual(domain.DustThreshold)
}

// signedDelta applies the receiver-positive, sender-negative convention.
// Self transfers and unrelated entries are skipped.
func signedDelta(from, to, address string, amount decimal.Decimal) (decimal.Decimal, bool) {
	switch {
	case to == address && from != address:
		return amount, true
	case from == address && to != address:
		return amount.Neg(), true
	default:
		return decimal.Zero, false
	}
}
