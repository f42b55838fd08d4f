package solana

import (
	"github.com/shopspring/decimal"

	"whale-alerts/internal/domain"
)

// ToRawEvent converts a confirmed RPC transaction into the enhanced event shape
// consumed by the classifier. Native movements appear only as per-account
// balance changes; token balance differences become transfers to or from the
// owning wallet with an empty counterparty.
func ToRawEvent(tx *Transaction) *domain.RawTransactionEvent {
	if tx == nil {
		return nil
	}
	ev := &domain.RawTransactionEvent{
		Signature: tx.Signature,
		Timestamp: tx.BlockTime,
		Slot:      tx.Slot,
	}

	keys := tx.AllAccountKeys()
	if len(keys) > 0 {
		ev.FeePayer = keys[0]
	}
	if tx.Meta == nil {
		return ev
	}
	ev.TransactionError = tx.Meta.Err

	pre, post := tx.Meta.PreBalances, tx.Meta.PostBalances
	for i, key := range keys {
		if i >= len(pre) || i >= len(post) {
			break
		}
		ev.AccountData = append(ev.AccountData, domain.AccountData{
			Account:             key,
			NativeBalanceChange: post[i] - pre[i],
		})
	}

	ev.TokenTransfers = tokenBalanceTransfers(tx.Meta.PreTokenBalances, tx.Meta.PostTokenBalances)
	return ev
}

type ownerMint struct {
	owner string
	mint  string
}

// tokenBalanceTransfers diffs pre/post token balances per (owner, mint), in
// post-balance order followed by accounts that were closed.
func tokenBalanceTransfers(pre, post []TokenBalance) []domain.TokenTransfer {
	type acc struct {
		delta    decimal.Decimal
		decimals int
	}
	sums := make(map[ownerMint]*acc)
	var order []ownerMint

	add := func(tb TokenBalance, sign int64) {
		if tb.Owner == "" {
			return
		}
		k := ownerMint{owner: tb.Owner, mint: tb.Mint}
		a, ok := sums[k]
		if !ok {
			a = &acc{delta: decimal.Zero, decimals: tb.UITokenAmount.Decimals}
			sums[k] = a
			order = append(order, k)
		}
		amount, err := decimal.NewFromString(tb.UITokenAmount.Amount)
		if err != nil {
			return
		}
		a.delta = a.delta.Add(amount.Shift(int32(-tb.UITokenAmount.Decimals)).Mul(decimal.NewFromInt(sign)))
	}

	for _, tb := range post {
		add(tb, 1)
	}
	for _, tb := range pre {
		add(tb, -1)
	}

	var out []domain.TokenTransfer
	for _, k := range order {
		a := sums[k]
		if a.delta.IsZero() {
			continue
		}
		tr := domain.TokenTransfer{Mint: k.mint, Decimals: a.decimals, TokenAmount: a.delta.Abs()}
		if a.delta.IsPositive() {
			tr.ToUserAccount = k.owner
		} else {
			tr.FromUserAccount = k.owner
		}
		out = append(out, tr)
	}
	return out
}
