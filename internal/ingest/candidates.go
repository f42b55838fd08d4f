// Package ingest turns pushed or subscribed transactions into pipeline work.
package ingest

import "whale-alerts/internal/domain"

// CandidateAddresses lists every account in ev that could be a tracked
// whale, most likely first: the fee payer, accounts whose SOL balance moved,
// native senders, then token senders and receivers. Duplicates and empty
// strings are dropped.
func CandidateAddresses(ev *domain.RawTransactionEvent) []string {
	if ev == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	add := func(addr string) {
		if addr == "" {
			return
		}
		if _, ok := seen[addr]; ok {
			return
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}

	add(ev.FeePayer)
	for _, ad := range ev.AccountData {
		if ad.NativeBalanceChange != 0 {
			add(ad.Account)
		}
	}
	for _, nt := range ev.NativeTransfers {
		add(nt.FromUserAccount)
	}
	for _, tt := range ev.TokenTransfers {
		add(tt.FromUserAccount)
		add(tt.ToUserAccount)
	}
	return out
}
