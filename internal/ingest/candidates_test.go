package ingest

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"whale-alerts/internal/domain"
)

func TestCandidateAddresses_Order(t *testing.T) {
	ev := &domain.RawTransactionEvent{
		FeePayer: "payer",
		AccountData: []domain.AccountData{
			{Account: "payer", NativeBalanceChange: -5000},
			{Account: "still", NativeBalanceChange: 0},
			{Account: "moved", NativeBalanceChange: 2_000_000},
		},
		NativeTransfers: []domain.NativeTransfer{
			{FromUserAccount: "sender", ToUserAccount: "ignored", Amount: 1},
		},
		TokenTransfers: []domain.TokenTransfer{
			{FromUserAccount: "", ToUserAccount: "receiver", Mint: "m", TokenAmount: decimal.NewFromInt(1)},
			{FromUserAccount: "moved", ToUserAccount: "payer", Mint: "m", TokenAmount: decimal.NewFromInt(1)},
		},
	}

	assert.Equal(t, []string{"payer", "moved", "sender", "receiver"}, CandidateAddresses(ev))
}

func TestCandidateAddresses_Nil(t *testing.T) {
	assert.Nil(t, CandidateAddresses(nil))
	assert.Empty(t, CandidateAddresses(&domain.RawTransactionEvent{}))
}
