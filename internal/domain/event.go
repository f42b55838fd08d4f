package domain

import "github.com/shopspring/decimal"

// RawTransactionEvent is one enhanced transaction as pushed by the Helius webhook.
// Field names follow the provider's JSON contract.
type RawTransactionEvent struct {
	Signature        string           `json:"signature"`
	Timestamp        int64            `json:"timestamp"` // unix seconds
	Slot             int64            `json:"slot"`
	FeePayer         string           `json:"feePayer"`
	Type             string           `json:"type"`   // provider hint, e.g. "SWAP"
	Source           string           `json:"source"` // provider hint, e.g. "PUMP_AMM"
	TransactionError any              `json:"transactionError"`
	TokenTransfers   []TokenTransfer  `json:"tokenTransfers"`
	NativeTransfers  []NativeTransfer `json:"nativeTransfers"`
	AccountData      []AccountData    `json:"accountData"`
}

// Failed reports whether the transaction was rejected on-chain.
func (e *RawTransactionEvent) Failed() bool {
	return e.TransactionError != nil
}

// TokenTransfer is an explicit SPL token movement. TokenAmount is already
// normalized by the mint's decimals.
type TokenTransfer struct {
	FromUserAccount  string          `json:"fromUserAccount"`
	ToUserAccount    string          `json:"toUserAccount"`
	FromTokenAccount string          `json:"fromTokenAccount"`
	ToTokenAccount   string          `json:"toTokenAccount"`
	Mint             string          `json:"mint"`
	TokenAmount      decimal.Decimal `json:"tokenAmount"`
	Decimals         int             `json:"decimals"`
	TokenStandard    string          `json:"tokenStandard"`
}

// NativeTransfer is an explicit SOL movement in lamports.
type NativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          int64  `json:"amount"`
}

// AccountData is the aggregate balance change of one account across the whole transaction.
type AccountData struct {
	Account             string               `json:"account"`
	NativeBalanceChange int64                `json:"nativeBalanceChange"` // lamports
	TokenBalanceChanges []TokenBalanceChange `json:"tokenBalanceChanges"`
}

// TokenBalanceChange is a per-token-account balance change inside AccountData.
type TokenBalanceChange struct {
	UserAccount    string         `json:"userAccount"`
	TokenAccount   string         `json:"tokenAccount"`
	Mint           string         `json:"mint"`
	RawTokenAmount RawTokenAmount `json:"rawTokenAmount"`
}

// RawTokenAmount is an integer amount in base units plus the mint decimals.
type RawTokenAmount struct {
	TokenAmount string `json:"tokenAmount"`
	Decimals    int    `json:"decimals"`
}

// AccountDataFor returns the AccountData entry for account, if present.
func (e *RawTransactionEvent) AccountDataFor(account string) (AccountData, bool) {
	for _, ad := range e.AccountData {
		if ad.Account == account {
			return ad, true
		}
	}
	return AccountData{}, false
}
