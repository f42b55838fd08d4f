package solana

import "context"

// RPCClient is the subset of Solana JSON-RPC the service uses.
type RPCClient interface {
	// GetTransaction retrieves a confirmed transaction with balance metadata.
	// Returns nil, nil when the transaction is unknown.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetAccountInfo retrieves raw account data. Returns nil, nil when the
	// account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)
}

// Transaction represents a confirmed Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains balance and status metadata.
type TransactionMeta struct {
	Err               interface{}
	Fee               int64
	PreBalances       []int64 // lamports, indexed like AllAccountKeys
	PostBalances      []int64
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
	LogMessages       []string
	LoadedWritable    []string // address lookup table keys (v0)
	LoadedReadonly    []string
}

// TransactionMessage contains the static account keys.
type TransactionMessage struct {
	AccountKeys []string
}

// AllAccountKeys returns static keys followed by lookup-table keys, matching
// the index space of the balance arrays.
func (tx *Transaction) AllAccountKeys() []string {
	var keys []string
	if tx.Message != nil {
		keys = append(keys, tx.Message.AccountKeys...)
	}
	if tx.Meta != nil {
		keys = append(keys, tx.Meta.LoadedWritable...)
		keys = append(keys, tx.Meta.LoadedReadonly...)
	}
	return keys
}
