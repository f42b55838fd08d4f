// Package stub provides an in-memory Solana RPC for tests.
package stub

import (
	"context"
	"sync"

	"whale-alerts/internal/solana"
)

// RPCClient implements solana.RPCClient from maps. Unknown keys return nil, nil
// like a real node; Err, when set, is returned from every call.
type RPCClient struct {
	mu           sync.Mutex
	Transactions map[string]*solana.Transaction
	Accounts     map[string]*solana.AccountInfo
	Err          error
	Calls        []string
}

var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions: make(map[string]*solana.Transaction),
		Accounts:     make(map[string]*solana.AccountInfo),
	}
}

// GetTransaction implements solana.RPCClient.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, "getTransaction:"+signature)
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Transactions[signature], nil
}

// GetAccountInfo implements solana.RPCClient.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, "getAccountInfo:"+pubkey)
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Accounts[pubkey], nil
}
