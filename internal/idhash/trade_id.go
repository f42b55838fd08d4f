package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(tx_signature|tracked_address|mint|direction)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(txSignature, trackedAddress, mint, direction string) string {
	data := fmt.Sprintf("%s|%s|%s|%s",
		txSignature,
		trackedAddress,
		mint,
		direction,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
