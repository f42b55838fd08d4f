package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeAlertID computes a deterministic alert_id using SHA256.
// Formula: SHA256(subscriber_id|tx_signature)
// Returns hex-encoded hash (64 characters).
func ComputeAlertID(subscriberID int64, txSignature string) string {
	data := fmt.Sprintf("%d|%s", subscriberID, txSignature)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
