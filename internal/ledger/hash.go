package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// PayloadHash computes the SHA-256 of the payload's canonical JSON
// serialization. encoding/json writes map keys in sorted order, so the
// same payload always hashes to the same value regardless of insertion
// order.
func PayloadHash(payload map[string]any) (string, error) {
	canonical, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("serialize payload: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
