package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"sentiment-lab/internal/domain"
)

// ComputeSignalID computes a deterministic signal_id using SHA256.
// Formula: SHA256(asset|direction|timestamp_ms)
// Returns hex-encoded hash (64 characters).
func ComputeSignalID(asset string, direction domain.Direction, timestampMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", asset, string(direction), timestampMs)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
