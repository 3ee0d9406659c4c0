package idhash

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeSnapshotDigest computes a deterministic digest of a raw response
// body using SHA256. Formula: SHA256(endpoint|body).
// Returns hex-encoded hash (64 characters).
func ComputeSnapshotDigest(endpoint string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(endpoint))
	h.Write([]byte("|"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
