// Package fingerprint computes stable content fingerprints used for import
// deduplication and claim-code storage.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Hash serializes v as JSON and returns the lowercase hex SHA-256 digest.
// Deterministic for byte-identical serialization: encoding/json emits map
// keys in sorted order, so structurally equal payloads hash equal.
func Hash(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", eris.Wrap(err, "fingerprint: marshal payload")
	}
	return HashBytes(data), nil
}

// HashBytes returns the lowercase hex SHA-256 digest of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashString returns the lowercase hex SHA-256 digest of s.
func HashString(s string) string {
	return HashBytes([]byte(s))
}
