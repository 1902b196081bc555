// Package hash implements the exact-fingerprint and near-duplicate
// (SimHash) primitives the deduplicator builds on (spec §4.2).
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NormalizeMessage lowercases, collapses interior whitespace runs to a
// single space, and trims leading/trailing whitespace (§3).
func NormalizeMessage(message string) string {
	fields := strings.Fields(strings.ToLower(message))
	return strings.Join(fields, " ")
}

// Fingerprint computes the 64-char lowercase hex SHA-256 fingerprint over
// "user_id|event_type|normalized_message|source" (§3). It satisfies P4/P5:
// the result is always 64 lowercase hex characters, and is invariant under
// case and whitespace changes to message alone.
func Fingerprint(userID, eventType, message, source string) string {
	normalized := NormalizeMessage(message)
	data := userID + "|" + eventType + "|" + normalized + "|" + source
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
