// internal/utils/crypto.go
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

func HashString(input string) string {
	hasher := sha256.New()
	hasher.Write([]byte(input))
	return hex.EncodeToString(hasher.Sum(nil))
}

// IdempotencyKey derives a stable key for an outbound provider call so a
// retried request is recognised as the same operation.
func IdempotencyKey(parts ...string) string {
	return HashString(strings.Join(parts, ":"))
}
