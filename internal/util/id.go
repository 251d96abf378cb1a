// Package util holds small helpers shared across the API.
package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a collision-resistant identifier: 16 random bytes,
// hex-encoded, with an optional type prefix.
func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}
