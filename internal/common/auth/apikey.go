// Package auth handles the API keys groups use to call the ATS-facing API.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const keyPrefix = "isk_"

// HashKey returns the hex SHA-256 of key with surrounding whitespace removed.
// Only hashes are stored.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}

// GenerateKey returns a new random API key and its hash.
func GenerateKey() (key, hash string, err error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate api key: %w", err)
	}
	key = keyPrefix + hex.EncodeToString(buf)
	return key, HashKey(key), nil
}
