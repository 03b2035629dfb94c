package invites

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Unambiguous characters only: no 0/O or 1/l/I.
const shortCodeAlphabet = "23456789abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

// NewShortCode returns a random public code of length n.
func NewShortCode(n int) (string, error) {
	if n <= 0 {
		n = 10
	}
	max := big.NewInt(int64(len(shortCodeAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate short code: %w", err)
		}
		out[i] = shortCodeAlphabet[idx.Int64()]
	}
	return string(out), nil
}
