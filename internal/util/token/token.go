// Package token generates the per-tenant gateway auth tokens.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// MinBytes is the minimum entropy for a gateway auth token (256 bits).
const MinBytes = 32

// New returns a hex-encoded random token with n bytes of entropy.
// n below MinBytes is rejected.
func New(n int) (string, error) {
	if n < MinBytes {
		return "", fmt.Errorf("token entropy %d below minimum %d bytes", n, MinBytes)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
