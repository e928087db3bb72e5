package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken returns the hex-encoded sha256 digest of a plaintext API key
// token. Only the digest is ever persisted.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
