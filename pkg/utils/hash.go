package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// ================================================================================
// Credential Hashing
// ================================================================================

// HashCredential returns the hex-encoded SHA-256 digest of a credential.
// Revocation entries are keyed by this digest so raw tokens never land in the
// store.
func HashCredential(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}

// ShortHash returns the first n characters of the hex-encoded SHA-256 digest
// of s. Used to compress oversized cache keys into a fixed-length form.
func ShortHash(s string, n int) string {
	digest := HashCredential(s)
	if n <= 0 || n >= len(digest) {
		return digest
	}
	return digest[:n]
}

// MaskToken shortens a credential for log output, keeping just enough to
// correlate entries.
func MaskToken(token string) string {
	if len(token) <= 12 {
		return "***"
	}
	return token[:8] + "..."
}
