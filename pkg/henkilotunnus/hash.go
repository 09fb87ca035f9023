package henkilotunnus

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashCode returns a short, stable digest of an identity code for use as a
// cache key, trace attribute, or log correlation field. The digest is the
// first 8 bytes of the SHA-256 sum in hex; the raw code is never
// recoverable from it. Hashing does not validate the input.
func HashCode(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:8])
}
