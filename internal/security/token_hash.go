package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashToken returns the hex SHA-256 of an opaque token key. Action tokens are
// stored and looked up by this value so a database dump does not reveal live keys.
func HashToken(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// TokenHashEqual performs constant-time comparison of the provided key's hash
// with the stored hash. Returns true only if they match.
func TokenHashEqual(providedKey, storedHash string) bool {
	providedHash := HashToken(providedKey)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
