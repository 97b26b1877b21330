package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// TokenBytes is the entropy, in bytes, of every generated token key (256 bits).
const TokenBytes = 32

// minSecretBytes is the floor below which GenerateSecret refuses to produce keys.
const minSecretBytes = 20

// ErrSecretTooShort is returned when fewer than 20 bytes of entropy are requested.
var ErrSecretTooShort = errors.New("secret length below 20 bytes")

// SecretFunc produces a fresh opaque token key. Stores take one so tests can inject
// deterministic keys.
type SecretFunc func() (string, error)

// GenerateSecret returns n bytes from crypto/rand encoded as lowercase hex (2n characters).
func GenerateSecret(n int) (string, error) {
	if n < minSecretBytes {
		return "", ErrSecretTooShort
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read entropy: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewTokenKey returns a TokenBytes-long key. It matches SecretFunc.
func NewTokenKey() (string, error) {
	return GenerateSecret(TokenBytes)
}

// MustNewTokenKey is NewTokenKey for callers that treat an exhausted entropy source as fatal.
func MustNewTokenKey() string {
	k, err := NewTokenKey()
	if err != nil {
		panic("security: entropy source failed: " + err.Error())
	}
	return k
}
