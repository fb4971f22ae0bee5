package random

import (
	"crypto/rand"
	"encoding/base64"
)

// Random provides secret generation that can be mocked for testing
type Random interface {
	// Token returns nBytes of crypto randomness encoded as URL-safe base64
	Token(nBytes int) string
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Token returns nBytes of crypto randomness encoded as URL-safe base64.
// Team secrets, session tokens and user ids all come from here.
func (r *CryptoRandom) Token(nBytes int) string {
	if nBytes <= 0 {
		return ""
	}
	b := make([]byte, nBytes)
	// crypto/rand.Read never returns an error on supported platforms
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
