package random

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenLength(t *testing.T) {
	r := New()

	tok := r.Token(24)
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	require.NoError(t, err)
	assert.Len(t, raw, 24)

	assert.Empty(t, r.Token(0))
}

func TestTokensDiffer(t *testing.T) {
	r := New()
	seen := make(map[string]bool)
	for range 100 {
		tok := r.Token(16)
		assert.False(t, seen[tok])
		seen[tok] = true
	}
}
