package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Run("generates 64 character hex string", func(t *testing.T) {
		token, err := GenerateToken()
		require.NoError(t, err)
		assert.Len(t, token, 64)
	})

	t.Run("generates unique tokens", func(t *testing.T) {
		token1, _ := GenerateToken()
		token2, _ := GenerateToken()
		assert.NotEqual(t, token1, token2)
	})

	t.Run("generates valid hex", func(t *testing.T) {
		token, _ := GenerateToken()
		for _, c := range token {
			assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'))
		}
	})
}

func TestHashToken(t *testing.T) {
	t.Run("returns 64 character hex string", func(t *testing.T) {
		hash := HashToken("test-token")
		assert.Len(t, hash, 64)
	})

	t.Run("same input produces same hash", func(t *testing.T) {
		hash1 := HashToken("test-token")
		hash2 := HashToken("test-token")
		assert.Equal(t, hash1, hash2)
	})

	t.Run("different input produces different hash", func(t *testing.T) {
		hash1 := HashToken("token-1")
		hash2 := HashToken("token-2")
		assert.NotEqual(t, hash1, hash2)
	})
}

func TestHmacSHA256(t *testing.T) {
	t.Run("returns 64 character hex string", func(t *testing.T) {
		result := HmacSHA256("secret", "data")
		assert.Len(t, result, 64)
	})

	t.Run("same inputs produce same result", func(t *testing.T) {
		result1 := HmacSHA256("secret", "data")
		result2 := HmacSHA256("secret", "data")
		assert.Equal(t, result1, result2)
	})

	t.Run("different secrets produce different results", func(t *testing.T) {
		result1 := HmacSHA256("secret-1", "data")
		result2 := HmacSHA256("secret-2", "data")
		assert.NotEqual(t, result1, result2)
	})

	t.Run("different data produces different results", func(t *testing.T) {
		result1 := HmacSHA256("secret", "data-1")
		result2 := HmacSHA256("secret", "data-2")
		assert.NotEqual(t, result1, result2)
	})
}

func TestConstantTimeEqual(t *testing.T) {
	t.Run("equal strings return true", func(t *testing.T) {
		assert.True(t, ConstantTimeEqual("abc123", "abc123"))
	})

	t.Run("different strings return false", func(t *testing.T) {
		assert.False(t, ConstantTimeEqual("abc123", "abc124"))
	})

	t.Run("different lengths return false", func(t *testing.T) {
		assert.False(t, ConstantTimeEqual("abc", "abc123"))
	})

	t.Run("empty strings are equal", func(t *testing.T) {
		assert.True(t, ConstantTimeEqual("", ""))
	})
}
