package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashCredential(t *testing.T) {
	t.Run("should produce the sha256 hex digest", func(t *testing.T) {
		assert.Equal(t,
			"ba0e7040a7a6020868725a1296731f7fb6dcb993bedc1d2e73aaa372a17f5424",
			HashCredential("samvit-access-token"))
		assert.Equal(t,
			"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
			HashCredential(""))
	})

	t.Run("should be stable and collision-averse", func(t *testing.T) {
		assert.Equal(t, HashCredential("a"), HashCredential("a"))
		assert.NotEqual(t, HashCredential("a"), HashCredential("b"))
		assert.Len(t, HashCredential("anything"), 64)
	})
}

func TestShortHash(t *testing.T) {
	t.Run("should return a fixed-length digest prefix", func(t *testing.T) {
		full := HashCredential("cache:employee:list:tenant=acme&page=4")
		short := ShortHash("cache:employee:list:tenant=acme&page=4", 16)

		assert.Len(t, short, 16)
		assert.True(t, strings.HasPrefix(full, short))
	})

	t.Run("should return the full digest for out of range lengths", func(t *testing.T) {
		full := HashCredential("key")
		assert.Equal(t, full, ShortHash("key", 0))
		assert.Equal(t, full, ShortHash("key", -5))
		assert.Equal(t, full, ShortHash("key", 64))
		assert.Equal(t, full, ShortHash("key", 500))
	})
}

func TestMaskToken(t *testing.T) {
	t.Run("should keep only a correlation prefix", func(t *testing.T) {
		assert.Equal(t, "eyJhbGci...", MaskToken("eyJhbGciOiJIUzI1NiJ9.payload.signature"))
	})

	t.Run("should fully hide short tokens", func(t *testing.T) {
		assert.Equal(t, "***", MaskToken("abc"))
		assert.Equal(t, "***", MaskToken("123456789012"))
		assert.Equal(t, "***", MaskToken(""))
	})
}
