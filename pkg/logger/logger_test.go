package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFieldConstructors(t *testing.T) {
	t.Run("should build typed fields", func(t *testing.T) {
		assert.Equal(t, Field{Key: "k", Value: "v"}, F("k", "v"))
		assert.Equal(t, Field{Key: "tenant", Value: "acme"}, String("tenant", "acme"))
		assert.Equal(t, Field{Key: "limit", Value: 100}, Int("limit", 100))
		assert.Equal(t, Field{Key: "issued_at", Value: int64(1700000000)}, Int64("issued_at", 1700000000))
		assert.Equal(t, Field{Key: "rate", Value: 2.5}, Float64("rate", 2.5))
		assert.Equal(t, Field{Key: "allowed", Value: true}, Bool("allowed", true))
		assert.Equal(t, Field{Key: "raw", Value: []int{1, 2}}, Any("raw", []int{1, 2}))
	})

	t.Run("should render durations and times as strings", func(t *testing.T) {
		assert.Equal(t, Field{Key: "window", Value: "1m30s"}, Duration("window", 90*time.Second))

		ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		assert.Equal(t, Field{Key: "at", Value: "2025-06-01T12:00:00Z"}, Time("at", ts))
	})

	t.Run("should stringify errors and tolerate nil", func(t *testing.T) {
		assert.Equal(t, Field{Key: "error", Value: "dial refused"}, Error(errors.New("dial refused")))
		assert.Equal(t, Field{Key: "error", Value: nil}, Error(nil))
	})
}

func TestSanitize(t *testing.T) {
	t.Run("should mask values under sensitive keys", func(t *testing.T) {
		assert.Equal(t, "hunt...ter2", Sanitize("password", "hunter2hunter2"))
		assert.Equal(t, "***", Sanitize("api_key", "short"))
		assert.Equal(t, "***", Sanitize("client_secret", 12345), "non-strings are masked wholesale")
	})

	t.Run("should match sensitive keys case-insensitively and by substring", func(t *testing.T) {
		assert.Equal(t, "Bear...oken", Sanitize("Authorization", "Bearer some.jwt.token"))
		assert.Equal(t, "eyJh...sig1", Sanitize("access_token_hint", "eyJhbGciOi.payload.sig1"))
	})

	t.Run("should pass harmless fields through untouched", func(t *testing.T) {
		assert.Equal(t, "u-117", Sanitize("user_id", "u-117"))
		assert.Equal(t, 429, Sanitize("status", 429))
	})
}

func TestMaskString(t *testing.T) {
	t.Run("should keep only the ends of long secrets", func(t *testing.T) {
		assert.Equal(t, "supe...alue", MaskString("supersecretvalue"))
		assert.Equal(t, "1234...6789", MaskString("123456789"))
	})

	t.Run("should fully hide short secrets", func(t *testing.T) {
		assert.Equal(t, "***", MaskString("12345678"))
		assert.Equal(t, "***", MaskString("pw"))
		assert.Equal(t, "***", MaskString(""))
	})
}

func TestNoopLogger(t *testing.T) {
	t.Run("should swallow everything without panicking", func(t *testing.T) {
		log := NewNoopLogger()
		ctx := context.Background()

		log.Debug(ctx, "debug", F("k", "v"))
		log.Info(ctx, "info")
		log.Warn(ctx, "warn")
		log.Error(ctx, "error", errors.New("boom"))
		log.Error(ctx, "error without cause", nil)

		assert.NotNil(t, log.WithFields(String("component", "test")))
		assert.NotNil(t, log.WithComponent("test"))
	})
}
