package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToInt64(t *testing.T) {
	t.Run("should pass numeric reply types through", func(t *testing.T) {
		assert.Equal(t, int64(42), ToInt64(int64(42), -1))
		assert.Equal(t, int64(7), ToInt64(7, -1))
		assert.Equal(t, int64(3), ToInt64(3.9, -1), "fractions truncate toward zero")
	})

	t.Run("should parse numeric strings", func(t *testing.T) {
		assert.Equal(t, int64(100), ToInt64("100", -1))
		assert.Equal(t, int64(2), ToInt64("2.75", -1), "float strings go through ParseFloat")
		assert.Equal(t, int64(-12), ToInt64("-12", 0))
	})

	t.Run("should fall back on anything else", func(t *testing.T) {
		assert.Equal(t, int64(-1), ToInt64("not a number", -1))
		assert.Equal(t, int64(-1), ToInt64(nil, -1))
		assert.Equal(t, int64(-1), ToInt64(true, -1))
		assert.Equal(t, int64(-1), ToInt64([]byte("42"), -1))
	})
}

func TestToInt(t *testing.T) {
	t.Run("should mirror ToInt64 at int width", func(t *testing.T) {
		assert.Equal(t, 5, ToInt(int64(5), 0))
		assert.Equal(t, 60, ToInt("60", 0))
		assert.Equal(t, 99, ToInt(struct{}{}, 99))
	})
}

func TestToFloat64(t *testing.T) {
	t.Run("should pass numeric reply types through", func(t *testing.T) {
		assert.InDelta(t, 2.5, ToFloat64(2.5, 0), 0.0001)
		assert.InDelta(t, 10.0, ToFloat64(int64(10), 0), 0.0001)
		assert.InDelta(t, 3.0, ToFloat64(3, 0), 0.0001)
	})

	t.Run("should parse float strings", func(t *testing.T) {
		assert.InDelta(t, 1.5, ToFloat64("1.5", 0), 0.0001)
		assert.InDelta(t, 1700000000.123, ToFloat64("1700000000.123", 0), 0.001)
	})

	t.Run("should fall back on anything else", func(t *testing.T) {
		assert.InDelta(t, 0.1, ToFloat64("refill", 0.1), 0.0001)
		assert.InDelta(t, 0.1, ToFloat64(nil, 0.1), 0.0001)
	})
}
