// Package utils provides small shared helpers for the guardrail service:
// type coercion for store replies, credential hashing and display masking.
package utils

import (
	"strconv"
)

// ================================================================================
// Store Reply Coercion
// ================================================================================

// ToInt64 coerces a value returned by a Redis script into an int64. Script
// replies surface numbers as int64 but may carry strings for values that went
// through a hash field. Unrecognised values yield the fallback.
func ToInt64(v interface{}, fallback int64) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	case string:
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return int64(parsed)
		}
	}
	return fallback
}

// ToInt coerces a script reply value into an int.
func ToInt(v interface{}, fallback int) int {
	return int(ToInt64(v, int64(fallback)))
}

// ToFloat64 coerces a script reply value into a float64.
func ToFloat64(v interface{}, fallback float64) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case int:
		return float64(val)
	case string:
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
