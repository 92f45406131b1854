// Package logger provides structured logging for the guardrail service.
// It defines a small Field-based interface so packages depend on behaviour,
// not on a concrete logging backend.
package logger

import (
	"context"
	"strings"
	"time"
)

// ================================================================================
// Logger Interface
// ================================================================================

// Logger defines the interface for structured logging.
type Logger interface {
	// Debug logs a debug message
	Debug(ctx context.Context, message string, fields ...Field)

	// Info logs an informational message
	Info(ctx context.Context, message string, fields ...Field)

	// Warn logs a warning message
	Warn(ctx context.Context, message string, fields ...Field)

	// Error logs an error message
	Error(ctx context.Context, message string, err error, fields ...Field)

	// Fatal logs a fatal message and exits the application
	Fatal(ctx context.Context, message string, err error, fields ...Field)

	// WithFields creates a new logger with additional base fields
	WithFields(fields ...Field) Logger

	// WithComponent creates a new logger for a specific component
	WithComponent(component string) Logger
}

// ================================================================================
// Field Type for Structured Logging
// ================================================================================

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

// F is a shorthand constructor for Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// String creates a string field.
func String(key string, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an integer field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 creates an int64 field.
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Float64 creates a float64 field.
func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a boolean field.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Error creates an error field.
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Time creates a time field.
func Time(key string, value time.Time) Field {
	return Field{Key: key, Value: value.Format(time.RFC3339)}
}

// Any creates a field with any type.
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// ================================================================================
// Sensitive Value Sanitization
// ================================================================================

// sensitiveKeys are field names whose values must never appear in logs.
var sensitiveKeys = []string{
	"password",
	"secret",
	"token",
	"credential",
	"api_key",
	"authorization",
	"private_key",
	"client_secret",
	"refresh_token",
	"access_token",
}

// Sanitize masks the value when the field key looks sensitive. Backends call
// it on every field before encoding.
func Sanitize(key string, value interface{}) interface{} {
	lower := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lower, sensitive) {
			if s, ok := value.(string); ok {
				return MaskString(s)
			}
			return "***"
		}
	}
	return value
}

// MaskString hides the middle of a secret, keeping just enough of both ends
// to correlate log lines.
func MaskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
