// Package models defines the domain value types shared across the guardrail
// service.
package models

import (
	"strconv"
	"time"
)

// Decision is the outcome of a single rate limit check. It is a plain value:
// once produced by a limiter it is never mutated, only read by the admission
// and annotation layers.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool `json:"allowed"`

	// Limit is the maximum number of requests permitted in the window, or
	// the bucket capacity for token buckets.
	Limit int `json:"limit"`

	// Remaining is the budget left after this request. Always within
	// [0, Limit]; a denied request reports 0.
	Remaining int `json:"remaining"`

	// ResetAt is the Unix timestamp (seconds) at which the current window
	// fully expires, or the bucket refills.
	ResetAt int64 `json:"reset_at"`

	// RetryAfter is the whole seconds a denied caller should wait before
	// retrying. Zero when Allowed is true.
	RetryAfter int `json:"retry_after"`
}

// HeaderValues returns the Decision rendered for the standard rate limit
// response headers: X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset.
func (d Decision) HeaderValues() (limit, remaining, reset string) {
	return strconv.Itoa(d.Limit), strconv.Itoa(d.Remaining), strconv.FormatInt(d.ResetAt, 10)
}

// RetryAfterDuration returns the retry delay as a duration for callers that
// schedule rather than render it.
func (d Decision) RetryAfterDuration() time.Duration {
	return time.Duration(d.RetryAfter) * time.Second
}
