package redis

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/samvit-hq/guardrail/pkg/errors"
)

// ClassifyError maps a raw store error onto one of the four store failure
// classes: script_missing, store_timeout, store_unreachable or store_error.
// Every component that degrades on store failure routes its errors through
// here so the failure taxonomy lives in exactly one place.
//
// redis.Nil is a lookup miss, not a failure; callers must handle it before
// classifying.
func ClassifyError(err error) apperrors.AppError {
	switch {
	case IsScriptMissing(err):
		return apperrors.ErrScriptMissing(err)
	case isTimeout(err):
		return apperrors.ErrStoreTimeout(err)
	case isUnreachable(err):
		return apperrors.ErrStoreUnreachable(err)
	default:
		return apperrors.ErrStoreInternal(err)
	}
}

// IsScriptMissing reports whether the store rejected an EVALSHA because the
// script fell out of its cache. The caller is expected to reload the script
// and retry once.
func IsScriptMissing(err error) bool {
	return err != nil && redis.HasErrorPrefix(err, "NOSCRIPT")
}

// isTimeout covers deadline expiry on either side: a context that ran out or
// a socket that stopped answering in time.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isUnreachable covers connections the server refused, dropped or that were
// closed locally.
func isUnreachable(err error) bool {
	if errors.Is(err, redis.ErrClosed) || errors.Is(err, io.EOF) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
