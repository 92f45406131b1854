package errors_test

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvit-hq/guardrail/pkg/constants"
	"github.com/samvit-hq/guardrail/pkg/errors"
)

func TestErrorConstructors(t *testing.T) {
	t.Run("should map store failures to 503", func(t *testing.T) {
		cause := stderrors.New("connection refused")

		for _, err := range []errors.AppError{
			errors.ErrStoreUnreachable(cause),
			errors.ErrStoreTimeout(cause),
			errors.ErrScriptMissing(cause),
			errors.ErrStoreInternal(cause),
		} {
			assert.Equal(t, http.StatusServiceUnavailable, err.HTTPStatus())
			assert.True(t, errors.IsStoreFailure(err.Code()))
			assert.ErrorIs(t, err, cause)
			assert.NotEmpty(t, err.Description())
		}
	})

	t.Run("should carry scope and limit on rate limit errors", func(t *testing.T) {
		err := errors.ErrRateLimitExceeded("/api/v1/payslips", 100)

		assert.Equal(t, constants.ErrCodeRateLimited, err.Code())
		assert.Equal(t, http.StatusTooManyRequests, err.HTTPStatus())
		assert.Equal(t, "/api/v1/payslips", err.Metadata()["scope"])
		assert.Equal(t, 100, err.Metadata()["limit"])
	})

	t.Run("should map auth failures to 401", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, errors.ErrUnauthorized("missing bearer token").HTTPStatus())

		revoked := errors.ErrTokenRevoked()
		assert.Equal(t, constants.ErrCodeTokenRevoked, revoked.Code())
		assert.Equal(t, http.StatusUnauthorized, revoked.HTTPStatus())
	})

	t.Run("should name the offending parameter and field", func(t *testing.T) {
		param := errors.ErrMissingRequiredParameter("credential")
		assert.Equal(t, constants.ErrCodeInvalidRequest, param.Code())
		assert.Equal(t, http.StatusBadRequest, param.HTTPStatus())
		assert.Equal(t, "credential", param.Metadata()["parameter"])

		cfg := errors.ErrInvalidConfig("redis.mode", "must be standalone, cluster or sentinel")
		assert.Equal(t, constants.ErrCodeInvalidConfig, cfg.Code())
		assert.Contains(t, cfg.Error(), "redis.mode")
		assert.Equal(t, "redis.mode", cfg.Metadata()["field"])

		missing := errors.ErrNotFound("employee")
		assert.Equal(t, http.StatusNotFound, missing.HTTPStatus())
		assert.Equal(t, "employee", missing.Metadata()["resource"])
	})
}

func TestErrorChain(t *testing.T) {
	t.Run("should expose the cause through Unwrap and errors.Is", func(t *testing.T) {
		cause := stderrors.New("dial tcp: i/o timeout")
		err := errors.ErrInternal("limiter check failed").WithCause(cause)

		assert.Same(t, cause, err.Unwrap())
		assert.True(t, stderrors.Is(err, cause))
	})

	t.Run("should fall back to the description when no message is set", func(t *testing.T) {
		err := errors.NewError(constants.ErrCodeInternal, http.StatusInternalServerError, "something broke", "")
		assert.Equal(t, "something broke", err.Error())

		withMessage := errors.NewError(constants.ErrCodeInternal, http.StatusInternalServerError, "something broke", "detail")
		assert.Equal(t, "detail", withMessage.Error())
	})

	t.Run("should accumulate metadata across calls", func(t *testing.T) {
		err := errors.ErrInternal("boom").
			WithMetadata("tenant", "acme").
			WithMetadata("attempt", 3)

		assert.Equal(t, "acme", err.Metadata()["tenant"])
		assert.Equal(t, 3, err.Metadata()["attempt"])
	})
}

func TestWrapError(t *testing.T) {
	t.Run("should pick the status from the code", func(t *testing.T) {
		cause := stderrors.New("upstream said no")

		cases := map[constants.ErrorCode]int{
			constants.ErrCodeInvalidRequest:   http.StatusBadRequest,
			constants.ErrCodeUnauthorized:     http.StatusUnauthorized,
			constants.ErrCodeTokenRevoked:     http.StatusUnauthorized,
			constants.ErrCodeNotFound:         http.StatusNotFound,
			constants.ErrCodeRateLimited:      http.StatusTooManyRequests,
			constants.ErrCodeStoreUnreachable: http.StatusServiceUnavailable,
			constants.ErrCodeStoreTimeout:     http.StatusServiceUnavailable,
			constants.ErrCodeScriptMissing:    http.StatusServiceUnavailable,
			constants.ErrCodeStoreInternal:    http.StatusServiceUnavailable,
			constants.ErrCodeInternal:         http.StatusInternalServerError,
		}

		for code, status := range cases {
			err := errors.WrapError(cause, code, "wrapped")
			assert.Equal(t, code, err.Code())
			assert.Equal(t, status, err.HTTPStatus(), "code %s", code)
			assert.True(t, stderrors.Is(err, cause))
		}
	})
}

func TestErrorInspection(t *testing.T) {
	t.Run("should recognise app errors through fmt wrapping", func(t *testing.T) {
		inner := errors.ErrTokenRevoked()
		wrapped := fmt.Errorf("rejecting request: %w", inner)

		assert.True(t, errors.IsAppError(wrapped))
		assert.Equal(t, constants.ErrCodeTokenRevoked, errors.CodeOf(wrapped))

		got, ok := errors.AsAppError(wrapped)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, got.HTTPStatus())
	})

	t.Run("should default plain errors to internal_error", func(t *testing.T) {
		plain := stderrors.New("who knows")

		assert.False(t, errors.IsAppError(plain))
		assert.Equal(t, constants.ErrCodeInternal, errors.CodeOf(plain))

		_, ok := errors.AsAppError(plain)
		assert.False(t, ok)
	})

	t.Run("should classify rate limit errors by status", func(t *testing.T) {
		assert.True(t, errors.IsRateLimitError(errors.ErrRateLimitExceeded("x", 1)))
		assert.False(t, errors.IsRateLimitError(errors.ErrStoreTimeout(stderrors.New("slow"))))
		assert.False(t, errors.IsRateLimitError(stderrors.New("plain")))
	})

	t.Run("should keep client errors out of the logs except rate limiting", func(t *testing.T) {
		assert.True(t, errors.ShouldLogError(errors.ErrInternal("boom")))
		assert.True(t, errors.ShouldLogError(errors.ErrStoreUnreachable(stderrors.New("down"))))
		assert.True(t, errors.ShouldLogError(errors.ErrRateLimitExceeded("x", 1)))

		assert.False(t, errors.ShouldLogError(errors.ErrInvalidRequest("bad input")))
		assert.False(t, errors.ShouldLogError(errors.ErrUnauthorized("no token")))
		assert.False(t, errors.ShouldLogError(errors.ErrNotFound("thing")))

		assert.True(t, errors.ShouldLogError(stderrors.New("unclassified")), "unknown errors default to logged")
	})
}

func TestErrorResponse(t *testing.T) {
	t.Run("should render code, description and metadata", func(t *testing.T) {
		resp := errors.ToErrorResponse(errors.ErrRateLimitExceeded("/api/v1/reports", 10))

		assert.Equal(t, "rate_limit_exceeded", resp.Error)
		assert.NotEmpty(t, resp.ErrorDescription)
		assert.Equal(t, "/api/v1/reports", resp.Metadata["scope"])

		data, err := json.Marshal(resp)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"error":"rate_limit_exceeded"`)
		assert.Contains(t, string(data), `"scope":"/api/v1/reports"`)
	})

	t.Run("should omit empty metadata from the wire shape", func(t *testing.T) {
		data, err := json.Marshal(errors.ToErrorResponse(errors.ErrUnauthorized("nope")))
		require.NoError(t, err)
		assert.NotContains(t, string(data), "metadata")
	})

	t.Run("should hide internals when converting a plain error", func(t *testing.T) {
		resp := errors.ToGenericErrorResponse(stderrors.New("pq: password authentication failed"))

		assert.Equal(t, string(constants.ErrCodeInternal), resp.Error)
		assert.Equal(t, "An unexpected error occurred", resp.ErrorDescription)
		assert.NotContains(t, resp.ErrorDescription, "password")
	})
}
