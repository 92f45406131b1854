package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvit-hq/guardrail/internal/infrastructure/monitoring"
	redisinfra "github.com/samvit-hq/guardrail/internal/infrastructure/redis"
	"github.com/samvit-hq/guardrail/pkg/constants"
	"github.com/samvit-hq/guardrail/pkg/logger"
)

type revocationFixture struct {
	router  *gin.Engine
	store   *redisinfra.RevocationStore
	metrics *monitoring.Metrics
	mr      *miniredis.Miniredis
}

func newRevocationFixture(t *testing.T) *revocationFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := redisinfra.NewRevocationStore(client, logger.NewNoopLogger())
	metrics := monitoring.NewMetricsWith(prometheus.NewRegistry())
	handler := NewRevocationHandler(store, time.Hour, metrics, logger.NewNoopLogger())

	router := gin.New()
	router.POST("/admin/revocations/token", handler.RevokeToken)
	router.POST("/admin/revocations/identity", handler.RevokeIdentity)
	router.POST("/admin/revocations/check", handler.CheckCredential)
	router.GET("/admin/revocations/identity/:identity", handler.CheckIdentity)

	return &revocationFixture{router: router, store: store, metrics: metrics, mr: mr}
}

func (f *revocationFixture) postJSON(path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	f.router.ServeHTTP(w, req)
	return w
}

func (f *revocationFixture) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRevokeTokenEndpoint(t *testing.T) {
	t.Run("should revoke a credential and confirm it", func(t *testing.T) {
		f := newRevocationFixture(t)

		expires := time.Now().Add(time.Hour).Format(time.RFC3339)
		w := f.postJSON("/admin/revocations/token",
			fmt.Sprintf(`{"credential": "tok-1", "expires_at": %q}`, expires))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "revoked", decodeBody(t, w)["status"])
		assert.True(t, f.store.IsRevoked(context.Background(), "tok-1"))

		recorded := f.metrics.Revocations.WithLabelValues("token", "ok")
		assert.Equal(t, 1.0, testutil.ToFloat64(recorded))
	})

	t.Run("should reject a request without a credential", func(t *testing.T) {
		f := newRevocationFixture(t)

		w := f.postJSON("/admin/revocations/token", `{"expires_at": "2030-01-01T00:00:00Z"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, string(constants.ErrCodeInvalidRequest), decodeBody(t, w)["error"])
	})

	t.Run("should surface an unpersisted revocation as unavailable", func(t *testing.T) {
		f := newRevocationFixture(t)
		f.mr.Close()

		expires := time.Now().Add(time.Hour).Format(time.RFC3339)
		w := f.postJSON("/admin/revocations/token",
			fmt.Sprintf(`{"credential": "tok-1", "expires_at": %q}`, expires))

		require.Equal(t, http.StatusServiceUnavailable, w.Code,
			"an unpersisted revocation must not look revoked")
		assert.Equal(t, string(constants.ErrCodeStoreInternal), decodeBody(t, w)["error"])

		failed := f.metrics.Revocations.WithLabelValues("token", "error")
		assert.Equal(t, 1.0, testutil.ToFloat64(failed))
	})
}

func TestRevokeIdentityEndpoint(t *testing.T) {
	t.Run("should write a marker with the requested lifetime", func(t *testing.T) {
		f := newRevocationFixture(t)

		w := f.postJSON("/admin/revocations/identity", `{"identity": "u-117", "ttl_seconds": 7200}`)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		assert.Equal(t, "revoked", body["status"])
		assert.Equal(t, float64(7200), body["ttl_seconds"])
		assert.Equal(t, 2*time.Hour, f.mr.TTL(constants.IdentityRevocationKeyPrefix+"u-117"))
	})

	t.Run("should apply the configured default lifetime", func(t *testing.T) {
		f := newRevocationFixture(t)

		w := f.postJSON("/admin/revocations/identity", `{"identity": "u-117"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(3600), decodeBody(t, w)["ttl_seconds"])
	})

	t.Run("should reject a negative lifetime", func(t *testing.T) {
		f := newRevocationFixture(t)

		w := f.postJSON("/admin/revocations/identity", `{"identity": "u-117", "ttl_seconds": -5}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCheckEndpoints(t *testing.T) {
	t.Run("should report credential revocation state", func(t *testing.T) {
		f := newRevocationFixture(t)

		require.True(t, f.store.Revoke(context.Background(), "tok-1", time.Now().Add(time.Hour)))

		w := f.postJSON("/admin/revocations/check", `{"credential": "tok-1"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decodeBody(t, w)["revoked"])

		w = f.postJSON("/admin/revocations/check", `{"credential": "tok-2"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, decodeBody(t, w)["revoked"])
	})

	t.Run("should compare an identity marker against the issue time", func(t *testing.T) {
		f := newRevocationFixture(t)

		require.True(t, f.store.RevokeAllForIdentity(context.Background(), "u-117", time.Hour))

		raw, err := f.mr.Get(constants.IdentityRevocationKeyPrefix + "u-117")
		require.NoError(t, err)
		markedAt, err := strconv.ParseInt(raw, 10, 64)
		require.NoError(t, err)

		w := f.get(fmt.Sprintf("/admin/revocations/identity/u-117?issued_at=%d", markedAt-1))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decodeBody(t, w)["revoked"])

		w = f.get(fmt.Sprintf("/admin/revocations/identity/u-117?issued_at=%d", markedAt+1))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, decodeBody(t, w)["revoked"])
	})

	t.Run("should reject a malformed issue time", func(t *testing.T) {
		f := newRevocationFixture(t)

		w := f.get("/admin/revocations/identity/u-117?issued_at=yesterday")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
