package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/samvit-hq/guardrail/internal/domain/service"
	"github.com/samvit-hq/guardrail/internal/infrastructure/monitoring"
	"github.com/samvit-hq/guardrail/pkg/constants"
	apperrors "github.com/samvit-hq/guardrail/pkg/errors"
	"github.com/samvit-hq/guardrail/pkg/logger"
	"github.com/samvit-hq/guardrail/pkg/utils"
)

// RevocationHandler exposes the administrative revocation endpoints.
type RevocationHandler struct {
	store      service.RevocationStore
	defaultTTL time.Duration
	metrics    *monitoring.Metrics
	log        logger.Logger
}

// NewRevocationHandler creates a new RevocationHandler. defaultTTL bounds
// identity-wide revocation markers when the caller does not provide one.
func NewRevocationHandler(store service.RevocationStore, defaultTTL time.Duration, metrics *monitoring.Metrics, log logger.Logger) *RevocationHandler {
	if defaultTTL <= 0 {
		defaultTTL = constants.DefaultIdentityRevocationTTL
	}
	return &RevocationHandler{
		store:      store,
		defaultTTL: defaultTTL,
		metrics:    metrics,
		log:        log,
	}
}

type revokeTokenRequest struct {
	Credential string    `json:"credential" binding:"required"`
	ExpiresAt  time.Time `json:"expires_at" binding:"required"`
}

type revokeIdentityRequest struct {
	Identity   string `json:"identity" binding:"required"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

type checkCredentialRequest struct {
	Credential string `json:"credential" binding:"required"`
}

// RevokeToken godoc
// @Summary      Revoke a credential
// @Description  Marks a single credential as invalid until its expiry.
// @Tags         revocations
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  errors.ErrorResponse
// @Router       /admin/revocations/token [post]
func (h *RevocationHandler) RevokeToken(c *gin.Context) {
	var req revokeTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, apperrors.ErrInvalidRequest(err.Error()))
		return
	}

	ok := h.store.Revoke(c.Request.Context(), req.Credential, req.ExpiresAt)
	h.metrics.RecordRevocation("token", ok)
	if !ok {
		sendError(c, errRevocationNotPersisted())
		return
	}

	h.log.Info(c.Request.Context(), "credential revoked",
		logger.String("credential", utils.MaskToken(req.Credential)),
		logger.Time("expires_at", req.ExpiresAt),
	)
	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}

// RevokeIdentity godoc
// @Summary      Revoke all credentials of an identity
// @Description  Invalidates every credential issued to the identity before now.
// @Tags         revocations
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  errors.ErrorResponse
// @Router       /admin/revocations/identity [post]
func (h *RevocationHandler) RevokeIdentity(c *gin.Context) {
	var req revokeIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, apperrors.ErrInvalidRequest(err.Error()))
		return
	}
	if req.TTLSeconds < 0 {
		sendError(c, apperrors.ErrInvalidRequest("ttl_seconds must not be negative"))
		return
	}

	ttl := h.defaultTTL
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}

	ok := h.store.RevokeAllForIdentity(c.Request.Context(), req.Identity, ttl)
	h.metrics.RecordRevocation("identity", ok)
	if !ok {
		sendError(c, errRevocationNotPersisted())
		return
	}

	h.log.Info(c.Request.Context(), "identity revoked",
		logger.String("identity", req.Identity),
		logger.Duration("ttl", ttl),
	)
	c.JSON(http.StatusOK, gin.H{"status": "revoked", "ttl_seconds": int64(ttl.Seconds())})
}

// CheckCredential godoc
// @Summary      Check a credential
// @Description  Reports whether a credential has been revoked.
// @Tags         revocations
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  errors.ErrorResponse
// @Router       /admin/revocations/check [post]
func (h *RevocationHandler) CheckCredential(c *gin.Context) {
	var req checkCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, apperrors.ErrInvalidRequest(err.Error()))
		return
	}

	revoked := h.store.IsRevoked(c.Request.Context(), req.Credential)
	c.JSON(http.StatusOK, gin.H{"revoked": revoked})
}

// CheckIdentity godoc
// @Summary      Check an identity
// @Description  Reports whether credentials issued to the identity at issued_at fall under a bulk revocation.
// @Tags         revocations
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  errors.ErrorResponse
// @Router       /admin/revocations/identity/{identity} [get]
func (h *RevocationHandler) CheckIdentity(c *gin.Context) {
	identity := c.Param("identity")
	if identity == "" {
		sendError(c, apperrors.ErrMissingRequiredParameter("identity"))
		return
	}

	issuedAt := int64(0)
	if raw := c.Query("issued_at"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			sendError(c, apperrors.ErrInvalidRequest("issued_at must be a Unix timestamp in seconds"))
			return
		}
		issuedAt = parsed
	}

	revoked := h.store.IsIdentityRevokedSince(c.Request.Context(), identity, issuedAt)
	c.JSON(http.StatusOK, gin.H{"revoked": revoked, "identity": identity})
}

// errRevocationNotPersisted is returned when the store could not record a
// revocation. Unlike limit checks, revocations must not fail open silently:
// the caller needs to know the credential is still live.
func errRevocationNotPersisted() apperrors.AppError {
	return apperrors.NewError(
		constants.ErrCodeStoreInternal,
		http.StatusServiceUnavailable,
		"The revocation could not be persisted. Retry once the store recovers.",
		"revocation write failed",
	)
}

func sendError(c *gin.Context, err apperrors.AppError) {
	c.JSON(err.HTTPStatus(), apperrors.ToErrorResponse(err))
}
