package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/samvit-hq/guardrail/internal/domain/service"
	apperrors "github.com/samvit-hq/guardrail/pkg/errors"
	"github.com/samvit-hq/guardrail/pkg/logger"
)

// CacheHandler exposes cache maintenance endpoints for operators.
type CacheHandler struct {
	cache service.Cache
	log   logger.Logger
}

// NewCacheHandler creates a new CacheHandler.
func NewCacheHandler(cache service.Cache, log logger.Logger) *CacheHandler {
	return &CacheHandler{
		cache: cache,
		log:   log,
	}
}

type purgeCacheRequest struct {
	Pattern string `json:"pattern" binding:"required"`
}

// Stats godoc
// @Summary      Cache statistics
// @Description  Reports hit and miss counters since process start.
// @Tags         cache
// @Produce      json
// @Success      200  {object}  service.CacheStats
// @Router       /admin/cache/stats [get]
func (h *CacheHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.cache.Stats())
}

// Purge godoc
// @Summary      Purge cache entries
// @Description  Deletes every cache entry matching a glob pattern.
// @Tags         cache
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  errors.ErrorResponse
// @Router       /admin/cache/purge [post]
func (h *CacheHandler) Purge(c *gin.Context) {
	var req purgeCacheRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, apperrors.ErrInvalidRequest(err.Error()))
		return
	}

	deleted := h.cache.DeletePattern(c.Request.Context(), req.Pattern)
	h.log.Info(c.Request.Context(), "cache purged",
		logger.String("pattern", req.Pattern),
		logger.Int("deleted", deleted),
	)
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
