package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/samvit-hq/guardrail/internal/infrastructure/redis"
	"github.com/samvit-hq/guardrail/pkg/logger"
)

// HealthHandler provides the liveness and readiness endpoints.
type HealthHandler struct {
	conn *redis.Connection
	log  logger.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(conn *redis.Connection, log logger.Logger) *HealthHandler {
	return &HealthHandler{
		conn: conn,
		log:  log,
	}
}

// Liveness godoc
// @Summary      Liveness Check
// @Description  Reports that the process is up. Always succeeds.
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *HealthHandler) Liveness(c *gin.Context) {
	// The process answering is the check. Store state is deliberately not
	// consulted here: rate limiting fails open, so a store outage must not
	// make the orchestrator restart healthy instances.
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
	})
}

// Readiness godoc
// @Summary      Readiness Check
// @Description  Reports whether the backing store is reachable.
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /ready [get]
func (h *HealthHandler) Readiness(c *gin.Context) {
	status := "ready"
	httpStatus := http.StatusOK

	checks, err := h.conn.HealthCheck(c.Request.Context())
	if err != nil {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
		checks = map[string]interface{}{"redis": "error: " + err.Error()}
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}
