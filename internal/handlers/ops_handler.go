package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nidhisingh5958/inventory-pulse/internal/ingest"
)

// OpsHandler exposes operational endpoints: health, on-demand detection
// cycles and simulated alerts for smoke testing the pipeline.
type OpsHandler struct {
	cycle  *ingest.Cycle
	logger *zap.Logger
}

// NewOpsHandler creates an ops handler
func NewOpsHandler(cycle *ingest.Cycle, logger *zap.Logger) *OpsHandler {
	return &OpsHandler{cycle: cycle, logger: logger}
}

// Health handles GET /api/v1/health
func (h *OpsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "inventory-pulse",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// RunCycle handles POST /api/v1/cycle/run, executing one detection pass
// immediately instead of waiting for the scheduler.
func (h *OpsHandler) RunCycle(c *gin.Context) {
	stats, err := h.cycle.Run(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// SimulateAlert handles POST /api/v1/alerts/simulate
func (h *OpsHandler) SimulateAlert(c *gin.Context) {
	plan, err := h.cycle.SimulatedAlert(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	h.logger.Info("Simulated alert created",
		zap.String("plan_id", plan.PlanID.String()),
		zap.String("item_id", plan.ItemID),
	)
	c.JSON(http.StatusCreated, toPlanResponse(plan))
}
