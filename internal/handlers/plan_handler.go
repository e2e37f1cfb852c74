package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nidhisingh5958/inventory-pulse/internal/domain"
	"github.com/nidhisingh5958/inventory-pulse/internal/plans"
	"github.com/nidhisingh5958/inventory-pulse/pkg/errors"
)

// PlanHandler exposes the reorder plan lifecycle over the operator API
type PlanHandler struct {
	service *plans.Service
	logger  *zap.Logger
}

// NewPlanHandler creates a plan handler
func NewPlanHandler(service *plans.Service, logger *zap.Logger) *PlanHandler {
	return &PlanHandler{service: service, logger: logger}
}

// ListPlans handles GET /api/v1/plans?status=Pending
func (h *PlanHandler) ListPlans(c *gin.Context) {
	var status domain.PlanStatus
	if raw := c.Query("status"); raw != "" {
		status = domain.PlanStatus(raw)
		if !status.Valid() {
			c.Error(errors.NewValidationError("unknown plan status", "status"))
			return
		}
	}

	list, err := h.service.List(c.Request.Context(), status)
	if err != nil {
		c.Error(err)
		return
	}

	resp := PlanListResponse{Plans: make([]PlanResponse, 0, len(list)), Count: len(list)}
	for _, plan := range list {
		resp.Plans = append(resp.Plans, toPlanResponse(plan))
	}
	c.JSON(http.StatusOK, resp)
}

// GetPlan handles GET /api/v1/plans/:id
func (h *PlanHandler) GetPlan(c *gin.Context) {
	plan, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toPlanResponse(plan))
}

// PlaceOrder handles POST /api/v1/plans/:id/order
func (h *PlanHandler) PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(errors.NewValidationError("invalid order request body", "order_ref"))
			return
		}
	}

	plan, err := h.service.PlaceOrder(c.Request.Context(), c.Param("id"), req.OrderRef)
	if err != nil {
		c.Error(err)
		return
	}

	h.logger.Info("Order placed",
		zap.String("plan_id", plan.PlanID.String()),
		zap.String("order_ref", req.OrderRef),
	)
	c.JSON(http.StatusOK, toPlanResponse(plan))
}

// ConfirmReceipt handles POST /api/v1/plans/:id/receive
func (h *PlanHandler) ConfirmReceipt(c *gin.Context) {
	plan, err := h.service.ConfirmReceipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toPlanResponse(plan))
}

// Cancel handles POST /api/v1/plans/:id/cancel
func (h *PlanHandler) Cancel(c *gin.Context) {
	plan, err := h.service.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toPlanResponse(plan))
}
