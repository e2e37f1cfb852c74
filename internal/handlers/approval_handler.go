package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nidhisingh5958/inventory-pulse/internal/auth"
	"github.com/nidhisingh5958/inventory-pulse/internal/plans"
	"github.com/nidhisingh5958/inventory-pulse/pkg/errors"
)

// ApprovalHandler receives decisions from the external approval channel. The
// endpoint is unauthenticated at the transport level; every payload carries an
// HMAC signature instead.
type ApprovalHandler struct {
	service *plans.Service
	signer  *auth.WebhookSigner
	logger  *zap.Logger
}

// NewApprovalHandler creates an approval webhook handler
func NewApprovalHandler(service *plans.Service, signer *auth.WebhookSigner, logger *zap.Logger) *ApprovalHandler {
	return &ApprovalHandler{service: service, signer: signer, logger: logger}
}

// HandleApproval handles POST /api/v1/approvals. Duplicate deliveries of an
// already-applied decision return 200 without changing anything; a decision
// that conflicts with the plan's state is a 409.
func (h *ApprovalHandler) HandleApproval(c *gin.Context) {
	var req ApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Malformed approval payload", zap.Error(err))
		c.Error(errors.NewValidationError("plan_id, decision and signature are required", "body"))
		return
	}

	if err := h.signer.Verify(req.PlanID, req.Decision, req.Signature); err != nil {
		h.logger.Warn("Approval with invalid signature rejected",
			zap.String("plan_id", req.PlanID),
			zap.String("decision", req.Decision),
		)
		c.Error(err)
		return
	}

	plan, applied, err := h.service.Decide(c.Request.Context(), req.PlanID, plans.Decision(req.Decision))
	if err != nil {
		c.Error(err)
		return
	}

	h.logger.Info("Approval decision handled",
		zap.String("plan_id", req.PlanID),
		zap.String("decision", req.Decision),
		zap.Bool("applied", applied),
	)

	c.JSON(http.StatusOK, ApprovalResponse{
		PlanID:  plan.PlanID.String(),
		Status:  string(plan.Status),
		Applied: applied,
	})
}
