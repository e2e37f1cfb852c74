package handlers

import (
	"time"

	"github.com/nidhisingh5958/inventory-pulse/internal/domain"
)

// ApprovalRequest is the webhook payload from the approval channel
type ApprovalRequest struct {
	PlanID    string `json:"plan_id" binding:"required"`
	Decision  string `json:"decision" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// ApprovalResponse reports the plan state after a decision was applied or
// recognized as a duplicate delivery
type ApprovalResponse struct {
	PlanID  string `json:"plan_id"`
	Status  string `json:"status"`
	Applied bool   `json:"applied"`
}

// PlaceOrderRequest carries the optional supplier order confirmation token
type PlaceOrderRequest struct {
	OrderRef string `json:"order_ref"`
}

// PlanResponse is the API projection of a reorder plan
type PlanResponse struct {
	PlanID          string    `json:"plan_id"`
	ItemID          string    `json:"item_id"`
	ItemName        string    `json:"item_name"`
	SupplierName    string    `json:"supplier_name"`
	SupplierContact string    `json:"supplier_contact,omitempty"`
	Quantity        int       `json:"quantity"`
	EstimatedCost   float64   `json:"estimated_cost"`
	Priority        string    `json:"priority"`
	Justification   string    `json:"justification"`
	Status          string    `json:"status"`
	ExternalPageRef string    `json:"external_page_ref,omitempty"`
	NeedsFollowUp   bool      `json:"needs_follow_up"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// PlanListResponse wraps a page of plans
type PlanListResponse struct {
	Plans []PlanResponse `json:"plans"`
	Count int            `json:"count"`
}

func toPlanResponse(plan *domain.ReorderPlan) PlanResponse {
	return PlanResponse{
		PlanID:          plan.PlanID.String(),
		ItemID:          plan.ItemID,
		ItemName:        plan.ItemName,
		SupplierName:    plan.Supplier.Name,
		SupplierContact: plan.Supplier.Contact,
		Quantity:        plan.Quantity,
		EstimatedCost:   plan.EstimatedCost,
		Priority:        string(plan.Priority),
		Justification:   plan.Justification,
		Status:          string(plan.Status),
		ExternalPageRef: plan.ExternalPageRef,
		NeedsFollowUp:   plan.NeedsFollowUp,
		CreatedAt:       plan.CreatedAt,
		UpdatedAt:       plan.UpdatedAt,
	}
}
