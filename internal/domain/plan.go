package domain

import (
	"time"

	"github.com/google/uuid"
)

// Priority is the urgency tier of a reorder decision
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Valid reports whether p is a known priority tier
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// PlanStatus is the lifecycle state of a ReorderPlan
type PlanStatus string

const (
	StatusPending   PlanStatus = "Pending"
	StatusApproved  PlanStatus = "Approved"
	StatusOrdered   PlanStatus = "Ordered"
	StatusReceived  PlanStatus = "Received"
	StatusCancelled PlanStatus = "Cancelled"
	StatusRejected  PlanStatus = "Rejected"
)

// Terminal reports whether the status admits no further transitions
func (s PlanStatus) Terminal() bool {
	switch s {
	case StatusReceived, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// Valid reports whether s is a known plan status
func (s PlanStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusOrdered, StatusReceived, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// CanTransitionTo encodes the lifecycle table. Cancellation is reachable from
// every non-terminal state; terminal states admit nothing.
func (s PlanStatus) CanTransitionTo(to PlanStatus) bool {
	if s.Terminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	switch s {
	case StatusPending:
		return to == StatusApproved || to == StatusRejected
	case StatusApproved:
		return to == StatusOrdered
	case StatusOrdered:
		return to == StatusReceived
	}
	return false
}

// ReorderDecision is the output of the policy engine for one item
type ReorderDecision struct {
	ItemID        string
	Quantity      int
	EstimatedCost float64
	Priority      Priority
	Justification string
	DepletionDate *time.Time // nil for non-depleting items
}

// ReorderPlan is the central long-lived entity tracking a reorder from
// detection through approval to receipt. Status changes go through the store's
// compare-and-swap, guarded by the CanTransitionTo table.
type ReorderPlan struct {
	PlanID          uuid.UUID
	ItemID          string
	ItemName        string
	Supplier        Supplier
	Quantity        int
	EstimatedCost   float64
	Priority        Priority
	Justification   string
	DepletionDate   *time.Time // projected depletion, nil for non-depleting items
	Status          PlanStatus
	ExternalPageRef string // opaque id of the mirrored workspace page, empty until first sync
	NeedsFollowUp   bool   // set when notification delivery exhausted its retries
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewReorderPlan creates a plan in Pending for the given item and decision
func NewReorderPlan(item *InventoryItem, decision *ReorderDecision) *ReorderPlan {
	now := time.Now().UTC()
	return &ReorderPlan{
		PlanID:        uuid.New(),
		ItemID:        item.ItemID,
		ItemName:      item.Name,
		Supplier:      item.Supplier,
		Quantity:      decision.Quantity,
		EstimatedCost: decision.EstimatedCost,
		Priority:      decision.Priority,
		Justification: decision.Justification,
		DepletionDate: decision.DepletionDate,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
