package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItem() *InventoryItem {
	return &InventoryItem{
		ItemID:       "ITEM001",
		Name:         "Widget",
		CurrentStock: 8,
		MinThreshold: 10,
		DailyUsage:   2,
		Supplier:     Supplier{Name: "ABC Corp"},
		UnitCost:     1.50,
	}
}

func testDecision() *ReorderDecision {
	depletion := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	return &ReorderDecision{
		ItemID:        "ITEM001",
		Quantity:      50,
		EstimatedCost: 75.0,
		Priority:      PriorityHigh,
		Justification: "stock 8 at or below threshold 10",
		DepletionDate: &depletion,
	}
}

func TestNewReorderPlan(t *testing.T) {
	plan := NewReorderPlan(testItem(), testDecision())

	assert.NotEqual(t, uuid.Nil, plan.PlanID)
	assert.Equal(t, "ITEM001", plan.ItemID)
	assert.Equal(t, "Widget", plan.ItemName)
	assert.Equal(t, 50, plan.Quantity)
	assert.Equal(t, 75.0, plan.EstimatedCost)
	assert.Equal(t, PriorityHigh, plan.Priority)
	assert.Equal(t, StatusPending, plan.Status)
	require.NotNil(t, plan.DepletionDate)
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), *plan.DepletionDate)
	assert.False(t, plan.CreatedAt.IsZero())
}

func TestNewReorderPlan_NonDepletingHasNoDate(t *testing.T) {
	decision := testDecision()
	decision.DepletionDate = nil

	plan := NewReorderPlan(testItem(), decision)

	assert.Nil(t, plan.DepletionDate)
}

func TestCanTransitionTo_AllowedMoves(t *testing.T) {
	allowed := []struct{ from, to PlanStatus }{
		{StatusPending, StatusApproved},
		{StatusPending, StatusRejected},
		{StatusPending, StatusCancelled},
		{StatusApproved, StatusOrdered},
		{StatusApproved, StatusCancelled},
		{StatusOrdered, StatusReceived},
		{StatusOrdered, StatusCancelled},
	}

	for _, tt := range allowed {
		assert.True(t, tt.from.CanTransitionTo(tt.to), "%s -> %s must be allowed", tt.from, tt.to)
	}
}

func TestCanTransitionTo_ForbiddenMoves(t *testing.T) {
	forbidden := []struct{ from, to PlanStatus }{
		{StatusPending, StatusOrdered},
		{StatusPending, StatusReceived},
		{StatusApproved, StatusApproved},
		{StatusApproved, StatusRejected},
		{StatusApproved, StatusReceived},
		{StatusOrdered, StatusApproved},
		{StatusReceived, StatusCancelled},
		{StatusCancelled, StatusCancelled},
		{StatusRejected, StatusApproved},
		{StatusRejected, StatusPending},
	}

	for _, tt := range forbidden {
		assert.False(t, tt.from.CanTransitionTo(tt.to), "%s -> %s must be forbidden", tt.from, tt.to)
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, StatusReceived.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusApproved.Terminal())
	assert.False(t, StatusOrdered.Terminal())
}

func TestIdempotencyKey_Deterministic(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	later := time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC)
	nextDay := time.Date(2024, 3, 16, 0, 1, 0, 0, time.UTC)

	k1 := IdempotencyKey("ITEM001", 8, 10, now)
	k2 := IdempotencyKey("ITEM001", 8, 10, later)
	k3 := IdempotencyKey("ITEM001", 8, 10, nextDay)
	k4 := IdempotencyKey("ITEM002", 8, 10, now)

	assert.Equal(t, k1, k2, "same day bucket must hash identically")
	assert.NotEqual(t, k1, k3, "different day bucket must differ")
	assert.NotEqual(t, k1, k4, "different item must differ")
}

func TestNewAlert(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	alert := NewAlert(testItem(), PriorityHigh, "plan-1", now)

	assert.Equal(t, "ITEM001", alert.ItemID)
	assert.Equal(t, "Widget", alert.ItemName)
	assert.Equal(t, 8, alert.CurrentStock)
	assert.Equal(t, 10, alert.MinThreshold)
	assert.Equal(t, "ABC Corp", alert.Supplier)
	assert.Equal(t, PriorityHigh, alert.Priority)
	assert.Equal(t, "plan-1", alert.PlanID)
	assert.NotEmpty(t, alert.IdempotencyKey)
}
