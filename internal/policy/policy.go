package policy

import (
	"fmt"

	"github.com/nidhisingh5958/inventory-pulse/internal/domain"
	"github.com/nidhisingh5958/inventory-pulse/pkg/errors"
)

// QuantityPolicy decides how much to order for an item that needs reordering.
// Implementations must return a positive integer.
type QuantityPolicy interface {
	OrderQuantity(item *domain.InventoryItem) int
}

// Engine turns an item plus its forecast into a reorder decision, or nil when
// stock is still above threshold. Pure, no side effects.
type Engine struct {
	quantity QuantityPolicy
}

// New creates a policy engine with the default safety-stock quantity policy
func New() *Engine {
	return &Engine{quantity: SafetyStockPolicy{}}
}

// NewWithQuantityPolicy creates an engine with a custom quantity policy
// (e.g. EOQ) as a drop-in replacement.
func NewWithQuantityPolicy(qp QuantityPolicy) *Engine {
	return &Engine{quantity: qp}
}

// Evaluate returns a decision for items at or below their threshold and nil
// otherwise. Priority follows the depletion bands: already below threshold is
// always High; otherwise <=3 days High, <=7 days Medium, beyond that Low.
// Non-depleting items sitting exactly at threshold are Low urgency.
func (e *Engine) Evaluate(item *domain.InventoryItem, f *domain.DepletionForecast) (*domain.ReorderDecision, error) {
	if item.UnitCost < 0 {
		return nil, errors.NewValidationError("unit cost must be non-negative", "unit_cost")
	}

	if !item.BelowThreshold() {
		return nil, nil
	}

	priority := priorityFor(item, f)
	qty := e.quantity.OrderQuantity(item)

	return &domain.ReorderDecision{
		ItemID:        item.ItemID,
		Quantity:      qty,
		EstimatedCost: float64(qty) * item.UnitCost,
		Priority:      priority,
		Justification: justification(item, priority),
		DepletionDate: f.PredictedDepletion,
	}, nil
}

func priorityFor(item *domain.InventoryItem, f *domain.DepletionForecast) domain.Priority {
	if item.CurrentStock < item.MinThreshold {
		return domain.PriorityHigh
	}
	if !f.Depletes() {
		return domain.PriorityLow
	}
	switch {
	case f.DaysUntilDepletion <= 3:
		return domain.PriorityHigh
	case f.DaysUntilDepletion <= 7:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

func justification(item *domain.InventoryItem, priority domain.Priority) string {
	return fmt.Sprintf("stock %d at or below threshold %d, daily usage %.2f, urgency %s",
		item.CurrentStock, item.MinThreshold, item.DailyUsage, priority)
}

// SafetyStockPolicy orders twice the threshold with a floor of 50 units
type SafetyStockPolicy struct{}

const minOrderQuantity = 50

// OrderQuantity returns max(2 * min_threshold, 50)
func (SafetyStockPolicy) OrderQuantity(item *domain.InventoryItem) int {
	qty := item.MinThreshold * 2
	if qty < minOrderQuantity {
		qty = minOrderQuantity
	}
	return qty
}
