package policy

import (
	"math"

	"github.com/nidhisingh5958/inventory-pulse/internal/domain"
)

// EOQPolicy computes the economic order quantity sqrt(2DS/H) where D is
// annual demand, S the per-order cost and H the annual holding cost per unit.
// It falls back to the safety-stock quantity whenever the formula cannot
// produce a sensible positive result (zero usage, free items).
type EOQPolicy struct {
	OrderingCost    float64 // cost of placing one order
	HoldingCostRate float64 // fraction of unit cost paid per unit per year
}

// NewEOQPolicy creates an EOQ policy with the given cost parameters
func NewEOQPolicy(orderingCost, holdingCostRate float64) EOQPolicy {
	return EOQPolicy{OrderingCost: orderingCost, HoldingCostRate: holdingCostRate}
}

// OrderQuantity returns the EOQ rounded up, never below the safety-stock
// quantity so a reorder always covers the threshold buffer.
func (p EOQPolicy) OrderQuantity(item *domain.InventoryItem) int {
	floor := SafetyStockPolicy{}.OrderQuantity(item)

	annualDemand := item.DailyUsage * 365
	holdingCost := item.UnitCost * p.HoldingCostRate
	if annualDemand <= 0 || holdingCost <= 0 || p.OrderingCost <= 0 {
		return floor
	}

	eoq := int(math.Ceil(math.Sqrt(2 * annualDemand * p.OrderingCost / holdingCost)))
	if eoq < floor {
		return floor
	}
	return eoq
}
