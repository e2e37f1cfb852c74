package domain

import (
	"math"
	"time"
)

// Supplier identifies who fulfils reorders for an item
type Supplier struct {
	Name    string
	Contact string
}

// InventoryItem is one row of a parsed inventory snapshot. Items are refreshed
// on every ingest cycle and are immutable between refreshes.
type InventoryItem struct {
	ItemID       string
	Name         string
	CurrentStock int
	MinThreshold int
	DailyUsage   float64
	Supplier     Supplier
	UnitCost     float64
}

// BelowThreshold reports whether the item has reached its reorder point
func (i *InventoryItem) BelowThreshold() bool {
	return i.CurrentStock <= i.MinThreshold
}

// DepletionForecast is derived per cycle and never persisted.
// DaysUntilDepletion is +Inf when the item does not deplete (zero daily usage).
type DepletionForecast struct {
	ItemID             string
	DaysUntilDepletion float64
	PredictedDepletion *time.Time // nil for non-depleting items
}

// Depletes reports whether the item burns down at all
func (f *DepletionForecast) Depletes() bool {
	return !math.IsInf(f.DaysUntilDepletion, 1)
}
