package forecast

import (
	"math"
	"time"

	"github.com/nidhisingh5958/inventory-pulse/internal/domain"
	"github.com/nidhisingh5958/inventory-pulse/pkg/errors"
)

// Engine computes depletion forecasts from inventory snapshots. It is pure
// and safe to call concurrently for distinct items.
type Engine struct {
	now func() time.Time
}

// New creates a forecast engine using the wall clock
func New() *Engine {
	return &Engine{now: time.Now}
}

// NewWithClock creates an engine with an injected clock for tests
func NewWithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// Forecast derives days-until-depletion and a depletion date for the item.
// Items with zero daily usage never deplete and get an unbounded forecast.
// Days may be negative when stock is already below the threshold.
func (e *Engine) Forecast(item *domain.InventoryItem) (*domain.DepletionForecast, error) {
	if item.CurrentStock < 0 {
		return nil, errors.NewValidationError("current stock must be non-negative", "current_stock")
	}
	if item.MinThreshold < 1 {
		return nil, errors.NewValidationError("min threshold must be at least 1", "min_threshold")
	}

	if item.DailyUsage <= 0 {
		return &domain.DepletionForecast{
			ItemID:             item.ItemID,
			DaysUntilDepletion: math.Inf(1),
		}, nil
	}

	days := float64(item.CurrentStock-item.MinThreshold) / item.DailyUsage
	date := e.now().UTC().AddDate(0, 0, int(math.Round(days)))

	return &domain.DepletionForecast{
		ItemID:             item.ItemID,
		DaysUntilDepletion: days,
		PredictedDepletion: &date,
	}, nil
}
