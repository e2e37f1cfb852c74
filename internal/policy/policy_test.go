package policy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nidhisingh5958/inventory-pulse/internal/domain"
	"github.com/nidhisingh5958/inventory-pulse/internal/forecast"
	"github.com/nidhisingh5958/inventory-pulse/pkg/errors"
)

func item(stock, threshold int, usage, unitCost float64) *domain.InventoryItem {
	return &domain.InventoryItem{
		ItemID:       "ITEM001",
		Name:         "Widget",
		CurrentStock: stock,
		MinThreshold: threshold,
		DailyUsage:   usage,
		Supplier:     domain.Supplier{Name: "ABC Corp"},
		UnitCost:     unitCost,
	}
}

func forecastFor(t *testing.T, it *domain.InventoryItem) *domain.DepletionForecast {
	t.Helper()
	eng := forecast.NewWithClock(func() time.Time {
		return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	})
	f, err := eng.Forecast(it)
	require.NoError(t, err)
	return f
}

func TestEvaluate_AboveThreshold_NoDecision(t *testing.T) {
	it := item(100, 10, 2, 1.50)

	decision, err := New().Evaluate(it, forecastFor(t, it))

	require.NoError(t, err)
	assert.Nil(t, decision)
}

func TestEvaluate_PriorityBands(t *testing.T) {
	t.Run("already below threshold forces High", func(t *testing.T) {
		it := item(8, 10, 2, 1.50)
		f := forecastFor(t, it)
		assert.Equal(t, -1.0, f.DaysUntilDepletion)

		decision, err := New().Evaluate(it, f)
		require.NoError(t, err)
		require.NotNil(t, decision)
		assert.Equal(t, domain.PriorityHigh, decision.Priority)
	})

	t.Run("days zero at threshold is High", func(t *testing.T) {
		it := item(10, 10, 2, 1.50)
		f := forecastFor(t, it)
		assert.Equal(t, 0.0, f.DaysUntilDepletion)

		decision, err := New().Evaluate(it, f)
		require.NoError(t, err)
		require.NotNil(t, decision)
		assert.Equal(t, domain.PriorityHigh, decision.Priority)
	})
}

func TestEvaluate_BandBoundaries_ExactDays(t *testing.T) {
	// drive the bands directly at the documented boundaries
	boundaries := []struct {
		days     float64
		expected domain.Priority
	}{
		{3, domain.PriorityHigh},
		{3.0001, domain.PriorityMedium},
		{7, domain.PriorityMedium},
		{7.0001, domain.PriorityLow},
	}

	for _, b := range boundaries {
		it := item(10, 10, 1, 1.0)
		f := &domain.DepletionForecast{ItemID: it.ItemID, DaysUntilDepletion: b.days}

		decision, err := New().Evaluate(it, f)
		require.NoError(t, err)
		require.NotNil(t, decision)
		assert.Equal(t, b.expected, decision.Priority, "days=%v", b.days)
	}
}

func TestEvaluate_ZeroUsage_NonDepleting(t *testing.T) {
	t.Run("at threshold maps to Low", func(t *testing.T) {
		it := item(10, 10, 0, 1.50)

		decision, err := New().Evaluate(it, forecastFor(t, it))

		require.NoError(t, err)
		require.NotNil(t, decision)
		assert.Equal(t, domain.PriorityLow, decision.Priority)
	})

	t.Run("below threshold forces High", func(t *testing.T) {
		it := item(8, 10, 0, 1.50)
		f := forecastFor(t, it)
		assert.True(t, math.IsInf(f.DaysUntilDepletion, 1))

		decision, err := New().Evaluate(it, f)

		require.NoError(t, err)
		require.NotNil(t, decision)
		assert.Equal(t, domain.PriorityHigh, decision.Priority)
	})
}

func TestEvaluate_QuantityAndCost(t *testing.T) {
	tests := []struct {
		threshold   int
		expectedQty int
	}{
		{1, 50},
		{10, 50},
		{25, 50},
		{26, 52},
		{100, 200},
	}

	for _, tt := range tests {
		it := item(0, tt.threshold, 2, 1.50)

		decision, err := New().Evaluate(it, forecastFor(t, it))

		require.NoError(t, err)
		require.NotNil(t, decision)
		assert.Equal(t, tt.expectedQty, decision.Quantity, "threshold=%d", tt.threshold)
		assert.InDelta(t, float64(tt.expectedQty)*1.50, decision.EstimatedCost, 1e-9)
	}
}

func TestEvaluate_CarriesDepletionDate(t *testing.T) {
	it := item(8, 10, 2, 1.50)
	f := forecastFor(t, it)
	require.NotNil(t, f.PredictedDepletion)

	decision, err := New().Evaluate(it, f)

	require.NoError(t, err)
	require.NotNil(t, decision)
	require.NotNil(t, decision.DepletionDate)
	assert.Equal(t, *f.PredictedDepletion, *decision.DepletionDate)
}

func TestEvaluate_NonDepletingHasNoDepletionDate(t *testing.T) {
	it := item(10, 10, 0, 1.50)

	decision, err := New().Evaluate(it, forecastFor(t, it))

	require.NoError(t, err)
	require.NotNil(t, decision)
	assert.Nil(t, decision.DepletionDate)
}

func TestEvaluate_NegativeUnitCost(t *testing.T) {
	it := item(8, 10, 2, -0.50)

	_, err := New().Evaluate(it, forecastFor(t, it))

	assert.Error(t, err)
	assert.Equal(t, errors.CodeValidation, errors.Code(err))
}

func TestEvaluate_JustificationDeterministic(t *testing.T) {
	it := item(8, 10, 2, 1.50)
	f := forecastFor(t, it)

	d1, err := New().Evaluate(it, f)
	require.NoError(t, err)
	d2, err := New().Evaluate(it, f)
	require.NoError(t, err)

	assert.Equal(t, d1.Justification, d2.Justification)
	assert.Contains(t, d1.Justification, "8")
	assert.Contains(t, d1.Justification, "10")
	assert.Contains(t, d1.Justification, "High")
}

func TestEOQPolicy(t *testing.T) {
	t.Run("computes sqrt formula", func(t *testing.T) {
		// D = 10*365 = 3650, S = 20, H = 2*0.25 = 0.5
		// EOQ = sqrt(2*3650*20/0.5) = sqrt(292000) ~= 540.4 -> 541
		it := item(8, 10, 10, 2.0)
		qty := NewEOQPolicy(20, 0.25).OrderQuantity(it)
		assert.Equal(t, 541, qty)
	})

	t.Run("falls back on zero usage", func(t *testing.T) {
		it := item(8, 10, 0, 2.0)
		qty := NewEOQPolicy(20, 0.25).OrderQuantity(it)
		assert.Equal(t, 50, qty)
	})

	t.Run("never below safety stock", func(t *testing.T) {
		// tiny demand yields a small EOQ, the threshold buffer wins
		it := item(8, 200, 0.1, 100.0)
		qty := NewEOQPolicy(1, 0.5).OrderQuantity(it)
		assert.Equal(t, 400, qty)
	})

	t.Run("drop-in replacement in the engine", func(t *testing.T) {
		it := item(8, 10, 10, 2.0)
		eng := NewWithQuantityPolicy(NewEOQPolicy(20, 0.25))

		decision, err := eng.Evaluate(it, forecastFor(t, it))

		require.NoError(t, err)
		require.NotNil(t, decision)
		assert.Equal(t, 541, decision.Quantity)
		assert.InDelta(t, 1082.0, decision.EstimatedCost, 1e-9)
	})
}
