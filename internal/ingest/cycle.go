package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nidhisingh5958/inventory-pulse/internal/domain"
	"github.com/nidhisingh5958/inventory-pulse/internal/forecast"
	"github.com/nidhisingh5958/inventory-pulse/internal/plans"
	"github.com/nidhisingh5958/inventory-pulse/internal/policy"
	"github.com/nidhisingh5958/inventory-pulse/pkg/errors"
)

// Stats summarizes one detection cycle
type Stats struct {
	RowsRead     int `json:"rows_read"`
	RowsSkipped  int `json:"rows_skipped"`
	PlansCreated int `json:"plans_created"`
	AlreadyOpen  int `json:"already_open"`
}

// Cycle runs the detection pipeline: read snapshot, forecast, evaluate,
// create plans. Per-item work is self-contained, so errors abort only the
// single item and cancellation between items loses nothing.
type Cycle struct {
	reader   SnapshotReader
	forecast *forecast.Engine
	policy   *policy.Engine
	plans    *plans.Service
	logger   *zap.Logger
}

// NewCycle wires the detection pipeline
func NewCycle(reader SnapshotReader, fc *forecast.Engine, pol *policy.Engine, svc *plans.Service, logger *zap.Logger) *Cycle {
	return &Cycle{
		reader:   reader,
		forecast: fc,
		policy:   pol,
		plans:    svc,
		logger:   logger,
	}
}

// Run executes one full detection pass
func (c *Cycle) Run(ctx context.Context) (Stats, error) {
	stats := Stats{}

	rows, err := c.reader.Read(ctx)
	if err != nil {
		return stats, err
	}
	stats.RowsRead = len(rows)

	processed := 0
	for _, row := range rows {
		select {
		case <-ctx.Done():
			c.logger.Info("Detection cycle cancelled", zap.Int("rows_processed", processed))
			return stats, ctx.Err()
		default:
		}

		if err := c.processRow(ctx, row, &stats); err != nil {
			stats.RowsSkipped++
		}
		processed++
	}

	c.logger.Info("Detection cycle finished",
		zap.Int("rows_read", stats.RowsRead),
		zap.Int("rows_skipped", stats.RowsSkipped),
		zap.Int("plans_created", stats.PlansCreated),
		zap.Int("already_open", stats.AlreadyOpen),
	)

	return stats, nil
}

func (c *Cycle) processRow(ctx context.Context, row []string, stats *Stats) error {
	item, err := ParseRow(row)
	if err != nil {
		c.logger.Warn("Skipping invalid snapshot row",
			zap.Strings("row", row),
			zap.String("error_kind", errors.Code(err)),
			zap.Error(err),
		)
		return err
	}

	f, err := c.forecast.Forecast(item)
	if err != nil {
		c.logger.Warn("Skipping item with invalid forecast input",
			zap.String("item_id", item.ItemID),
			zap.Error(err),
		)
		return err
	}

	decision, err := c.policy.Evaluate(item, f)
	if err != nil {
		c.logger.Warn("Skipping item the policy engine rejected",
			zap.String("item_id", item.ItemID),
			zap.Error(err),
		)
		return err
	}
	if decision == nil {
		return nil // stock is fine
	}

	if _, err := c.plans.Create(ctx, item, decision); err != nil {
		if errors.IsCode(err, errors.CodeConflict) {
			// already tracked by an active plan, nothing to do
			stats.AlreadyOpen++
			c.logger.Debug("Item already has an active plan",
				zap.String("item_id", item.ItemID))
			return nil
		}
		c.logger.Error("Failed to create reorder plan",
			zap.String("item_id", item.ItemID),
			zap.Error(err),
		)
		return err
	}

	stats.PlansCreated++
	return nil
}

// RunPeriodically executes cycles on the given interval until ctx is done.
// One failed cycle is logged and the next tick proceeds.
func (c *Cycle) RunPeriodically(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Detection scheduler stopped")
			return
		case <-ticker.C:
			if _, err := c.Run(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error("Detection cycle failed", zap.Error(err))
			}
		}
	}
}

// SimulatedAlert synthesizes one alert through the normal plan-creation path,
// for smoke testing the notification pipeline without a live snapshot source.
func (c *Cycle) SimulatedAlert(ctx context.Context) (*domain.ReorderPlan, error) {
	item := &domain.InventoryItem{
		ItemID:       "SIM-" + time.Now().UTC().Format("20060102150405"),
		Name:         "Simulated Item",
		CurrentStock: 2,
		MinThreshold: 10,
		DailyUsage:   1,
		Supplier:     domain.Supplier{Name: "Simulated Supplier"},
		UnitCost:     9.99,
	}

	f, err := c.forecast.Forecast(item)
	if err != nil {
		return nil, err
	}
	decision, err := c.policy.Evaluate(item, f)
	if err != nil {
		return nil, err
	}
	return c.plans.Create(ctx, item, decision)
}
