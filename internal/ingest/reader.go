package ingest

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/nidhisingh5958/inventory-pulse/internal/domain"
	"github.com/nidhisingh5958/inventory-pulse/pkg/errors"
)

// SnapshotReader is the boundary to whatever holds the raw inventory
// (spreadsheet, export file, API). The core only consumes ordered rows.
type SnapshotReader interface {
	Read(ctx context.Context) ([][]string, error)
}

// Row field positions in a snapshot:
// item_id, name, current_stock, min_threshold, daily_usage, supplier, unit_cost
const (
	fieldItemID = iota
	fieldName
	fieldCurrentStock
	fieldMinThreshold
	fieldDailyUsage
	fieldSupplier
	fieldUnitCost
	minRequiredFields = 5
)

// ParseRow validates and converts one raw row into an InventoryItem. Rows
// with fewer than five fields or unparsable numerics are rejected with a
// ValidationError; the caller skips them without failing the batch.
func ParseRow(row []string) (*domain.InventoryItem, error) {
	if len(row) < minRequiredFields {
		return nil, errors.NewValidationError("row has too few fields", "row")
	}

	itemID := strings.TrimSpace(row[fieldItemID])
	if itemID == "" {
		return nil, errors.NewValidationError("row missing item id", "item_id")
	}

	currentStock, err := strconv.Atoi(strings.TrimSpace(row[fieldCurrentStock]))
	if err != nil {
		return nil, errors.NewValidationError("current stock is not an integer", "current_stock")
	}

	minThreshold, err := strconv.Atoi(strings.TrimSpace(row[fieldMinThreshold]))
	if err != nil {
		return nil, errors.NewValidationError("min threshold is not an integer", "min_threshold")
	}

	dailyUsage, err := strconv.ParseFloat(strings.TrimSpace(row[fieldDailyUsage]), 64)
	if err != nil {
		return nil, errors.NewValidationError("daily usage is not a number", "daily_usage")
	}

	item := &domain.InventoryItem{
		ItemID:       itemID,
		Name:         strings.TrimSpace(row[fieldName]),
		CurrentStock: currentStock,
		MinThreshold: minThreshold,
		DailyUsage:   dailyUsage,
	}

	if len(row) > fieldSupplier {
		item.Supplier = parseSupplier(row[fieldSupplier])
	}
	if len(row) > fieldUnitCost {
		// unit cost is optional; an unparsable value falls back to zero
		if cost, err := strconv.ParseFloat(strings.TrimSpace(row[fieldUnitCost]), 64); err == nil {
			item.UnitCost = cost
		}
	}

	return item, nil
}

// parseSupplier accepts "Name" or "Name <contact>"
func parseSupplier(raw string) domain.Supplier {
	raw = strings.TrimSpace(raw)
	if open := strings.IndexByte(raw, '<'); open >= 0 {
		if close := strings.IndexByte(raw[open:], '>'); close > 0 {
			return domain.Supplier{
				Name:    strings.TrimSpace(raw[:open]),
				Contact: strings.TrimSpace(raw[open+1 : open+close]),
			}
		}
	}
	return domain.Supplier{Name: raw}
}

// CSVReader reads snapshots from a local CSV export
type CSVReader struct {
	Path      string
	HasHeader bool
}

// NewCSVReader creates a reader for the CSV file at path, expecting a header row
func NewCSVReader(path string) *CSVReader {
	return &CSVReader{Path: path, HasHeader: true}
}

// Read returns all data rows from the file
func (r *CSVReader) Read(ctx context.Context) ([][]string, error) {
	f, err := os.Open(r.Path)
	if err != nil {
		return nil, errors.NewTransientError("failed to open snapshot file", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // rows may be ragged, ParseRow validates

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.NewValidationError("malformed snapshot file: "+err.Error(), "snapshot")
	}

	if r.HasHeader && len(rows) > 0 {
		rows = rows[1:]
	}
	return rows, nil
}
