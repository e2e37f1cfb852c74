package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Alert is the transient low-stock message published on the bus when a plan
// is created. It is never persisted by the core.
type Alert struct {
	ItemID         string    `json:"item_id"`
	ItemName       string    `json:"item_name"`
	CurrentStock   int       `json:"current_stock"`
	MinThreshold   int       `json:"min_threshold"`
	Supplier       string    `json:"supplier"`
	Priority       Priority  `json:"priority"`
	Timestamp      time.Time `json:"timestamp"`
	IdempotencyKey string    `json:"idempotency_key"`
	PlanID         string    `json:"plan_id,omitempty"`
}

// NewAlert builds an alert for the item with a deterministic idempotency key,
// so repeated detections within the same day bucket collapse to one
// notification downstream.
func NewAlert(item *InventoryItem, priority Priority, planID string, now time.Time) Alert {
	return Alert{
		ItemID:         item.ItemID,
		ItemName:       item.Name,
		CurrentStock:   item.CurrentStock,
		MinThreshold:   item.MinThreshold,
		Supplier:       item.Supplier.Name,
		Priority:       priority,
		Timestamp:      now.UTC(),
		IdempotencyKey: IdempotencyKey(item.ItemID, item.CurrentStock, item.MinThreshold, now),
		PlanID:         planID,
	}
}

// IdempotencyKey hashes (item_id, current_stock, min_threshold, day-bucket)
// into a stable key. The day bucket uses UTC dates.
func IdempotencyKey(itemID string, currentStock, minThreshold int, now time.Time) string {
	payload := fmt.Sprintf("%s|%d|%d|%s", itemID, currentStock, minThreshold, now.UTC().Format("2006-01-02"))
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// AttemptOutcome classifies a single notification attempt
type AttemptOutcome string

const (
	AttemptSucceeded AttemptOutcome = "Succeeded"
	AttemptFailed    AttemptOutcome = "Failed"
)

// NotificationAttempt records one delivery try against a downstream channel.
// Attempts are persisted for manual follow-up; they drive nothing after the
// fact.
type NotificationAttempt struct {
	PlanID        string
	Channel       string // "mail" or "page"
	AttemptNumber int
	Outcome       AttemptOutcome
	ErrorKind     string // taxonomy code, empty on success
	Timestamp     time.Time
}
