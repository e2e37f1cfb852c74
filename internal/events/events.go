package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nidhisingh5958/inventory-pulse/internal/domain"
)

// Event type names carried in the event-type message header
const (
	TypeLowStockAlert  = "LowStockAlert"
	TypePlanTransition = "PlanTransition"
)

// PlanTransitionEvent is published whenever a plan changes state, so the
// notification side can react to approvals and rejections.
type PlanTransitionEvent struct {
	PlanID        string            `json:"plan_id"`
	ItemID        string            `json:"item_id"`
	ItemName      string            `json:"item_name"`
	From          domain.PlanStatus `json:"from"`
	To            domain.PlanStatus `json:"to"`
	Supplier      string            `json:"supplier"`
	Quantity      int               `json:"quantity"`
	EstimatedCost float64           `json:"estimated_cost"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

// Publisher is the bus boundary the core publishes through. Delivery is
// at-least-once; consumers deduplicate with the alert idempotency key.
type Publisher interface {
	Publish(ctx context.Context, event interface{}) error
}

// MemoryBus is an in-process Publisher used in tests and when no broker is
// configured. An optional handler receives events synchronously.
type MemoryBus struct {
	logger  *zap.Logger
	mu      sync.Mutex
	events  []interface{}
	handler func(ctx context.Context, event interface{}) error
}

// NewMemoryBus creates an in-memory bus
func NewMemoryBus(logger *zap.Logger) *MemoryBus {
	return &MemoryBus{logger: logger}
}

// OnEvent registers a synchronous handler invoked on every publish
func (b *MemoryBus) OnEvent(handler func(ctx context.Context, event interface{}) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
}

// Publish records the event and invokes the registered handler, if any
func (b *MemoryBus) Publish(ctx context.Context, event interface{}) error {
	b.mu.Lock()
	b.events = append(b.events, event)
	handler := b.handler
	b.mu.Unlock()

	b.logger.Debug("Event published (in-memory)", zap.Any("event", event))

	if handler != nil {
		return handler(ctx, event)
	}
	return nil
}

// Events returns a snapshot of everything published so far
func (b *MemoryBus) Events() []interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]interface{}, len(b.events))
	copy(out, b.events)
	return out
}
