package kafka

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/nidhisingh5958/inventory-pulse/internal/dedup"
	"github.com/nidhisingh5958/inventory-pulse/internal/domain"
	"github.com/nidhisingh5958/inventory-pulse/internal/events"
	"github.com/nidhisingh5958/inventory-pulse/internal/notifier"
	"github.com/nidhisingh5958/inventory-pulse/pkg/errors"
)

// Processor routes consumed events into the notification orchestrator.
// Low-stock alerts pass through the idempotency filter first so a redelivered
// alert never produces a second mail.
type Processor struct {
	orchestrator *notifier.Orchestrator
	dedup        dedup.Store
	dedupTTL     time.Duration
	logger       *zap.Logger
}

// NewProcessor creates an event processor
func NewProcessor(orch *notifier.Orchestrator, dedupStore dedup.Store, dedupTTL time.Duration, logger *zap.Logger) *Processor {
	return &Processor{
		orchestrator: orch,
		dedup:        dedupStore,
		dedupTTL:     dedupTTL,
		logger:       logger,
	}
}

// ProcessEvent dispatches one consumed message by its event-type header.
// Unknown types are skipped, malformed payloads fail with a SerializationError
// so the consumer can route them to the dead letter topic.
func (p *Processor) ProcessEvent(ctx context.Context, eventType string, eventData []byte) error {
	switch eventType {
	case events.TypeLowStockAlert:
		return p.processAlert(ctx, eventData)
	case events.TypePlanTransition:
		return p.processTransition(ctx, eventData)
	default:
		p.logger.Warn("Skipping event of unknown type", zap.String("event_type", eventType))
		return nil
	}
}

func (p *Processor) processAlert(ctx context.Context, eventData []byte) error {
	var alert domain.Alert
	if err := json.Unmarshal(eventData, &alert); err != nil {
		return errors.NewSerializationError("failed to unmarshal alert", err)
	}

	if alert.IdempotencyKey != "" {
		first, err := p.dedup.FirstSeen(ctx, alert.IdempotencyKey, p.dedupTTL)
		if err != nil {
			// Dedup store down: prefer a possible duplicate over a lost alert
			p.logger.Warn("Idempotency check failed, processing anyway",
				zap.String("item_id", alert.ItemID),
				zap.Error(err),
			)
		} else if !first {
			p.logger.Info("Duplicate alert suppressed",
				zap.String("item_id", alert.ItemID),
				zap.String("idempotency_key", alert.IdempotencyKey),
			)
			return nil
		}
	}

	outcome := p.orchestrator.Handle(ctx, &alert)
	p.logger.Info("Alert processed",
		zap.String("item_id", alert.ItemID),
		zap.String("status", string(outcome.Status)),
		zap.Int("mail_attempts", outcome.MailAttempts),
		zap.Int("page_attempts", outcome.PageAttempts),
	)

	// A notification failure was already retried, recorded and flagged for
	// follow-up inside the orchestrator. Redelivering the message would just
	// burn another retry budget on the same dead downstream.
	return nil
}

func (p *Processor) processTransition(ctx context.Context, eventData []byte) error {
	var ev events.PlanTransitionEvent
	if err := json.Unmarshal(eventData, &ev); err != nil {
		return errors.NewSerializationError("failed to unmarshal plan transition", err)
	}

	outcome := p.orchestrator.HandleTransition(ctx, &ev)
	p.logger.Info("Plan transition processed",
		zap.String("plan_id", ev.PlanID),
		zap.String("to", string(ev.To)),
		zap.String("status", string(outcome.Status)),
	)
	return nil
}
