package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nidhisingh5958/inventory-pulse/internal/config"
	"github.com/nidhisingh5958/inventory-pulse/internal/domain"
)

// KafkaPublisher publishes alerts and plan transition events to Kafka
type KafkaPublisher struct {
	producer sarama.SyncProducer
	logger   *zap.Logger
	config   *config.Config
}

// NewKafkaPublisher creates a Kafka publisher with an idempotent sync producer
func NewKafkaPublisher(cfg *config.Config, logger *zap.Logger) (*KafkaPublisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = cfg.KafkaRetries
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1
	saramaConfig.ClientID = cfg.KafkaClientID
	saramaConfig.Version = sarama.V2_8_0_0

	switch cfg.KafkaAcks {
	case "0":
		saramaConfig.Producer.RequiredAcks = sarama.NoResponse
	case "1":
		saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	default:
		saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	}

	producer, err := sarama.NewSyncProducer(cfg.KafkaBrokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaPublisher{
		producer: producer,
		logger:   logger,
		config:   cfg,
	}, nil
}

// Publish sends the event to its topic with retries and exponential backoff.
// A dropped message is a returned error, never a silent skip.
func (p *KafkaPublisher) Publish(ctx context.Context, event interface{}) error {
	topic, err := p.topicFor(event)
	if err != nil {
		return err
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(eventJSON),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(p.eventType(event))},
			{Key: []byte("event-id"), Value: []byte(uuid.New().String())},
			{Key: []byte("timestamp"), Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}

	if key := p.partitionKey(event); key != "" {
		message.Key = sarama.StringEncoder(key)
	}

	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		partition, offset, err := p.producer.SendMessage(message)
		if err == nil {
			p.logger.Info("Event published to Kafka",
				zap.String("topic", topic),
				zap.Int32("partition", partition),
				zap.Int64("offset", offset),
				zap.String("event_type", p.eventType(event)),
				zap.Int("attempt", attempt+1),
			)
			return nil
		}

		lastErr = err
		p.logger.Warn("Failed to publish event to Kafka, retrying",
			zap.String("topic", topic),
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
		)

		if attempt < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<uint(attempt))
			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during backoff: %w", ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("failed to publish event to Kafka after %d attempts: %w", maxRetries, lastErr)
}

// Close closes the underlying producer
func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func (p *KafkaPublisher) topicFor(event interface{}) (string, error) {
	switch event.(type) {
	case domain.Alert, *domain.Alert:
		return p.config.KafkaTopicAlerts, nil
	case PlanTransitionEvent, *PlanTransitionEvent:
		return p.config.KafkaTopicPlans, nil
	default:
		return "", fmt.Errorf("unknown event type: %T", event)
	}
}

func (p *KafkaPublisher) eventType(event interface{}) string {
	switch event.(type) {
	case domain.Alert, *domain.Alert:
		return TypeLowStockAlert
	case PlanTransitionEvent, *PlanTransitionEvent:
		return TypePlanTransition
	default:
		return "Unknown"
	}
}

// partitionKey keys messages by item so per-item ordering is preserved;
// no ordering is promised across items.
func (p *KafkaPublisher) partitionKey(event interface{}) string {
	switch e := event.(type) {
	case domain.Alert:
		return e.ItemID
	case *domain.Alert:
		return e.ItemID
	case PlanTransitionEvent:
		return e.ItemID
	case *PlanTransitionEvent:
		return e.ItemID
	}
	return ""
}
