package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/nidhisingh5958/inventory-pulse/internal/config"
	"github.com/nidhisingh5958/inventory-pulse/pkg/errors"
)

// EventHandler processes one decoded message
type EventHandler interface {
	ProcessEvent(ctx context.Context, eventType string, eventData []byte) error
}

// Consumer reads the alert and plan topics as a consumer group and feeds
// messages through the processor. Messages are marked only after processing
// so a crash mid-handle means redelivery, not loss.
type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	dlqProducer   sarama.SyncProducer
	handler       EventHandler
	logger        *zap.Logger
	config        *config.Config
	topics        []string
}

// NewConsumer creates a Kafka consumer group over the replenishment topics
func NewConsumer(cfg *config.Config, handler EventHandler, logger *zap.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.ClientID = cfg.KafkaClientID
	saramaConfig.Version = sarama.V2_8_0_0

	saramaConfig.Net.DialTimeout = 10 * time.Second
	saramaConfig.Net.ReadTimeout = 10 * time.Second
	saramaConfig.Net.WriteTimeout = 10 * time.Second

	consumerGroup, err := sarama.NewConsumerGroup(cfg.KafkaBrokers, cfg.KafkaGroupID, saramaConfig)
	if err != nil {
		return nil, errors.NewBrokerConnectionError("failed to create consumer group", err)
	}

	var dlqProducer sarama.SyncProducer
	if cfg.KafkaDLQTopic != "" {
		producerConfig := sarama.NewConfig()
		producerConfig.Producer.Return.Successes = true
		producerConfig.Producer.RequiredAcks = sarama.WaitForAll
		producerConfig.ClientID = cfg.KafkaClientID + "-dlq"
		producerConfig.Version = sarama.V2_8_0_0

		dlqProducer, err = sarama.NewSyncProducer(cfg.KafkaBrokers, producerConfig)
		if err != nil {
			consumerGroup.Close()
			return nil, errors.NewBrokerConnectionError("failed to create DLQ producer", err)
		}
	}

	logger.Info("Kafka consumer group created",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("group_id", cfg.KafkaGroupID),
	)

	return &Consumer{
		consumerGroup: consumerGroup,
		dlqProducer:   dlqProducer,
		handler:       handler,
		logger:        logger,
		config:        cfg,
		topics:        []string{cfg.KafkaTopicAlerts, cfg.KafkaTopicPlans},
	}, nil
}

// Start consumes until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	handler := &consumerGroupHandler{
		consumer: c,
		logger:   c.logger,
	}

	wg := &sync.WaitGroup{}
	wg.Add(1)

	go func() {
		defer wg.Done()
		for {
			if err := c.consumerGroup.Consume(ctx, c.topics, handler); err != nil {
				c.logger.Error("Consumer session ended with error", zap.Error(err))
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	go func() {
		for err := range c.consumerGroup.Errors() {
			c.logger.Error("Consumer error", zap.Error(err))
		}
	}()

	c.logger.Info("Kafka consumer started",
		zap.Strings("topics", c.topics),
		zap.String("group_id", c.config.KafkaGroupID),
	)

	wg.Wait()
	return nil
}

// Close closes the consumer group and the DLQ producer
func (c *Consumer) Close() error {
	if c.dlqProducer != nil {
		if err := c.dlqProducer.Close(); err != nil {
			c.logger.Warn("Failed to close DLQ producer", zap.Error(err))
		}
	}
	return c.consumerGroup.Close()
}

func (c *Consumer) sendToDLQ(message *sarama.ConsumerMessage, cause error) error {
	if c.dlqProducer == nil {
		c.logger.Error("Dropping unprocessable message, no DLQ configured",
			zap.String("topic", message.Topic),
			zap.Int64("offset", message.Offset),
			zap.Error(cause),
		)
		return nil
	}

	dlqMessage := &sarama.ProducerMessage{
		Topic: c.config.KafkaDLQTopic,
		Key:   sarama.ByteEncoder(message.Key),
		Value: sarama.ByteEncoder(message.Value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("original-topic"), Value: []byte(message.Topic)},
			{Key: []byte("failure-reason"), Value: []byte(cause.Error())},
			{Key: []byte("failed-at"), Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}
	for _, h := range message.Headers {
		dlqMessage.Headers = append(dlqMessage.Headers, *h)
	}

	_, _, err := c.dlqProducer.SendMessage(dlqMessage)
	if err != nil {
		return fmt.Errorf("failed to publish to DLQ topic %s: %w", c.config.KafkaDLQTopic, err)
	}

	c.logger.Warn("Message routed to dead letter topic",
		zap.String("original_topic", message.Topic),
		zap.String("dlq_topic", c.config.KafkaDLQTopic),
		zap.Error(cause),
	)
	return nil
}

type consumerGroupHandler struct {
	consumer *Consumer
	logger   *zap.Logger
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim processes messages one at a time, retrying transient failures
// before marking. A message that keeps failing goes to the DLQ rather than
// wedging the partition.
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			eventType := extractEventType(message.Headers)
			if eventType == "" {
				h.logger.Warn("Message without event type, skipping",
					zap.String("topic", message.Topic),
					zap.Int64("offset", message.Offset),
				)
				session.MarkMessage(message, "")
				continue
			}

			if err := h.processWithRetry(session.Context(), eventType, message); err != nil {
				h.logger.Error("Failed to process event after retries",
					zap.String("event_type", eventType),
					zap.String("topic", message.Topic),
					zap.Error(err),
				)
				if dlqErr := h.consumer.sendToDLQ(message, err); dlqErr != nil {
					h.logger.Error("Failed to route message to DLQ", zap.Error(dlqErr))
				}
			}

			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *consumerGroupHandler) processWithRetry(ctx context.Context, eventType string, message *sarama.ConsumerMessage) error {
	maxRetries := h.consumer.config.KafkaRetries
	baseDelay := 250 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := h.consumer.handler.ProcessEvent(ctx, eventType, message.Value)
		if err == nil {
			if attempt > 0 {
				h.logger.Info("Event processed after retry",
					zap.String("event_type", eventType),
					zap.Int("attempts", attempt+1),
				)
			}
			return nil
		}
		lastErr = err

		if !errors.IsTransient(err) {
			return err
		}

		h.logger.Warn("Event processing failed, will retry",
			zap.String("event_type", eventType),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	return fmt.Errorf("failed after %d attempts: %w", maxRetries+1, lastErr)
}

func extractEventType(headers []*sarama.RecordHeader) string {
	for _, header := range headers {
		if string(header.Key) == "event-type" {
			return string(header.Value)
		}
	}
	return ""
}
